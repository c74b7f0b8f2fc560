package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/platform/envutil"
)

const resendEndpoint = "https://api.resend.com/emails"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether an address passes the same lightweight
// check the UI applies.
func ValidEmail(address string) bool {
	return emailPattern.MatchString(address)
}

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends transactional email through the Resend HTTP API.
type Mailer struct {
	apiKey      string
	defaultFrom string
	http        *http.Client
	log         *logger.Logger
}

func New(log *logger.Logger) *Mailer {
	return &Mailer{
		apiKey:      envutil.String("RESEND_API_KEY", ""),
		defaultFrom: envutil.String("MAIL_FROM", "CGT Brain <info@cgtbrain.com.au>"),
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
}

// Enabled reports whether an API key is configured. Feedback and report
// emails are skipped, not failed, when mail is off in an environment.
func (m *Mailer) Enabled() bool { return m.apiKey != "" }

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer is not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: recipient is required", errs.ErrInvalidArgument)
	}
	for _, to := range msg.To {
		if !ValidEmail(to) {
			return fmt.Errorf("%w: invalid email address %q", errs.ErrInvalidArgument, to)
		}
	}
	from := msg.From
	if from == "" {
		from = m.defaultFrom
	}

	payload := map[string]any{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if len(msg.Attachments) > 0 {
		atts := make([]map[string]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			atts = append(atts, map[string]string{
				"filename": a.Filename,
				"content":  base64.StdEncoding.EncodeToString(a.Content),
			})
		}
		payload["attachments"] = atts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend responded with status %d: %s", resp.StatusCode, detail)
	}
	m.log.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
