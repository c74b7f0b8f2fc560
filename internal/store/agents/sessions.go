package agents

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
)

// Login checks credentials and mints a bearer token. Unknown emails and
// bad passwords both come back as ErrUnauthorized so the response never
// says which part was wrong. A deactivated account with the right
// password is the one distinguishable case: ErrForbidden, so the agent
// knows the account is closed rather than the password mistyped.
func (s *Store) Login(ctx context.Context, email, password string) (token string, agent *domain.TaxAgent, err error) {
	a, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid email or password", errs.ErrUnauthorized)
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return "", nil, fmt.Errorf("%w: invalid email or password", errs.ErrUnauthorized)
	}
	if !a.IsActive {
		return "", nil, fmt.Errorf("%w: account is deactivated, contact an administrator", errs.ErrForbidden)
	}

	token = ids.NewSessionToken()
	sess := domain.Session{AgentID: a.ID, ExpiresAt: s.now().UTC().Add(sessionTTL)}
	if err := kv.SetJSON(ctx, s.kv, sessionKey(token), sess, sessionTTL); err != nil {
		return "", nil, fmt.Errorf("persist session: %w", err)
	}
	s.log.Info("agent logged in", "agentId", a.ID)
	return token, a, nil
}

// VerifySession resolves a bearer token to its agent. Expired sessions
// are deleted on read; the backend TTL is the backstop, the embedded
// expiry is authoritative.
func (s *Store) VerifySession(ctx context.Context, token string) (*domain.TaxAgent, error) {
	if token == "" {
		return nil, errs.ErrUnauthorized
	}
	var sess domain.Session
	found, err := kv.GetJSON(ctx, s.kv, sessionKey(token), &sess)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, errs.ErrUnauthorized
	}
	if !s.now().UTC().Before(sess.ExpiresAt) {
		if err := s.kv.Del(ctx, sessionKey(token)); err != nil {
			s.log.Warn("delete expired session", "error", err)
		}
		return nil, errs.ErrUnauthorized
	}
	a, err := s.Get(ctx, sess.AgentID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, errs.ErrUnauthorized
	}
	return a, nil
}

// Logout discards the session. Unknown tokens are a no-op.
func (s *Store) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, sessionKey(token))
}
