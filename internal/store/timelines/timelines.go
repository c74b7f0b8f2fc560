package timelines

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

const (
	timelineKeyPrefix = "timeline:"

	// Share links go stale after 90 days.
	timelineTTL = 90 * 24 * time.Hour

	envelopeVersion = 1
)

func timelineKey(shareID string) string { return timelineKeyPrefix + shareID }

// Store persists shared timelines behind short share IDs.
type Store struct {
	kv  kv.Store
	log *logger.Logger
	now func() time.Time
}

func New(kvStore kv.Store, log *logger.Logger) *Store {
	return &Store{kv: kvStore, log: log, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

type SaveInput struct {
	// Overwrites the existing share when set; a new ID is minted otherwise.
	ShareID       string
	Properties    []json.RawMessage
	Events        []json.RawMessage
	Notes         []json.RawMessage
	SavedAnalysis json.RawMessage
	Metadata      json.RawMessage
}

// Save stores a timeline and returns its share ID. Saving to an existing
// ID overwrites in place and refreshes the TTL.
func (s *Store) Save(ctx context.Context, in SaveInput) (string, error) {
	if len(in.Properties) == 0 {
		return "", fmt.Errorf("%w: properties are required", errs.ErrInvalidArgument)
	}
	if in.Events == nil {
		return "", fmt.Errorf("%w: events are required", errs.ErrInvalidArgument)
	}

	now := s.now().UTC()
	shareID := in.ShareID
	createdAt := now
	if shareID == "" {
		shareID = ids.NewShareID()
	} else {
		var existing domain.SharedTimeline
		found, err := kv.GetJSON(ctx, s.kv, timelineKey(shareID), &existing)
		if err != nil {
			return "", fmt.Errorf("load timeline %s: %w", shareID, err)
		}
		if found {
			createdAt = existing.CreatedAt
		}
	}

	tl := &domain.SharedTimeline{
		Version:       envelopeVersion,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
		Properties:    in.Properties,
		Events:        in.Events,
		Notes:         in.Notes,
		SavedAnalysis: in.SavedAnalysis,
		Metadata:      in.Metadata,
	}
	if err := kv.SetJSON(ctx, s.kv, timelineKey(shareID), tl, timelineTTL); err != nil {
		return "", fmt.Errorf("persist timeline: %w", err)
	}
	s.log.Info("timeline shared", "shareId", shareID, "properties", len(in.Properties), "events", len(in.Events))
	return shareID, nil
}

// Load returns the stored timeline. Expired or unknown share IDs are
// ErrNotFound.
func (s *Store) Load(ctx context.Context, shareID string) (*domain.SharedTimeline, error) {
	var tl domain.SharedTimeline
	found, err := kv.GetJSON(ctx, s.kv, timelineKey(shareID), &tl)
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", shareID, err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return &tl, nil
}

// Exists reports whether a share ID currently resolves.
func (s *Store) Exists(ctx context.Context, shareID string) (bool, error) {
	_, found, err := s.kv.Get(ctx, timelineKey(shareID))
	if err != nil {
		return false, fmt.Errorf("check timeline %s: %w", shareID, err)
	}
	return found, nil
}
