package domain

import (
	"encoding/json"
	"time"
)

// SharedTimeline is the stored envelope behind a share link. Identity is
// the share ID; updates overwrite in place.
type SharedTimeline struct {
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Properties []json.RawMessage `json:"properties"`
	Events     []json.RawMessage `json:"events"`
	Notes      []json.RawMessage `json:"notes,omitempty"`
	// Saved analysis travels with the share so agents see what the user saw.
	SavedAnalysis json.RawMessage `json:"savedAnalysis,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}
