package reports

import (
	"context"
	"fmt"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
)

// readIndex loads a JSON array of report IDs. A missing key is an empty
// index.
func (s *Store) readIndex(ctx context.Context, key string) ([]string, error) {
	var idx []string
	found, err := kv.GetJSON(ctx, s.kv, key, &idx)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}
	if !found {
		return []string{}, nil
	}
	return idx, nil
}

func (s *Store) writeIndex(ctx context.Context, key string, idx []string) error {
	if err := kv.SetJSON(ctx, s.kv, key, idx, 0); err != nil {
		return fmt.Errorf("persist index %s: %w", key, err)
	}
	return nil
}

func (s *Store) indexPrepend(ctx context.Context, key, id string) error {
	idx, err := s.readIndex(ctx, key)
	if err != nil {
		return err
	}
	next := make([]string, 0, len(idx)+1)
	next = append(next, id)
	for _, existing := range idx {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) > maxIndexSize {
		evicted := len(next) - maxIndexSize
		next = next[:maxIndexSize]
		s.log.Warn("index at capacity, evicting oldest entries", "key", key, "evicted", evicted)
	}
	return s.writeIndex(ctx, key, next)
}

func (s *Store) indexRemove(ctx context.Context, key, id string) error {
	idx, err := s.readIndex(ctx, key)
	if err != nil {
		return err
	}
	next := idx[:0]
	for _, existing := range idx {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) == len(idx) {
		return nil
	}
	return s.writeIndex(ctx, key, next)
}
