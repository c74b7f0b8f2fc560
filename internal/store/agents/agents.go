package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/ids"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

const (
	agentKeyPrefix   = "tax_agent:"
	emailKeyPrefix   = "tax_agent_email:"
	agentsListKey    = "tax_agents_list"
	sessionKeyPrefix = "tax_agent_session:"

	sessionTTL = 24 * time.Hour

	minPasswordLen = 8
	bcryptCost     = 10

	// Base64-encoded profile photos are capped at 500KB.
	maxPhotoBytes = 500 * 1024
)

func agentKey(id string) string      { return agentKeyPrefix + id }
func emailKey(email string) string   { return emailKeyPrefix + strings.ToLower(email) }
func sessionKey(token string) string { return sessionKeyPrefix + token }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store manages tax agent accounts and their bearer sessions. Agent
// records never expire; sessions carry a 24 hour TTL and are also
// checked against their embedded expiry on read.
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

type CreateInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.AgentRole
}

// Create registers a new agent. The email index enforces uniqueness
// case-insensitively. The multi-key write (record, email index, list) is
// not atomic; a dangling list entry is skipped on read.
func (s *Store) Create(ctx context.Context, in CreateInput) (*domain.TaxAgent, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", errs.ErrInvalidArgument)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", errs.ErrInvalidArgument, minPasswordLen)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", errs.ErrInvalidArgument)
	}
	if in.Role == "" {
		in.Role = domain.RoleTaxAgent
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", errs.ErrInvalidArgument, in.Role)
	}

	if _, found, err := s.kv.Get(ctx, emailKey(email)); err != nil {
		return nil, fmt.Errorf("check email index: %w", err)
	} else if found {
		return nil, fmt.Errorf("%w: an agent with this email already exists", errs.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	a := &domain.TaxAgent{
		ID:           ids.NewAgentID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "admin",
		IsActive:     true,
	}
	if err := kv.SetJSON(ctx, s.kv, agentKey(a.ID), a, 0); err != nil {
		return nil, fmt.Errorf("persist agent: %w", err)
	}
	if err := s.kv.Set(ctx, emailKey(email), a.ID, 0); err != nil {
		return nil, fmt.Errorf("persist email index: %w", err)
	}
	if err := s.listAppend(ctx, a.ID); err != nil {
		return nil, err
	}
	s.log.Info("tax agent created", "agentId", a.ID, "role", a.Role)
	return a, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.TaxAgent, error) {
	var a domain.TaxAgent
	found, err := kv.GetJSON(ctx, s.kv, agentKey(id), &a)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", id, err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.TaxAgent, error) {
	id, found, err := s.kv.Get(ctx, emailKey(normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("load email index: %w", err)
	}
	if !found {
		return nil, errs.ErrNotFound
	}
	return s.Get(ctx, id)
}

// ListAll returns every agent on the list key, including inactive ones.
// Admin view.
func (s *Store) ListAll(ctx context.Context) ([]*domain.TaxAgent, error) {
	idx, err := s.readList(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.TaxAgent, 0, len(idx))
	for _, id := range idx {
		a, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// ListPublic returns active agents in directory order: senior roles
// first, then more experience, then name.
func (s *Store) ListPublic(ctx context.Context) ([]*domain.TaxAgentPublic, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, a := range all {
		if a.IsActive {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Role != b.Role {
			return a.Role == domain.RoleSeniorTaxAgent
		}
		if a.ExperienceYears != b.ExperienceYears {
			return a.ExperienceYears > b.ExperienceYears
		}
		return a.Name < b.Name
	})
	out := make([]*domain.TaxAgentPublic, 0, len(active))
	for _, a := range active {
		out = append(out, a.Public())
	}
	return out, nil
}

// ProfileInput is the agent-editable slice of the record. Nil fields are
// left untouched.
type ProfileInput struct {
	Name            *string
	PhotoBase64     *string
	Bio             *string
	Certifications  *[]string
	ExperienceYears *int
	Specializations *[]string
	ContactPhone    *string
}

func (s *Store) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.TaxAgent, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Base64 carries 3 decoded bytes per 4 characters; the cap is on the
	// decoded size.
	if in.PhotoBase64 != nil && len(*in.PhotoBase64)*3/4 > maxPhotoBytes {
		return nil, fmt.Errorf("%w: photo exceeds %dKB", errs.ErrInvalidArgument, maxPhotoBytes/1024)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.PhotoBase64 != nil {
		a.PhotoBase64 = *in.PhotoBase64
	}
	if in.Bio != nil {
		a.Bio = *in.Bio
	}
	if in.Certifications != nil {
		a.Certifications = *in.Certifications
	}
	if in.ExperienceYears != nil {
		a.ExperienceYears = *in.ExperienceYears
	}
	if in.Specializations != nil {
		a.Specializations = *in.Specializations
	}
	if in.ContactPhone != nil {
		a.ContactPhone = *in.ContactPhone
	}
	a.UpdatedAt = s.now().UTC()
	if err := kv.SetJSON(ctx, s.kv, agentKey(id), a, 0); err != nil {
		return nil, fmt.Errorf("persist agent %s: %w", id, err)
	}
	return a, nil
}

// AdminUpdateInput is the admin-only mutable surface: identity, role and
// credentials.
type AdminUpdateInput struct {
	Name     *string
	Email    *string
	Role     *domain.AgentRole
	Password *string
	IsActive *bool
}

func (s *Store) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput) (*domain.TaxAgent, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		next := normalizeEmail(*in.Email)
		if next == "" || !strings.Contains(next, "@") {
			return nil, fmt.Errorf("%w: valid email is required", errs.ErrInvalidArgument)
		}
		if next != a.Email {
			if _, found, err := s.kv.Get(ctx, emailKey(next)); err != nil {
				return nil, fmt.Errorf("check email index: %w", err)
			} else if found {
				return nil, fmt.Errorf("%w: an agent with this email already exists", errs.ErrConflict)
			}
			if err := s.kv.Del(ctx, emailKey(a.Email)); err != nil {
				return nil, fmt.Errorf("drop old email index: %w", err)
			}
			if err := s.kv.Set(ctx, emailKey(next), a.ID, 0); err != nil {
				return nil, fmt.Errorf("persist email index: %w", err)
			}
			a.Email = next
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", errs.ErrInvalidArgument, *in.Role)
		}
		a.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return nil, fmt.Errorf("%w: password must be at least %d characters", errs.ErrInvalidArgument, minPasswordLen)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = string(hash)
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	a.UpdatedAt = s.now().UTC()
	if err := kv.SetJSON(ctx, s.kv, agentKey(id), a, 0); err != nil {
		return nil, fmt.Errorf("persist agent %s: %w", id, err)
	}
	return a, nil
}

// Deactivate is a soft delete: the record stays for audit and the email
// stays claimed, but logins and the public directory exclude the agent.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	inactive := false
	_, err := s.AdminUpdate(ctx, id, AdminUpdateInput{IsActive: &inactive})
	return err
}

func (s *Store) readList(ctx context.Context) ([]string, error) {
	var idx []string
	found, err := kv.GetJSON(ctx, s.kv, agentsListKey, &idx)
	if err != nil {
		return nil, fmt.Errorf("load agents list: %w", err)
	}
	if !found {
		return []string{}, nil
	}
	return idx, nil
}

func (s *Store) listAppend(ctx context.Context, id string) error {
	idx, err := s.readList(ctx)
	if err != nil {
		return err
	}
	for _, existing := range idx {
		if existing == id {
			return nil
		}
	}
	idx = append(idx, id)
	if err := kv.SetJSON(ctx, s.kv, agentsListKey, idx, 0); err != nil {
		return fmt.Errorf("persist agents list: %w", err)
	}
	return nil
}
