package agents

import (
	"context"
	"testing"
	"time"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/kv"
	"github.com/cgtbrain/cgt-brain-backend/internal/domain"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	mem := kv.NewMemory()
	st := New(mem, logger.NewNop())
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &now
	st.SetClock(func() time.Time { return *clock })
	mem.SetClock(func() time.Time { return *clock })
	return st, clock
}

func mustCreate(t *testing.T, st *Store, email, name string, role domain.AgentRole) *domain.TaxAgent {
	t.Helper()
	a, err := st.Create(context.Background(), CreateInput{
		Email:    email,
		Password: "correct-horse",
		Name:     name,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create agent %s: %v", email, err)
	}
	return a
}

func TestCreateNormalizesEmail(t *testing.T) {
	st, _ := newTestStore(t)
	a := mustCreate(t, st, "  Jane@Example.COM ", "Jane", "")
	if a.Email != "jane@example.com" {
		t.Fatalf("email = %q", a.Email)
	}
	if a.Role != domain.RoleTaxAgent {
		t.Fatalf("default role = %q", a.Role)
	}
	if !a.IsActive {
		t.Fatalf("new agent not active")
	}
}

func TestCreateRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	st, _ := newTestStore(t)
	mustCreate(t, st, "jane@example.com", "Jane", "")
	_, err := st.Create(context.Background(), CreateInput{
		Email:    "JANE@example.com",
		Password: "another-pass",
		Name:     "Impostor",
	})
	if !errs.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCreateRejectsShortPassword(t *testing.T) {
	st, _ := newTestStore(t)
	_, err := st.Create(context.Background(), CreateInput{
		Email:    "jane@example.com",
		Password: "short",
		Name:     "Jane",
	})
	if !errs.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestLoginAndVerifySession(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, st, "jane@example.com", "Jane", "")

	token, loggedIn, err := st.Login(ctx, "Jane@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != a.ID {
		t.Fatalf("logged in as %s, want %s", loggedIn.ID, a.ID)
	}
	if len(token) != 32 {
		t.Fatalf("token length = %d, want 32", len(token))
	}

	got, err := st.VerifySession(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("session resolves to %s", got.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	st, _ := newTestStore(t)
	mustCreate(t, st, "jane@example.com", "Jane", "")
	_, _, err := st.Login(context.Background(), "jane@example.com", "wrong-password")
	if !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	st, _ := newTestStore(t)
	_, _, err := st.Login(context.Background(), "nobody@example.com", "whatever-pass")
	if !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestLoginInactiveAgent(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, st, "jane@example.com", "Jane", "")
	if err := st.Deactivate(ctx, a.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// Correct password on a deactivated account is forbidden, not
	// unauthorized: the agent should learn the account is closed.
	_, _, err := st.Login(ctx, "jane@example.com", "correct-horse")
	if !errs.Is(err, errs.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// A wrong password on the same account stays indistinguishable from
	// any other bad credential.
	_, _, err = st.Login(ctx, "jane@example.com", "wrong-password")
	if !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestSessionExpiryIsLazy(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, st, "jane@example.com", "Jane", "")
	token, _, err := st.Login(ctx, "jane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	*clock = clock.Add(sessionTTL + time.Minute)
	if _, err := st.VerifySession(ctx, token); !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expired session verified: %v", err)
	}
	// Second read hits the deleted key, same result.
	if _, err := st.VerifySession(ctx, token); !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("second verify: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, st, "jane@example.com", "Jane", "")
	token, _, err := st.Login(ctx, "jane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := st.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := st.VerifySession(ctx, token); !errs.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("session survived logout: %v", err)
	}
}

func TestUpdateProfileWhitelist(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, st, "jane@example.com", "Jane", "")

	bio := "CGT specialist, 12 years in property."
	years := 12
	got, err := st.UpdateProfile(ctx, a.ID, ProfileInput{Bio: &bio, ExperienceYears: &years})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if got.Bio != bio || got.ExperienceYears != 12 {
		t.Fatalf("profile not applied: %+v", got)
	}
	if got.Email != "jane@example.com" || got.Role != domain.RoleTaxAgent {
		t.Fatalf("profile update touched admin fields")
	}
}

func TestUpdateProfilePhotoCapIsOnDecodedSize(t *testing.T) {
	st, _ := newTestStore(t)
	a := mustCreate(t, st, "jane@example.com", "Jane", "")

	// 600000 base64 characters decode to ~450KB, inside the cap even
	// though the encoded string is longer than maxPhotoBytes.
	ok := string(make([]byte, 600000))
	if _, err := st.UpdateProfile(context.Background(), a.ID, ProfileInput{PhotoBase64: &ok}); err != nil {
		t.Fatalf("photo under decoded cap rejected: %v", err)
	}

	big := string(make([]byte, maxPhotoBytes*4/3+4))
	_, err := st.UpdateProfile(context.Background(), a.ID, ProfileInput{PhotoBase64: &big})
	if !errs.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestAdminUpdateEmailMovesIndex(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, st, "jane@example.com", "Jane", "")

	next := "jane.doe@example.com"
	if _, err := st.AdminUpdate(ctx, a.ID, AdminUpdateInput{Email: &next}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if _, err := st.GetByEmail(ctx, "jane@example.com"); !errs.Is(err, errs.ErrNotFound) {
		t.Fatalf("old email still resolves: %v", err)
	}
	got, err := st.GetByEmail(ctx, "jane.doe@example.com")
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("new email resolves to %s", got.ID)
	}
}

func TestAdminUpdateEmailConflict(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, st, "jane@example.com", "Jane", "")
	b := mustCreate(t, st, "bob@example.com", "Bob", "")

	taken := "jane@example.com"
	_, err := st.AdminUpdate(ctx, b.ID, AdminUpdateInput{Email: &taken})
	if !errs.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestListPublicOrderAndFiltering(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	junior := mustCreate(t, st, "a@example.com", "Zara", domain.RoleTaxAgent)
	seniorNew := mustCreate(t, st, "b@example.com", "Ben", domain.RoleSeniorTaxAgent)
	seniorOld := mustCreate(t, st, "c@example.com", "Amy", domain.RoleSeniorTaxAgent)
	hidden := mustCreate(t, st, "d@example.com", "Hidden", domain.RoleTaxAgent)

	years := 15
	if _, err := st.UpdateProfile(ctx, seniorOld.ID, ProfileInput{ExperienceYears: &years}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if err := st.Deactivate(ctx, hidden.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := st.ListPublic(ctx)
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (inactive excluded)", len(got))
	}
	if got[0].ID != seniorOld.ID || got[1].ID != seniorNew.ID || got[2].ID != junior.ID {
		t.Fatalf("order: %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
	for _, p := range got {
		if p.ID == "" || p.Name == "" {
			t.Fatalf("public view incomplete: %+v", p)
		}
	}
}
