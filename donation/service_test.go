package donation

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/events"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/logger"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/store"
)

// ---------------- fakes ----------------

type memRequests struct {
	docs map[primitive.ObjectID]*models.DonationRequest
	// staleOnce makes the next conditional status update match nothing.
	staleOnce bool
}

func newMemRequests() *memRequests {
	return &memRequests{docs: map[primitive.ObjectID]*models.DonationRequest{}}
}

func (m *memRequests) FindByID(_ context.Context, id primitive.ObjectID) (*models.DonationRequest, error) {
	dr, ok := m.docs[id]
	if !ok {
		return nil, apperr.NotFound("donation request not found")
	}
	cp := *dr
	return &cp, nil
}

func (m *memRequests) sorted(keep func(*models.DonationRequest) bool) []models.DonationRequest {
	out := []models.DonationRequest{}
	for _, dr := range m.docs {
		if keep(dr) {
			out = append(out, *dr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRequests) ListByStatus(_ context.Context, status string) ([]models.DonationRequest, error) {
	return m.sorted(func(dr *models.DonationRequest) bool { return dr.DonationStatus == status }), nil
}

func (m *memRequests) ListByRequester(_ context.Context, email string) ([]models.DonationRequest, error) {
	return m.sorted(func(dr *models.DonationRequest) bool { return dr.RequesterEmail == email }), nil
}

func (m *memRequests) Page(_ context.Context, page, limit int64) ([]models.DonationRequest, int64, error) {
	all := m.sorted(func(*models.DonationRequest) bool { return true })
	total := int64(len(all))
	if limit == 0 {
		return all, total, nil
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.DonationRequest{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memRequests) Insert(_ context.Context, dr *models.DonationRequest) error {
	if dr.ID.IsZero() {
		dr.ID = primitive.NewObjectID()
	}
	cp := *dr
	m.docs[dr.ID] = &cp
	return nil
}

func (m *memRequests) Update(_ context.Context, id primitive.ObjectID, set map[string]any) (store.UpdateResult, error) {
	dr, ok := m.docs[id]
	if !ok {
		return store.UpdateResult{}, nil
	}
	for k, v := range set {
		switch k {
		case "hospital_name":
			dr.HospitalName = v.(string)
		case "donor_email":
			dr.DonorEmail = v.(string)
		case "donation_status":
			dr.DonationStatus = v.(string)
		case "requester_email":
			dr.RequesterEmail = v.(string)
		}
	}
	return store.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *memRequests) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string) (store.UpdateResult, error) {
	dr, ok := m.docs[id]
	if !ok || dr.DonationStatus != from || m.staleOnce {
		m.staleOnce = false
		return store.UpdateResult{}, nil
	}
	dr.DonationStatus = to
	return store.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (m *memRequests) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	return 1, nil
}

type memUsers map[string]*models.User

func (m memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m[email]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

type recorder struct{ keys []string }

func (r *recorder) PublishJSON(_ context.Context, key string, _ any) error {
	r.keys = append(r.keys, key)
	return nil
}

type sentMail struct{ to, subject string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, _, subject, _ string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return f.err
}

// ---------------- fixtures ----------------

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	repo   *memRequests
	events *recorder
	mail   *fakeMailer
}

func newFixture(opts ...Option) fixture {
	users := memUsers{
		"donor@x.io":   {Email: "donor@x.io", Name: "Donor", Role: models.RoleDonor, Status: models.UserStatusActive},
		"other@x.io":   {Email: "other@x.io", Role: models.RoleVolunteer, Status: models.UserStatusActive},
		"blocked@x.io": {Email: "blocked@x.io", Role: models.RoleDonor, Status: models.UserStatusBlocked},
		"admin@x.io":   {Email: "admin@x.io", Role: models.RoleAdmin, Status: models.UserStatusActive},
	}
	repo := newMemRequests()
	rec := &recorder{}
	mail := &fakeMailer{}
	gate := access.NewGate(users, []string{"donor", "volunteer", "admin"}, logger.Discard())
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithPublisher(rec), WithMailer(mail)}
	svc := NewService(repo, users, gate, logger.Discard(), append(base, opts...)...)
	return fixture{svc: svc, repo: repo, events: rec, mail: mail}
}

func as(email string) *identity.Identity { return &identity.Identity{Email: email} }

func input() models.DonationRequestInput {
	return models.DonationRequestInput{
		RecipientName:     "Rahim",
		RecipientDistrict: "Dhaka",
		RecipientUpazila:  "Mirpur",
		HospitalName:      "DMCH",
		FullAddress:       "Road 1",
		BloodGroup:        "O-",
		DonationDate:      "2025-06-10",
		DonationTime:      "10:30",
	}
}

func (f fixture) seed(t *testing.T, owner, status string) *models.DonationRequest {
	t.Helper()
	dr := &models.DonationRequest{RequesterEmail: owner, DonationStatus: status, CreatedAt: fixedNow}
	if err := f.repo.Insert(context.Background(), dr); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return dr
}

// ---------------- tests ----------------

func TestCreateForcesPending(t *testing.T) {
	f := newFixture()
	in := input()

	dr, err := f.svc.Create(context.Background(), as("donor@x.io"), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dr.DonationStatus != models.DonationPending {
		t.Fatalf("expected pending, got %q", dr.DonationStatus)
	}
	if !dr.CreatedAt.Equal(fixedNow) {
		t.Fatalf("created_at = %s", dr.CreatedAt)
	}
	if dr.RequesterEmail != "donor@x.io" || dr.RequesterName != "Donor" {
		t.Fatalf("requester defaults not applied: %+v", dr)
	}
	stored, _ := f.repo.FindByID(context.Background(), dr.ID)
	if stored.DonationStatus != models.DonationPending {
		t.Fatalf("stored status %q", stored.DonationStatus)
	}
	if len(f.events.keys) != 1 || f.events.keys[0] != events.RequestCreated {
		t.Fatalf("unexpected events %v", f.events.keys)
	}
}

func TestCreateRules(t *testing.T) {
	missing := input()
	missing.HospitalName = ""

	blank := input()
	blank.HospitalName = "   "

	badDonor := input()
	badDonor.DonorEmail = "not-an-address"

	forOther := input()
	forOther.RequesterEmail = "donor@x.io"

	forGhost := input()
	forGhost.RequesterEmail = "ghost@x.io"

	forBlocked := input()
	forBlocked.RequesterEmail = "blocked@x.io"

	tests := []struct {
		name   string
		caller *identity.Identity
		in     models.DonationRequestInput
		code   apperr.Code
	}{
		{name: "anonymous", in: input(), code: apperr.CodeUnauthenticated},
		{name: "blocked caller", caller: as("blocked@x.io"), in: input(), code: apperr.CodeBlocked},
		{name: "unregistered caller", caller: as("ghost@x.io"), in: input(), code: apperr.CodeNotFound},
		{name: "non-admin on behalf of other", caller: as("other@x.io"), in: forOther, code: apperr.CodeForbidden},
		{name: "admin for unknown requester", caller: as("admin@x.io"), in: forGhost, code: apperr.CodeNotFound},
		{name: "admin for blocked requester", caller: as("admin@x.io"), in: forBlocked, code: apperr.CodeBlocked},
		{name: "missing field", caller: as("donor@x.io"), in: missing, code: apperr.CodeValidation},
		{name: "blank field", caller: as("donor@x.io"), in: blank, code: apperr.CodeValidation},
		{name: "malformed donor email", caller: as("donor@x.io"), in: badDonor, code: apperr.CodeValidation},
		{name: "admin on behalf of donor", caller: as("admin@x.io"), in: forOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Create(context.Background(), tt.caller, tt.in)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				return
			}
			if !apperr.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if len(f.repo.docs) != 0 {
				t.Fatal("rejected create must not write")
			}
		})
	}
}

func TestAdminPaging(t *testing.T) {
	f := newFixture()
	for i := 0; i < 25; i++ {
		dr := &models.DonationRequest{
			RequesterEmail: "donor@x.io",
			DonationStatus: models.DonationPending,
			CreatedAt:      fixedNow.Add(time.Duration(i) * time.Minute),
		}
		_ = f.repo.Insert(context.Background(), dr)
	}

	page, err := f.svc.ListAdmin(context.Background(), as("admin@x.io"), 2, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 25 || len(page.Requests) != 10 {
		t.Fatalf("got %d items, total %d", len(page.Requests), page.Total)
	}
	// newest first: page 2 starts at the 11th newest, created at minute 14.
	if want := fixedNow.Add(14 * time.Minute); !page.Requests[0].CreatedAt.Equal(want) {
		t.Fatalf("first item created %s, want %s", page.Requests[0].CreatedAt, want)
	}

	all, err := f.svc.ListAdmin(context.Background(), as("admin@x.io"), 0, 0)
	if err != nil || len(all.Requests) != 25 {
		t.Fatalf("unbounded list = %d, %v", len(all.Requests), err)
	}
	if _, err := f.svc.ListAdmin(context.Background(), as("admin@x.io"), 1, -1); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Fatalf("expected VALIDATION for negative limit, got %v", err)
	}
	for _, p := range []struct{ page, limit int64 }{{1 << 62, 10}, {1<<62 + 1, 4}, {math.MaxInt64, 2}} {
		if _, err := f.svc.ListAdmin(context.Background(), as("admin@x.io"), p.page, p.limit); !apperr.HasCode(err, apperr.CodeValidation) {
			t.Fatalf("page %d limit %d: expected VALIDATION, got %v", p.page, p.limit, err)
		}
	}
	if _, err := f.svc.ListAdmin(context.Background(), as("donor@x.io"), 1, 10); !apperr.HasCode(err, apperr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestPatchStatus(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		from   string
		to     string
		code   apperr.Code
	}{
		{name: "owner starts", caller: "donor@x.io", from: models.DonationPending, to: models.DonationInProgress},
		{name: "owner finishes", caller: "donor@x.io", from: models.DonationInProgress, to: models.DonationDone},
		{name: "owner reopens", caller: "donor@x.io", from: models.DonationInProgress, to: models.DonationPending},
		{name: "admin cancels", caller: "admin@x.io", from: models.DonationPending, to: models.DonationCanceled},
		{name: "same status", caller: "donor@x.io", from: models.DonationPending, to: models.DonationPending, code: apperr.CodeNoOp},
		{name: "unknown status", caller: "donor@x.io", from: models.DonationPending, to: "archived", code: apperr.CodeValidation},
		{name: "skip to done", caller: "donor@x.io", from: models.DonationPending, to: models.DonationDone, code: apperr.CodeInvalidTransition},
		{name: "leave terminal", caller: "admin@x.io", from: models.DonationDone, to: models.DonationPending, code: apperr.CodeInvalidTransition},
		{name: "revive canceled", caller: "donor@x.io", from: models.DonationCanceled, to: models.DonationInProgress, code: apperr.CodeInvalidTransition},
		{name: "stranger", caller: "other@x.io", from: models.DonationPending, to: models.DonationInProgress, code: apperr.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			dr := f.seed(t, "donor@x.io", tt.from)

			got, err := f.svc.PatchStatus(context.Background(), as(tt.caller), dr.ID.Hex(), tt.to)
			stored, _ := f.repo.FindByID(context.Background(), dr.ID)
			if tt.code != "" {
				if !apperr.HasCode(err, tt.code) {
					t.Fatalf("expected %s, got %v", tt.code, err)
				}
				if stored.DonationStatus != tt.from {
					t.Fatalf("status changed to %q on failure", stored.DonationStatus)
				}
				if len(f.mail.sent) != 0 {
					t.Fatal("no notice expected on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("patch: %v", err)
			}
			if got.DonationStatus != tt.to || stored.DonationStatus != tt.to {
				t.Fatalf("status = %q / %q, want %q", got.DonationStatus, stored.DonationStatus, tt.to)
			}
			if len(f.mail.sent) != 1 || f.mail.sent[0].to != "donor@x.io" {
				t.Fatalf("expected one notice to the requester, got %+v", f.mail.sent)
			}
		})
	}
}

func TestPatchFromTerminalNamesTheStatus(t *testing.T) {
	f := newFixture()
	dr := f.seed(t, "donor@x.io", models.DonationCanceled)

	_, err := f.svc.PatchStatus(context.Background(), as("admin@x.io"), dr.ID.Hex(), models.DonationPending)
	if !apperr.HasCode(err, apperr.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	if msg := apperr.Public(err); msg != "a canceled request can no longer change status" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestPatchStatusIsIdempotent(t *testing.T) {
	f := newFixture()
	dr := f.seed(t, "donor@x.io", models.DonationPending)
	ctx := context.Background()

	if _, err := f.svc.PatchStatus(ctx, as("donor@x.io"), dr.ID.Hex(), models.DonationInProgress); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	_, err := f.svc.PatchStatus(ctx, as("donor@x.io"), dr.ID.Hex(), models.DonationInProgress)
	if !apperr.HasCode(err, apperr.CodeNoOp) {
		t.Fatalf("expected NO_OP, got %v", err)
	}
	if apperr.Public(err) != "already inprogress" {
		t.Fatalf("unexpected message %q", apperr.Public(err))
	}
}

func TestPatchStatusLostRace(t *testing.T) {
	f := newFixture()
	dr := f.seed(t, "donor@x.io", models.DonationPending)
	f.repo.staleOnce = true

	_, err := f.svc.PatchStatus(context.Background(), as("donor@x.io"), dr.ID.Hex(), models.DonationInProgress)
	if !apperr.HasCode(err, apperr.CodeNoOp) {
		t.Fatalf("expected NO_OP, got %v", err)
	}
	if len(f.events.keys) != 0 {
		t.Fatalf("no event expected, got %v", f.events.keys)
	}
}

func TestCustomPolicy(t *testing.T) {
	direct := Policy{models.DonationPending: {models.DonationDone}}
	f := newFixture(WithPolicy(direct))
	dr := f.seed(t, "donor@x.io", models.DonationPending)

	if _, err := f.svc.PatchStatus(context.Background(), as("donor@x.io"), dr.ID.Hex(), models.DonationDone); err != nil {
		t.Fatalf("patch under custom policy: %v", err)
	}
	if !direct.Terminal(models.DonationDone) || DefaultPolicy().Terminal(models.DonationPending) {
		t.Fatal("unexpected terminal states")
	}
}

func TestMailFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture()
	f.mail.err = errors.New("smtp down")
	dr := f.seed(t, "donor@x.io", models.DonationPending)

	if _, err := f.svc.PatchStatus(context.Background(), as("donor@x.io"), dr.ID.Hex(), models.DonationCanceled); err != nil {
		t.Fatalf("patch: %v", err)
	}
}

func TestUpdateKeepsStatusAndOwner(t *testing.T) {
	f := newFixture()
	dr := f.seed(t, "donor@x.io", models.DonationInProgress)

	in := models.DonationRequestInput{HospitalName: "New Hospital", RequesterEmail: "other@x.io", DonorEmail: "Helper@X.io"}
	if _, err := f.svc.Update(context.Background(), as("donor@x.io"), dr.ID.Hex(), in); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := f.repo.FindByID(context.Background(), dr.ID)
	if stored.HospitalName != "New Hospital" || stored.DonorEmail != "helper@x.io" {
		t.Fatalf("content not updated: %+v", stored)
	}
	if stored.RequesterEmail != "donor@x.io" || stored.DonationStatus != models.DonationInProgress {
		t.Fatalf("owner or status changed: %+v", stored)
	}

	if _, err := f.svc.Update(context.Background(), as("other@x.io"), dr.ID.Hex(), in); !apperr.HasCode(err, apperr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if _, err := f.svc.Update(context.Background(), as("donor@x.io"), dr.ID.Hex(), models.DonationRequestInput{}); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestMissingRequestIsNotFound(t *testing.T) {
	f := newFixture()
	ghost := primitive.NewObjectID().Hex()
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["get"] = f.svc.Get(ctx, as("admin@x.io"), ghost)
	_, checks["update"] = f.svc.Update(ctx, as("donor@x.io"), ghost, input())
	_, checks["patch"] = f.svc.PatchStatus(ctx, as("other@x.io"), ghost, models.DonationDone)
	checks["delete"] = f.svc.Delete(ctx, as("donor@x.io"), ghost)
	checks["malformed"] = f.svc.Delete(ctx, as("donor@x.io"), "not-an-id")

	for name, err := range checks {
		if !apperr.HasCode(err, apperr.CodeNotFound) {
			t.Errorf("%s: expected NOT_FOUND, got %v", name, err)
		}
	}
}

func TestDeleteTwice(t *testing.T) {
	f := newFixture()
	dr := f.seed(t, "donor@x.io", models.DonationPending)
	ctx := context.Background()

	if err := f.svc.Delete(ctx, as("donor@x.io"), dr.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, as("donor@x.io"), dr.ID.Hex()); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND on repeat, got %v", err)
	}
}

func TestListings(t *testing.T) {
	f := newFixture()
	f.seed(t, "donor@x.io", models.DonationPending)
	f.seed(t, "donor@x.io", models.DonationDone)
	f.seed(t, "other@x.io", models.DonationPending)
	ctx := context.Background()

	public, err := f.svc.ListPublic(ctx)
	if err != nil || len(public) != 2 {
		t.Fatalf("public = %d, %v", len(public), err)
	}

	mine, err := f.svc.ListByRequester(ctx, as("donor@x.io"), "")
	if err != nil || len(mine) != 2 {
		t.Fatalf("own list = %d, %v", len(mine), err)
	}
	if _, err := f.svc.ListByRequester(ctx, as("other@x.io"), "donor@x.io"); !apperr.HasCode(err, apperr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	theirs, err := f.svc.ListByRequester(ctx, as("admin@x.io"), "Other@x.io")
	if err != nil || len(theirs) != 1 {
		t.Fatalf("admin list = %d, %v", len(theirs), err)
	}
}
