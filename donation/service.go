// Package donation implements the donation-request lifecycle: creation,
// reads, content edits, status transitions and deletion.
package donation

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"math"
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

type Requests interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DonationRequest, error)
	ListByStatus(ctx context.Context, status string) ([]models.DonationRequest, error)
	ListByRequester(ctx context.Context, email string) ([]models.DonationRequest, error)
	Page(ctx context.Context, page, limit int64) ([]models.DonationRequest, int64, error)
	Insert(ctx context.Context, dr *models.DonationRequest) error
	Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (store.UpdateResult, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) (store.UpdateResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Mailer delivers an HTML notice to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, name, subject, htmlBody string) error
}

type Service struct {
	requests Requests
	users    access.ActorLookup
	gate     *access.Gate
	policy   Policy
	pub      events.Publisher
	mailer   Mailer
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithPolicy(p Policy) Option { return func(s *Service) { s.policy = p } }
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.pub = p } }
func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(requests Requests, users access.ActorLookup, gate *access.Gate, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		users:    users,
		gate:     gate,
		policy:   DefaultPolicy(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// owner resolves the requester of reqID and keeps the loaded document in
// *dst for the caller.
func (s *Service) owner(oid primitive.ObjectID, dst **models.DonationRequest) access.OwnerFunc {
	return func(ctx context.Context) (string, error) {
		dr, err := s.requests.FindByID(ctx, oid)
		if err != nil {
			return "", err
		}
		*dst = dr
		return dr.RequesterEmail, nil
	}
}

func (s *Service) load(ctx context.Context, id *identity.Identity, op access.Operation, reqID string) (*models.DonationRequest, error) {
	oid, err := store.ParseID(reqID, "donation request")
	if err != nil {
		return nil, err
	}
	var dr *models.DonationRequest
	if err := s.gate.Check(ctx, id, op, s.owner(oid, &dr)); err != nil {
		return nil, err
	}
	return dr, nil
}

// ---------------- CREATE ----------------

// Create files a new request in pending status. The requester defaults to
// the caller; only an admin may file on behalf of someone else.
func (s *Service) Create(ctx context.Context, id *identity.Identity, in models.DonationRequestInput) (*models.DonationRequest, error) {
	if err := s.gate.Check(ctx, id, access.OpCreateRequest, nil); err != nil {
		return nil, err
	}
	in = in.Trimmed()

	requester := identity.NormalizeEmail(in.RequesterEmail)
	if requester == "" {
		requester = id.Email
	}
	if requester != id.Email {
		caller, err := s.users.FindByEmail(ctx, id.Email)
		if err != nil {
			return nil, err
		}
		if caller.Role != models.RoleAdmin {
			return nil, apperr.Forbidden("cannot create a donation request for another user")
		}
	}

	user, err := s.users.FindByEmail(ctx, requester)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, apperr.NotFound("requester not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, apperr.New(apperr.CodeBlocked, "blocked users cannot create requests")
	}

	if err := models.Validate(in); err != nil {
		return nil, err
	}

	name := in.RequesterName
	if name == "" {
		name = user.Name
	}
	now := s.now()
	dr := &models.DonationRequest{
		RequesterName:     name,
		RequesterEmail:    requester,
		RecipientName:     in.RecipientName,
		RecipientDistrict: in.RecipientDistrict,
		RecipientUpazila:  in.RecipientUpazila,
		HospitalName:      in.HospitalName,
		FullAddress:       in.FullAddress,
		BloodGroup:        in.BloodGroup,
		DonationDate:      in.DonationDate,
		DonationTime:      in.DonationTime,
		RequestMessage:    in.RequestMessage,
		DonationStatus:    models.DonationPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.requests.Insert(ctx, dr); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.pub, s.log, events.RequestCreated, map[string]any{
		"request_id":      dr.ID.Hex(),
		"requester_email": dr.RequesterEmail,
		"blood_group":     dr.BloodGroup,
		"district":        dr.RecipientDistrict,
	})
	return dr, nil
}

// ---------------- READ ----------------

func (s *Service) Get(ctx context.Context, id *identity.Identity, reqID string) (*models.DonationRequest, error) {
	return s.load(ctx, id, access.OpGetRequest, reqID)
}

// ListPublic returns every pending request, newest first.
func (s *Service) ListPublic(ctx context.Context) ([]models.DonationRequest, error) {
	if err := s.gate.Check(ctx, nil, access.OpListPublicRequests, nil); err != nil {
		return nil, err
	}
	return s.requests.ListByStatus(ctx, models.DonationPending)
}

// ListByRequester returns the requests filed by email, newest first. An
// empty email means the caller's own requests.
func (s *Service) ListByRequester(ctx context.Context, id *identity.Identity, email string) ([]models.DonationRequest, error) {
	email = identity.NormalizeEmail(email)
	if email == "" && id != nil {
		email = id.Email
	}
	if err := s.gate.Check(ctx, id, access.OpListRequestsByMail, access.OwnedBy(email)); err != nil {
		return nil, err
	}
	return s.requests.ListByRequester(ctx, email)
}

// ListAdmin pages through every request. page < 1 is treated as 1 and
// limit 0 returns everything.
func (s *Service) ListAdmin(ctx context.Context, id *identity.Identity, page, limit int64) (models.RequestPage, error) {
	if err := s.gate.Check(ctx, id, access.OpListRequestsAdmin, nil); err != nil {
		return models.RequestPage{}, err
	}
	if limit < 0 {
		return models.RequestPage{}, apperr.Validation("limit must not be negative")
	}
	if page < 1 {
		page = 1
	}
	if limit > 0 && page > math.MaxInt64/limit {
		return models.RequestPage{}, apperr.Validation("page is out of range")
	}
	items, total, err := s.requests.Page(ctx, page, limit)
	if err != nil {
		return models.RequestPage{}, err
	}
	return models.RequestPage{Requests: items, Total: total}, nil
}

// ---------------- UPDATE ----------------

// Update replaces content fields. Status, owner and creation time are
// never touched here.
func (s *Service) Update(ctx context.Context, id *identity.Identity, reqID string, in models.DonationRequestInput) (store.UpdateResult, error) {
	dr, err := s.load(ctx, id, access.OpUpdateRequest, reqID)
	if err != nil {
		return store.UpdateResult{}, err
	}
	set := in.Trimmed().SetFields()
	if len(set) == 0 {
		return store.UpdateResult{}, apperr.Validation("no fields to update")
	}
	if v, ok := set["donor_email"].(string); ok {
		set["donor_email"] = identity.NormalizeEmail(v)
	}
	return s.requests.Update(ctx, dr.ID, set)
}

// PatchStatus moves a request along the lifecycle.
func (s *Service) PatchStatus(ctx context.Context, id *identity.Identity, reqID, to string) (*models.DonationRequest, error) {
	dr, err := s.load(ctx, id, access.OpPatchRequestStatus, reqID)
	if err != nil {
		return nil, err
	}

	from := dr.DonationStatus
	switch {
	case !Known(to):
		return nil, apperr.Validation(fmt.Sprintf("unknown donation_status %q", to))
	case to == from:
		return nil, apperr.New(apperr.CodeNoOp, "already "+to)
	case s.policy.Terminal(from):
		return nil, apperr.New(apperr.CodeInvalidTransition, fmt.Sprintf("a %s request can no longer change status", from))
	case !s.policy.Allows(from, to):
		return nil, apperr.New(apperr.CodeInvalidTransition, fmt.Sprintf("cannot move a request from %s to %s", from, to))
	}

	res, err := s.requests.UpdateStatus(ctx, dr.ID, from, to)
	if err != nil {
		return nil, err
	}
	if res.Matched == 0 {
		return nil, apperr.New(apperr.CodeNoOp, "donation request was already updated")
	}

	dr.DonationStatus = to
	dr.UpdatedAt = s.now()

	actor := ""
	if id != nil {
		actor = id.Email
	}
	events.Emit(ctx, s.pub, s.log, events.RequestStatusChanged, map[string]any{
		"request_id":      dr.ID.Hex(),
		"requester_email": dr.RequesterEmail,
		"from":            from,
		"to":              to,
		"changed_by":      actor,
	})
	s.notify(ctx, dr, from)
	return dr, nil
}

func (s *Service) notify(ctx context.Context, dr *models.DonationRequest, from string) {
	if s.mailer == nil {
		return
	}
	subject := "Your blood donation request is now " + dr.DonationStatus
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your request for %s at %s moved from <b>%s</b> to <b>%s</b>.</p>",
		html.EscapeString(dr.RequesterName),
		html.EscapeString(dr.RecipientName),
		html.EscapeString(dr.HospitalName),
		from, dr.DonationStatus,
	)
	if err := s.mailer.Send(ctx, dr.RequesterEmail, dr.RequesterName, subject, body); err != nil {
		logger.FromContext(ctx, s.log).Warn("status_notice_failed",
			slog.String("request_id", dr.ID.Hex()),
			slog.String("error", err.Error()),
		)
	}
}

// ---------------- DELETE ----------------

func (s *Service) Delete(ctx context.Context, id *identity.Identity, reqID string) error {
	dr, err := s.load(ctx, id, access.OpDeleteRequest, reqID)
	if err != nil {
		return err
	}
	n, err := s.requests.Delete(ctx, dr.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("donation request not found")
	}
	events.Emit(ctx, s.pub, s.log, events.RequestDeleted, map[string]any{
		"request_id": dr.ID.Hex(),
	})
	return nil
}
