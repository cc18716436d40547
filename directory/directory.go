// Package directory manages user records: registration, profile edits,
// role and status changes, and the public donor search.
package directory

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/events"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/store"
)

// Users is the persistence the directory needs.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, q models.DonorSearch) ([]models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (store.UpdateResult, error)
}

type Service struct {
	users       Users
	gate        *access.Gate
	defaultRole string
	pub         events.Publisher
	log         *slog.Logger
	now         func() time.Time
}

func NewService(users Users, gate *access.Gate, defaultRole string, pub events.Publisher, log *slog.Logger) *Service {
	return &Service{
		users:       users,
		gate:        gate,
		defaultRole: defaultRole,
		pub:         pub,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a directory record. Role and status are always the
// configured defaults.
func (s *Service) Register(ctx context.Context, id *identity.Identity, in models.Registration) (*models.User, error) {
	if err := s.gate.Check(ctx, id, access.OpCreateUser, nil); err != nil {
		return nil, err
	}

	in.Email = identity.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	u := &models.User{
		Email:      in.Email,
		Name:       in.Name,
		Avatar:     in.Avatar,
		Role:       s.defaultRole,
		Status:     models.UserStatusActive,
		BloodGroup: in.BloodGroup,
		District:   in.District,
		Upazila:    in.Upazila,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.pub, s.log, events.UserRegistered, map[string]any{
		"user_id":    u.ID.Hex(),
		"user_email": u.Email,
	})
	return u, nil
}

// ---------------- READ ----------------

func (s *Service) List(ctx context.Context, id *identity.Identity) ([]models.User, error) {
	if err := s.gate.Check(ctx, id, access.OpListUsers, nil); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Search returns active donors and volunteers; empty filters are ignored.
func (s *Service) Search(ctx context.Context, q models.DonorSearch) ([]models.User, error) {
	if err := s.gate.Check(ctx, nil, access.OpSearch, nil); err != nil {
		return nil, err
	}
	return s.users.Search(ctx, q)
}

// Status returns user_status for email; callers may read their own record,
// admins any record.
func (s *Service) Status(ctx context.Context, id *identity.Identity, email string) (string, error) {
	u, err := s.lookup(ctx, id, access.OpGetUserStatus, email)
	if err != nil {
		return "", err
	}
	return u.Status, nil
}

// Role returns user_role for email under the same rule as Status.
func (s *Service) Role(ctx context.Context, id *identity.Identity, email string) (string, error) {
	u, err := s.lookup(ctx, id, access.OpGetUserRole, email)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (s *Service) lookup(ctx context.Context, id *identity.Identity, op access.Operation, email string) (*models.User, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	var target *models.User
	owner := func(ctx context.Context) (string, error) {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return "", err
		}
		target = u
		return u.Email, nil
	}
	if err := s.gate.Check(ctx, id, op, owner); err != nil {
		return nil, err
	}
	return target, nil
}

// ---------------- UPDATE ----------------

// Update edits the profile fields of a user. Identity, role and status are
// not reachable through this path.
func (s *Service) Update(ctx context.Context, id *identity.Identity, userID string, p models.UserProfile) (store.UpdateResult, error) {
	oid, err := store.ParseID(userID, "user")
	if err != nil {
		return store.UpdateResult{}, err
	}
	owner := func(ctx context.Context) (string, error) {
		u, err := s.users.FindByID(ctx, oid)
		if err != nil {
			return "", err
		}
		return u.Email, nil
	}
	if err := s.gate.Check(ctx, id, access.OpUpdateUser, owner); err != nil {
		return store.UpdateResult{}, err
	}

	set := p.SetFields()
	if len(set) == 0 {
		return store.UpdateResult{}, apperr.Validation("no profile fields to update")
	}
	return s.users.Update(ctx, oid, set)
}

// SetRole assigns a role from the configured set.
func (s *Service) SetRole(ctx context.Context, id *identity.Identity, userID, role string) (store.UpdateResult, error) {
	if err := s.gate.Check(ctx, id, access.OpSetUserRole, nil); err != nil {
		return store.UpdateResult{}, err
	}
	if !s.gate.KnownRole(role) {
		return store.UpdateResult{}, apperr.Validation("unknown role " + strconv.Quote(role))
	}
	res, err := s.set(ctx, userID, "user_role", role)
	if err != nil {
		return res, err
	}
	events.Emit(ctx, s.pub, s.log, events.UserRoleChanged, map[string]any{
		"user_id":   userID,
		"user_role": role,
	})
	return res, nil
}

// SetStatus blocks or reactivates a user.
func (s *Service) SetStatus(ctx context.Context, id *identity.Identity, userID, status string) (store.UpdateResult, error) {
	if err := s.gate.Check(ctx, id, access.OpSetUserStatus, nil); err != nil {
		return store.UpdateResult{}, err
	}
	if status != models.UserStatusActive && status != models.UserStatusBlocked {
		return store.UpdateResult{}, apperr.Validation("user_status must be active or blocked")
	}
	res, err := s.set(ctx, userID, "user_status", status)
	if err != nil {
		return res, err
	}
	events.Emit(ctx, s.pub, s.log, events.UserStatusChanged, map[string]any{
		"user_id":     userID,
		"user_status": status,
	})
	return res, nil
}

func (s *Service) set(ctx context.Context, userID, field, value string) (store.UpdateResult, error) {
	oid, err := store.ParseID(userID, "user")
	if err != nil {
		return store.UpdateResult{}, err
	}
	res, err := s.users.Update(ctx, oid, map[string]any{field: value})
	if err != nil {
		return store.UpdateResult{}, err
	}
	if res.Matched == 0 {
		return res, apperr.NotFound("user not found")
	}
	return res, nil
}
