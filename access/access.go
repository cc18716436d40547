// Package access is the single authorization entry point. Every operation
// asks Gate.Authorize whether the acting identity may perform it; services
// never compare roles or owners themselves.
package access

import (
	"context"
	"log/slog"

	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/logger"
	"github.com/Arman3747/BloodConnect-Server/models"
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
	ReasonBlocked         Reason = "blocked"
	ReasonNotFound        Reason = "not_found"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Err converts a denial into a domain error; it is nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return apperr.New(apperr.CodeUnauthenticated, d.Message)
	case ReasonBlocked:
		return apperr.New(apperr.CodeBlocked, d.Message)
	case ReasonNotFound:
		return apperr.New(apperr.CodeNotFound, d.Message)
	default:
		return apperr.New(apperr.CodeForbidden, d.Message)
	}
}

// OwnerFunc resolves the email that owns the target of an operation. It
// must return a NOT_FOUND error when the target does not exist.
type OwnerFunc func(ctx context.Context) (string, error)

// OwnedBy is an OwnerFunc for targets whose owner is already known.
func OwnedBy(email string) OwnerFunc {
	return func(context.Context) (string, error) { return email, nil }
}

// ActorLookup loads the directory record for an identity.
type ActorLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Gate struct {
	users ActorLookup
	roles map[string]struct{}
	log   *slog.Logger
}

// NewGate builds a gate accepting the given role set.
func NewGate(users ActorLookup, roles []string, log *slog.Logger) *Gate {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return &Gate{users: users, roles: set, log: log}
}

// KnownRole reports whether role belongs to the configured set.
func (g *Gate) KnownRole(role string) bool {
	_, ok := g.roles[role]
	return ok
}

// Authorize decides whether id may perform op. owner is consulted only for
// SelfOrAdmin operations. The error return is reserved for upstream
// failures while loading the actor or the target.
func (g *Gate) Authorize(ctx context.Context, id *identity.Identity, op Operation, owner OwnerFunc) (Decision, error) {
	r, ok := policy[op]
	if !ok {
		return deny(ReasonForbidden, "operation not permitted"), nil
	}
	if r.class == Public {
		return allow(), nil
	}
	if id == nil || id.Email == "" {
		return deny(ReasonUnauthenticated, "unauthorized access"), nil
	}
	if r.class == Authenticated {
		return allow(), nil
	}

	switch r.class {
	case Create:
		actor, err := g.actor(ctx, id.Email)
		if err != nil {
			return Decision{}, err
		}
		if actor == nil {
			return deny(ReasonNotFound, "requester not found"), nil
		}
		if !actor.Active() {
			return deny(ReasonBlocked, "blocked users cannot create a "+r.noun), nil
		}
		if !g.KnownRole(actor.Role) {
			return deny(ReasonForbidden, "access denied"), nil
		}
		return allow(), nil

	case AdminOnly:
		actor, err := g.actor(ctx, id.Email)
		if err != nil {
			return Decision{}, err
		}
		if !g.isAdmin(actor) {
			return deny(ReasonForbidden, "access denied"), nil
		}
		if !actor.Active() {
			return deny(ReasonBlocked, "blocked accounts cannot perform admin operations"), nil
		}
		return allow(), nil

	case SelfOrAdmin:
		unavailable := r.noun + " not available"
		if owner == nil {
			return deny(ReasonForbidden, unavailable), nil
		}
		ownerEmail, err := owner(ctx)
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return deny(ReasonNotFound, unavailable), nil
		}
		if err != nil {
			return Decision{}, err
		}
		if ownerEmail != "" && identity.NormalizeEmail(ownerEmail) == id.Email {
			return allow(), nil
		}

		actor, err := g.actor(ctx, id.Email)
		if err != nil {
			return Decision{}, err
		}
		if !g.isAdmin(actor) {
			return deny(ReasonForbidden, unavailable), nil
		}
		if r.mutates && !actor.Active() {
			return deny(ReasonBlocked, "blocked accounts cannot change another user's "+r.noun), nil
		}
		return allow(), nil
	}

	return deny(ReasonForbidden, "operation not permitted"), nil
}

// Check runs Authorize and turns a denial into an error, logging it.
func (g *Gate) Check(ctx context.Context, id *identity.Identity, op Operation, owner OwnerFunc) error {
	d, err := g.Authorize(ctx, id, op, owner)
	if err != nil {
		return err
	}
	if !d.Allowed {
		who := ""
		if id != nil {
			who = id.Email
		}
		class, _ := ClassOf(op)
		logger.FromContext(ctx, g.log).Info("access_denied",
			slog.String("operation", string(op)),
			slog.String("class", class.String()),
			slog.String("reason", string(d.Reason)),
			slog.String("actor", who),
		)
	}
	return d.Err()
}

// actor returns the directory record for email, or nil when unregistered.
func (g *Gate) actor(ctx context.Context, email string) (*models.User, error) {
	u, err := g.users.FindByEmail(ctx, email)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (g *Gate) isAdmin(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleAdmin && g.KnownRole(actor.Role)
}
