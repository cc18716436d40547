// Package ledger records contributions to the platform fund. Entries are
// append-only and every entry is backed by a succeeded payment intent.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/events"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/payments"
)

type Funds interface {
	Insert(ctx context.Context, f *models.FundEntry) error
	List(ctx context.Context) ([]models.FundEntry, error)
}

type PaymentProvider interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (payments.Intent, error)
	GetIntent(ctx context.Context, id string) (payments.Intent, error)
}

type Service struct {
	funds    Funds
	provider PaymentProvider
	gate     *access.Gate
	currency string
	pub      events.Publisher
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds the ledger. provider may be nil when no payment key is
// configured; payment operations then fail as UPSTREAM.
func NewService(funds Funds, provider PaymentProvider, gate *access.Gate, currency string, pub events.Publisher, log *slog.Logger) *Service {
	return &Service{
		funds:    funds,
		provider: provider,
		gate:     gate,
		currency: strings.ToLower(currency),
		pub:      pub,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var errNoProvider = apperr.Upstream("payment provider is not configured", nil)

// CreatePaymentIntent opens an intent for amount minor units and returns
// its client secret.
func (s *Service) CreatePaymentIntent(ctx context.Context, id *identity.Identity, amount int64) (string, error) {
	if err := s.gate.Check(ctx, id, access.OpCreatePaymentIntent, nil); err != nil {
		return "", err
	}
	if amount <= 0 {
		return "", apperr.Validation("amountInCents must be a positive integer")
	}
	if s.provider == nil {
		return "", errNoProvider
	}
	intent, err := s.provider.CreateIntent(ctx, amount, s.currency)
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

// RecordContribution appends the contribution paid by the intent named in
// in.TransactionID. Amount and currency come from the intent.
func (s *Service) RecordContribution(ctx context.Context, id *identity.Identity, in models.ContributionInput) (*models.FundEntry, error) {
	if err := s.gate.Check(ctx, id, access.OpRecordContribution, nil); err != nil {
		return nil, err
	}
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	in.Email = identity.NormalizeEmail(in.Email)
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, errNoProvider
	}

	intent, err := s.provider.GetIntent(ctx, in.TransactionID)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, apperr.Validation("transactionId does not name a known payment")
	}
	if err != nil {
		return nil, err
	}
	if intent.Status != payments.StatusSucceeded {
		return nil, apperr.Validation("payment has not succeeded")
	}
	if in.Amount != 0 && in.Amount != intent.Amount {
		return nil, apperr.Validation(fmt.Sprintf("amount %d does not match the payment (%d)", in.Amount, intent.Amount))
	}

	email := in.Email
	if email == "" {
		email = id.Email
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = intent.Method
	}
	now := s.now()
	entry := &models.FundEntry{
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		PaymentMethod: method,
		TransactionID: intent.ID,
		PaidAtString:  now.Format(time.RFC3339),
		PaidAt:        now,
	}
	if err := s.funds.Insert(ctx, entry); err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			return nil, apperr.Wrap(apperr.CodeConflict, "contribution already recorded", err)
		}
		return nil, err
	}

	events.Emit(ctx, s.pub, s.log, events.ContributionRecorded, map[string]any{
		"fund_id":       entry.ID.Hex(),
		"transactionId": entry.TransactionID,
		"amount":        entry.Amount,
		"currency":      entry.Currency,
	})
	return entry, nil
}

// ListFunds returns every entry, most recent payment first.
func (s *Service) ListFunds(ctx context.Context, id *identity.Identity) ([]models.FundEntry, error) {
	if err := s.gate.Check(ctx, id, access.OpListFunds, nil); err != nil {
		return nil, err
	}
	return s.funds.List(ctx)
}
