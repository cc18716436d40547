package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/logger"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/payments"
)

type memFunds struct{ entries []models.FundEntry }

func (m *memFunds) Insert(_ context.Context, f *models.FundEntry) error {
	for _, e := range m.entries {
		if e.TransactionID == f.TransactionID {
			return apperr.New(apperr.CodeConflict, "fund entry already exists")
		}
	}
	f.ID = primitive.NewObjectID()
	m.entries = append(m.entries, *f)
	return nil
}

func (m *memFunds) List(context.Context) ([]models.FundEntry, error) {
	out := append([]models.FundEntry(nil), m.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

type fakeProvider struct {
	intents  map[string]payments.Intent
	created  []int64
	currency string
}

func (p *fakeProvider) CreateIntent(_ context.Context, amount int64, currency string) (payments.Intent, error) {
	p.created = append(p.created, amount)
	p.currency = currency
	return payments.Intent{ID: "pi_new", Amount: amount, Currency: currency, ClientSecret: "pi_new_secret"}, nil
}

func (p *fakeProvider) GetIntent(_ context.Context, id string) (payments.Intent, error) {
	in, ok := p.intents[id]
	if !ok {
		return payments.Intent{}, apperr.NotFound("payment not found")
	}
	return in, nil
}

type users map[string]*models.User

func (u users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if x, ok := u[email]; ok {
		return x, nil
	}
	return nil, apperr.NotFound("user not found")
}

func newService(t *testing.T) (*Service, *memFunds, *fakeProvider) {
	t.Helper()
	dir := users{
		"donor@x.io":   {Email: "donor@x.io", Role: models.RoleDonor, Status: models.UserStatusActive},
		"blocked@x.io": {Email: "blocked@x.io", Role: models.RoleDonor, Status: models.UserStatusBlocked},
	}
	provider := &fakeProvider{intents: map[string]payments.Intent{}}
	for i, amount := range []int64{500, 1200, 2500, 900} {
		id := "pi_" + string(rune('a'+i))
		provider.intents[id] = payments.Intent{ID: id, Amount: amount, Currency: "usd", Status: payments.StatusSucceeded, Method: "card"}
	}
	provider.intents["pi_pending"] = payments.Intent{ID: "pi_pending", Amount: 100, Currency: "usd", Status: "requires_payment_method"}

	funds := &memFunds{}
	gate := access.NewGate(dir, []string{"donor", "volunteer", "admin"}, logger.Discard())
	return NewService(funds, provider, gate, "USD", nil, logger.Discard()), funds, provider
}

func donor() *identity.Identity { return &identity.Identity{Email: "donor@x.io"} }

func TestAppendsAreListedNewestFirst(t *testing.T) {
	svc, _, _ := newService(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	ids := []string{"pi_a", "pi_b", "pi_c", "pi_d"}
	for _, id := range ids {
		if _, err := svc.RecordContribution(context.Background(), donor(), models.ContributionInput{Name: "D", TransactionID: id}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	funds, err := svc.ListFunds(context.Background(), donor())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(funds) != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), len(funds))
	}
	for i := 1; i < len(funds); i++ {
		if funds[i].PaidAt.After(funds[i-1].PaidAt) {
			t.Fatalf("entries not sorted by paid_at desc at %d", i)
		}
	}
	if funds[0].TransactionID != "pi_d" {
		t.Fatalf("newest entry is %s", funds[0].TransactionID)
	}
}

func TestRecordTakesAmountFromPayment(t *testing.T) {
	svc, _, _ := newService(t)

	entry, err := svc.RecordContribution(context.Background(), donor(), models.ContributionInput{TransactionID: "pi_b"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.Amount != 1200 || entry.Currency != "usd" || entry.PaymentMethod != "card" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Email != "donor@x.io" {
		t.Fatalf("email should default to the caller, got %q", entry.Email)
	}
	if entry.PaidAtString != entry.PaidAt.Format(time.RFC3339) {
		t.Fatalf("paid_at_string %q does not mirror paid_at", entry.PaidAtString)
	}
}

func TestRecordRejections(t *testing.T) {
	tests := []struct {
		name   string
		caller *identity.Identity
		in     models.ContributionInput
		code   apperr.Code
	}{
		{name: "anonymous", in: models.ContributionInput{TransactionID: "pi_a"}, code: apperr.CodeUnauthenticated},
		{name: "blocked", caller: &identity.Identity{Email: "blocked@x.io"}, in: models.ContributionInput{TransactionID: "pi_a"}, code: apperr.CodeBlocked},
		{name: "missing transaction", caller: donor(), in: models.ContributionInput{Amount: 500}, code: apperr.CodeValidation},
		{name: "unknown transaction", caller: donor(), in: models.ContributionInput{TransactionID: "pi_zzz"}, code: apperr.CodeValidation},
		{name: "unpaid intent", caller: donor(), in: models.ContributionInput{TransactionID: "pi_pending"}, code: apperr.CodeValidation},
		{name: "amount mismatch", caller: donor(), in: models.ContributionInput{TransactionID: "pi_a", Amount: 99999}, code: apperr.CodeValidation},
		{name: "negative amount", caller: donor(), in: models.ContributionInput{TransactionID: "pi_a", Amount: -5}, code: apperr.CodeValidation},
		{name: "blank transaction", caller: donor(), in: models.ContributionInput{TransactionID: "   "}, code: apperr.CodeValidation},
		{name: "malformed email", caller: donor(), in: models.ContributionInput{TransactionID: "pi_a", Email: "not-an-address"}, code: apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, funds, _ := newService(t)
			_, err := svc.RecordContribution(context.Background(), tt.caller, tt.in)
			if !apperr.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if len(funds.entries) != 0 {
				t.Fatal("rejected contribution must not be written")
			}
		})
	}
}

func TestDuplicateTransactionConflicts(t *testing.T) {
	svc, funds, _ := newService(t)
	in := models.ContributionInput{TransactionID: "pi_c", Amount: 2500}

	if _, err := svc.RecordContribution(context.Background(), donor(), in); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := svc.RecordContribution(context.Background(), donor(), in)
	if !apperr.HasCode(err, apperr.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if len(funds.entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(funds.entries))
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	svc, _, provider := newService(t)

	secret, err := svc.CreatePaymentIntent(context.Background(), donor(), 1500)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if secret != "pi_new_secret" || provider.currency != "usd" {
		t.Fatalf("secret %q currency %q", secret, provider.currency)
	}

	for _, amount := range []int64{0, -100} {
		if _, err := svc.CreatePaymentIntent(context.Background(), donor(), amount); !apperr.HasCode(err, apperr.CodeValidation) {
			t.Fatalf("amount %d: expected VALIDATION, got %v", amount, err)
		}
	}
	if _, err := svc.CreatePaymentIntent(context.Background(), nil, 100); !apperr.HasCode(err, apperr.CodeUnauthenticated) {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}
	if len(provider.created) != 1 {
		t.Fatalf("provider called %d times", len(provider.created))
	}
}

func TestWithoutProvider(t *testing.T) {
	gate := access.NewGate(users{}, []string{"donor"}, logger.Discard())
	svc := NewService(&memFunds{}, nil, gate, "usd", nil, logger.Discard())
	if _, err := svc.CreatePaymentIntent(context.Background(), donor(), 100); !apperr.HasCode(err, apperr.CodeUpstream) {
		t.Fatalf("expected UPSTREAM, got %v", err)
	}
}
