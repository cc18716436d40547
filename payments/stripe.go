// Package payments talks to the Stripe PaymentIntents API.
package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/Arman3747/BloodConnect-Server/apperr"
)

const StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// Intent is the part of a payment intent the ledger relies on.
type Intent struct {
	ID           string
	Amount       int64
	Currency     string
	Status       string
	ClientSecret string
	Method       string
}

type Stripe struct {
	api *client.API
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil)}
}

// CreateIntent opens a card payment intent for amount minor units.
func (s *Stripe) CreateIntent(ctx context.Context, amount int64, currency string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, translate(err)
	}
	return toIntent(pi), nil
}

// GetIntent retrieves an intent by id. An unknown id is NOT_FOUND.
func (s *Stripe) GetIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, translate(err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	in := Intent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if len(pi.PaymentMethodTypes) > 0 {
		in.Method = pi.PaymentMethodTypes[0]
	}
	return in
}

func translate(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing:
			return apperr.Wrap(apperr.CodeNotFound, "payment not found", err)
		case se.Type == stripe.ErrorTypeInvalidRequest:
			return apperr.Wrap(apperr.CodeValidation, se.Msg, err)
		}
	}
	return apperr.Upstream("payment provider unavailable", err)
}
