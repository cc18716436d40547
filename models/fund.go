package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FundEntry is one ledger line. Amount is in minor currency units.
type FundEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Amount        int64              `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	PaidAtString  string             `bson:"paid_at_string" json:"paid_at_string"`
	PaidAt        time.Time          `bson:"paid_at" json:"paid_at"`
}

// ContributionInput reports a completed payment. Amount, when sent, must
// match the payment; zero means take it from the payment.
type ContributionInput struct {
	Name          string `json:"name"`
	Email         string `json:"email" binding:"omitempty,email"`
	Amount        int64  `json:"amount" binding:"gte=0"`
	PaymentMethod string `json:"paymentMethod"`
	TransactionID string `json:"transactionId" binding:"required"`
}
