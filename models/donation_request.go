package models

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DonationPending    = "pending"
	DonationInProgress = "inprogress"
	DonationDone       = "done"
	DonationCanceled   = "canceled"
)

type DonationRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RequesterName     string             `bson:"requester_name" json:"requester_name"`
	RequesterEmail    string             `bson:"requester_email" json:"requester_email"`
	RecipientName     string             `bson:"recipient_name" json:"recipient_name"`
	RecipientDistrict string             `bson:"recipient_district" json:"recipient_district"`
	RecipientUpazila  string             `bson:"recipient_upazila" json:"recipient_upazila"`
	HospitalName      string             `bson:"hospital_name" json:"hospital_name"`
	FullAddress       string             `bson:"full_address" json:"full_address"`
	BloodGroup        string             `bson:"blood_group" json:"blood_group"`
	DonationDate      string             `bson:"donation_date" json:"donation_date"`
	DonationTime      string             `bson:"donation_time" json:"donation_time"`
	RequestMessage    string             `bson:"request_message,omitempty" json:"request_message,omitempty"`
	DonorName         string             `bson:"donor_name,omitempty" json:"donor_name,omitempty"`
	DonorEmail        string             `bson:"donor_email,omitempty" json:"donor_email,omitempty"`
	DonationStatus    string             `bson:"donation_status" json:"donation_status"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// DonationRequestInput is the client-editable part of a request. Identity,
// ownership, status and timestamps are not representable here. The binding
// rules apply to creation; updates send any subset.
type DonationRequestInput struct {
	RequesterName     string `json:"requester_name"`
	RequesterEmail    string `json:"requester_email" binding:"omitempty,email"`
	RecipientName     string `json:"recipient_name" binding:"required"`
	RecipientDistrict string `json:"recipient_district" binding:"required"`
	RecipientUpazila  string `json:"recipient_upazila" binding:"required"`
	HospitalName      string `json:"hospital_name" binding:"required"`
	FullAddress       string `json:"full_address" binding:"required"`
	BloodGroup        string `json:"blood_group" binding:"required"`
	DonationDate      string `json:"donation_date" binding:"required"`
	DonationTime      string `json:"donation_time" binding:"required"`
	RequestMessage    string `json:"request_message"`
	DonorName         string `json:"donor_name"`
	DonorEmail        string `json:"donor_email" binding:"omitempty,email"`
}

// Trimmed returns a copy with surrounding whitespace removed from every
// field.
func (in DonationRequestInput) Trimmed() DonationRequestInput {
	v := reflect.ValueOf(&in).Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
	return in
}

// SetFields returns the non-empty content fields keyed by store name.
// requester_email is absent: ownership never moves.
func (in DonationRequestInput) SetFields() map[string]any {
	set := map[string]any{}
	for key, v := range map[string]string{
		"requester_name":     in.RequesterName,
		"recipient_name":     in.RecipientName,
		"recipient_district": in.RecipientDistrict,
		"recipient_upazila":  in.RecipientUpazila,
		"hospital_name":      in.HospitalName,
		"full_address":       in.FullAddress,
		"blood_group":        in.BloodGroup,
		"donation_date":      in.DonationDate,
		"donation_time":      in.DonationTime,
		"request_message":    in.RequestMessage,
		"donor_name":         in.DonorName,
		"donor_email":        in.DonorEmail,
	} {
		if v != "" {
			set[key] = v
		}
	}
	return set
}

// RequestPage is one page of the admin listing plus the unpaged total.
type RequestPage struct {
	Requests []DonationRequest `json:"requests"`
	Total    int64             `json:"total"`
}
