package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"

	RoleDonor     = "donor"
	RoleVolunteer = "volunteer"
	RoleAdmin     = "admin"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email      string             `bson:"user_email" json:"user_email"`
	Name       string             `bson:"user_name,omitempty" json:"user_name,omitempty"`
	Avatar     string             `bson:"user_avatar,omitempty" json:"user_avatar,omitempty"`
	Role       string             `bson:"user_role" json:"user_role"`
	Status     string             `bson:"user_status" json:"user_status"`
	BloodGroup string             `bson:"user_blood_group,omitempty" json:"user_blood_group,omitempty"`
	District   string             `bson:"user_district,omitempty" json:"user_district,omitempty"`
	Upazila    string             `bson:"user_upazila,omitempty" json:"user_upazila,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

func (u *User) Active() bool { return u.Status == UserStatusActive }

// UserProfile holds the fields a user may edit on their own record.
type UserProfile struct {
	Name       string `json:"user_name"`
	Avatar     string `json:"user_avatar"`
	BloodGroup string `json:"user_blood_group"`
	District   string `json:"user_district"`
	Upazila    string `json:"user_upazila"`
}

// SetFields returns the non-empty profile fields keyed by store name.
func (p UserProfile) SetFields() map[string]any {
	set := map[string]any{}
	if p.Name != "" {
		set["user_name"] = p.Name
	}
	if p.Avatar != "" {
		set["user_avatar"] = p.Avatar
	}
	if p.BloodGroup != "" {
		set["user_blood_group"] = p.BloodGroup
	}
	if p.District != "" {
		set["user_district"] = p.District
	}
	if p.Upazila != "" {
		set["user_upazila"] = p.Upazila
	}
	return set
}

// DonorSearch filters the public donor search. Empty fields are ignored.
type DonorSearch struct {
	BloodGroup string `form:"blood_group"`
	District   string `form:"district"`
	Upazila    string `form:"upazila"`
}

// Registration is the self-registration payload. Role and status are not
// part of it; the directory assigns them.
type Registration struct {
	Email      string `json:"user_email" binding:"required,email"`
	Name       string `json:"user_name"`
	Avatar     string `json:"user_avatar"`
	BloodGroup string `json:"user_blood_group"`
	District   string `json:"user_district"`
	Upazila    string `json:"user_upazila"`
}
