package models

import "strings"

// Gender is the self-declared gender of a user.
type Gender string

const (
	GenderMale           Gender = "MALE"
	GenderFemale         Gender = "FEMALE"
	GenderOther          Gender = "OTHER"
	GenderPreferNotToSay Gender = "PREFER_NOT_TO_SAY"
)

// Valid reports whether g is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account. The follower, following and post counters are
// denormalized and may drift; see UserRepository.ReconcilePostCounts.
type User struct {
	Record
	Name               string `gorm:"size:50;not null" json:"name"`
	Surname            string `gorm:"size:50;not null" json:"surname"`
	Username           string `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email              string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password           string `gorm:"not null" json:"-"`
	ProfilePhoto       string `json:"profilePhoto"`
	Biography          string `gorm:"size:500" json:"biography"`
	Gender             Gender `gorm:"size:32;not null;default:PREFER_NOT_TO_SAY" json:"gender"`
	FollowersCount     int    `gorm:"not null;default:0" json:"followersCount"`
	FollowingCount     int    `gorm:"not null;default:0" json:"followingCount"`
	PostCount          int    `gorm:"not null;default:0" json:"postCount"`
	Role               string `gorm:"size:20;not null;default:user" json:"role"`
	TermsAndConditions bool   `gorm:"not null;default:false" json:"termsAndConditions"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
