package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a storefront account together with its credential state.
type User struct {
	ID                   bson.ObjectID       `bson:"_id,omitempty"`
	Name                 string              `bson:"name"`
	Email                string              `bson:"email"`
	Number               string              `bson:"number"`
	Phone                string              `bson:"phone,omitempty"`
	PasswordHash         string              `bson:"password_hash"`
	Role                 Role                `bson:"role"`
	IsActive             bool                `bson:"is_active"`
	IsVerified           bool                `bson:"is_verified"`
	RefreshTokens        []RefreshTokenEntry `bson:"refresh_tokens"`
	ResetPasswordToken   *string             `bson:"reset_password_token,omitempty"`
	ResetPasswordExpires *time.Time          `bson:"reset_password_expires,omitempty"`
	VerificationToken    *string             `bson:"verification_token,omitempty"`
	LastLogin            *time.Time          `bson:"last_login,omitempty"`
	LastSeen             *time.Time          `bson:"last_seen,omitempty"`
	CreatedAt            time.Time           `bson:"created_at"`
	UpdatedAt            time.Time           `bson:"updated_at"`
}

// ContactNumber returns the phone if set, otherwise the registered number.
func (u *User) ContactNumber() string {
	if u.Phone != "" {
		return u.Phone
	}
	return u.Number
}

// HasRefreshToken reports whether token is one of the user's active refresh tokens.
func (u *User) HasRefreshToken(token string) bool {
	for _, entry := range u.RefreshTokens {
		if entry.Token == token {
			return true
		}
	}
	return false
}
