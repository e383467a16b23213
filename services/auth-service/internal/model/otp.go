package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OTP represents a one-time passcode issued to an email after a password check.
type OTP struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Code      string        `bson:"code"`
	ExpiresAt time.Time     `bson:"expires_at"`
	Used      bool          `bson:"used"`
	Resend    bool          `bson:"resend"`
	CreatedAt time.Time     `bson:"created_at"`
}

// Expired reports whether the passcode can no longer be verified at now.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
