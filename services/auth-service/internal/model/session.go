package model

import (
	"time"
)

// RefreshTokenEntry is one active session of a user. Entries are embedded in
// the user document so that push, pull and rotation are single-document updates.
type RefreshTokenEntry struct {
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"created_at"`
}
