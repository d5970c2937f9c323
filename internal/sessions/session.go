package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is a persisted refresh session. Only a digest of the refresh token
// is stored.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Digest returns the key a refresh token is stored under.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
