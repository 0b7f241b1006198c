package models

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// SessionTokenLength is the fixed length of the hex-encoded session token.
const SessionTokenLength = 64

func NewRoundID() string {
	return uuid.New().String()
}

func NewBetID() string {
	return uuid.New().String()
}

// NewSessionToken returns 32 bytes of crypto/rand entropy, hex-encoded.
func NewSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
