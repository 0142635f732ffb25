package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrEmptySecret = errors.New("signature: secret must not be empty")

// Signer computes and verifies channel admission signatures. The secret is
// provisioned once at startup and is never exposed.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the hex encoded HMAC-SHA256 of "connectionID:channel" with
// ":channelData" appended when channelData is not empty.
func (s *Signer) Sign(connectionID, channel, channelData string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(Message(connectionID, channel, channelData)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(channel, connectionID, channelData, provided string) bool {
	expected := s.Sign(connectionID, channel, channelData)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// Message builds the canonical string that is signed.
func Message(connectionID, channel, channelData string) string {
	msg := connectionID + ":" + channel
	if channelData != "" {
		msg += ":" + channelData
	}
	return msg
}
