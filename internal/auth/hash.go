// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// saltLen is the PBKDF2 salt length in bytes.
	saltLen = 32

	// hashLen is the derived key length in bytes.
	hashLen = 32

	// pbkdf2Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	pbkdf2Iterations = 100000

	// secretLen is the raw secret length in bytes before encoding.
	secretLen = 32
)

// newSecret generates a raw management secret, base64 encoded.
func newSecret() (string, error) {
	raw := make([]byte, secretLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// hashSecret derives the stored verification material for a secret:
// base64(salt || PBKDF2-HMAC-SHA256(secret, salt)).
func hashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, hashLen, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, derived...)), nil
}

// verifySecret re-derives the hash with the stored salt and compares in
// constant time. A malformed stored hash verifies as false.
func verifySecret(secret, storedHash string) bool {
	blob, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(blob) != saltLen+hashLen {
		return false
	}
	salt, want := blob[:saltLen], blob[saltLen:]
	derived := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, hashLen, sha256.New)
	return subtle.ConstantTimeCompare(derived, want) == 1
}

// verifyProvision compares the presented bootstrap secret in constant
// time.
func verifyProvision(presented, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
