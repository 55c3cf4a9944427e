package hashing

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// Calculate returns the hex encoded SHA-512 of data.
func Calculate(data []byte) string {
	h := sha512.Sum512(data)
	return hex.EncodeToString(h[:])
}

func CalculateSHA512(data string) string {
	return Calculate([]byte(data))
}

func CalculateSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Digest returns the 32 byte content digest under which a document is registered.
func Digest(content []byte) []byte {
	h := sha256.Sum256(content)
	return h[:]
}
