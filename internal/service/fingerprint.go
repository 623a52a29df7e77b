package service

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter derives a stable, keyed digest of a password so repeated
// submissions can be recognised without storing the password.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter keyed with key (1 to 64 bytes).
func NewFingerprinter(key []byte) (*Fingerprinter, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("fingerprint key must be 1 to %d bytes, got %d", blake2b.Size, len(key))
	}
	return &Fingerprinter{key: append([]byte(nil), key...)}, nil
}

// Sum returns the hex-encoded keyed BLAKE2b-256 digest of password.
func (f *Fingerprinter) Sum(password string) string {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// The key length was checked in NewFingerprinter.
		panic(err)
	}
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}
