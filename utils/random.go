package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRecordID returns a 32-character hex identifier for store rows.
func NewRecordID() string {
	byt := make([]byte, 16)

	// crypto/rand.Read does not fail on supported platforms.
	if _, err := rand.Read(byt); err != nil {
		panic(err)
	}

	return hex.EncodeToString(byt)
}
