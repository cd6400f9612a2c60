package testutil

import (
	"rufas/internal/encryption"
	"rufas/internal/rufas"
)

// NewTestEncryptor creates the deterministic header-prefix encryptor.
func NewTestEncryptor() rufas.Encryptor {
	return encryption.NewTestEncryptor()
}
