package encryption

import (
	"fmt"

	"rufas/internal/config"
	"rufas/internal/rufas"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) returns a nil Encryptor and exports stay plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (rufas.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
