package rufas

import "io"

// Encryptor handles optional encryption of rendered export documents.
// Encryption uses the public key only; no user intervention is required.
// Decryption requires a passphrase to unlock the private key, producing a
// DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `rufas keys init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext for the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the encryptor has the keys it needs.
	IsConfigured() bool

	// Extension is appended to the names of encrypted export documents.
	Extension() string
}

// DecryptionContext holds an unlocked private key in memory. The unlocked key
// is never written to disk.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
