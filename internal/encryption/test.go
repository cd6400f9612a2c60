package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"rufas/internal/rufas"
)

// TestExtension is appended to export names written through TestEncryptor.
const TestExtension = ".enc"

// testMagic opens every document sealed by TestEncryptor.
var testMagic = []byte("RUFASENC")

// testMask is XORed over the body so sealed exports never contain the
// plaintext document.
const testMask = 0x5a

// ErrWrongPassphrase is returned by TestEncryptor.Unlock when the
// passphrase differs from the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor seals exports without real cryptography: a magic header
// followed by the masked document. Setup records a passphrase that Unlock
// then requires; before Setup any passphrase unlocks.
type TestEncryptor struct {
	passphrase string
}

var _ rufas.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(testMagic); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := maskCopy(bw, r); err != nil {
		return err
	}
	return bw.Flush()
}

func (e *TestEncryptor) Unlock(passphrase string) (rufas.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

// IsConfigured is always true; there are no keys to create.
func (e *TestEncryptor) IsConfigured() bool {
	return true
}

func (e *TestEncryptor) Extension() string {
	return TestExtension
}

// TestDecryptionContext opens documents sealed by TestEncryptor.
type TestDecryptionContext struct{}

var _ rufas.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, testMagic) {
		return fmt.Errorf("not a sealed export")
	}
	bw := bufio.NewWriter(w)
	if err := maskCopy(bw, r); err != nil {
		return err
	}
	return bw.Flush()
}

func maskCopy(w io.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := range buf[:n] {
				buf[i] ^= testMask
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing body: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
	}
}
