package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// fakeMagic marks FakeEncryptor output.
var fakeMagic = []byte("sheetsync-fake-encryption\n")

// FakeEncryptor needs no keys: it prefixes a marker on Encrypt and strips
// it on Decrypt. Selected with encryption type "fake" for tests and
// throwaway setups.
type FakeEncryptor struct {
	configured bool
}

var _ Encryptor = (*FakeEncryptor)(nil)

// NewFakeEncryptor returns a FakeEncryptor that reports itself configured.
func NewFakeEncryptor() *FakeEncryptor {
	return &FakeEncryptor{configured: true}
}

func (e *FakeEncryptor) Setup(string) error {
	e.configured = true
	return nil
}

func (e *FakeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(fakeMagic); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *FakeEncryptor) Unlock(string) (Decrypter, error) {
	return fakeDecrypter{}, nil
}

func (e *FakeEncryptor) IsConfigured() bool {
	return e.configured
}

type fakeDecrypter struct{}

func (fakeDecrypter) Decrypt(r io.Reader, w io.Writer) error {
	head := make([]byte, len(fakeMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(head, fakeMagic) {
		return errors.New("input was not produced by the fake encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
