// Package encryption protects exported collections and published documents
// with age. Exports can contain phone numbers and addresses, so they are
// encrypted to a key pair whose private half is itself sealed with a
// passphrase.
package encryption

import "io"

// Encryptor encrypts data to the configured recipient.
type Encryptor interface {
	// Setup creates the key pair, sealing the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key for decryption.
	Unlock(passphrase string) (Decrypter, error)

	// IsConfigured reports whether Setup has been run.
	IsConfigured() bool
}

// Decrypter decrypts data produced by the matching Encryptor.
type Decrypter interface {
	Decrypt(r io.Reader, w io.Writer) error
}
