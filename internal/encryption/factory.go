package encryption

import (
	"errors"
	"fmt"
	"path/filepath"

	"sheetsync/internal/config"
)

// NewEncryptorFromConfig picks the encryptor for exports and encrypted
// print documents. An empty type means age. Key paths are optional, but a
// half-configured or colliding pair is rejected so keys init cannot
// overwrite the public key with the sealed identity.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		pub, priv := cfg.PublicKeyPath, cfg.PrivateKeyPath
		if (pub == "") != (priv == "") {
			return nil, errors.New("encryption: public_key_path and private_key_path must be set together")
		}
		if pub != "" && filepath.Clean(pub) == filepath.Clean(priv) {
			return nil, fmt.Errorf("encryption: public and private key share the path %q", pub)
		}
		return NewAgeEncryptor(cfg), nil
	case "fake":
		return NewFakeEncryptor(), nil
	}
	return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
}
