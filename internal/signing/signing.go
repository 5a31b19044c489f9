// Package signing produces and checks OpenPGP detached signatures for
// rendered reports.
package signing

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// SignatureExt is appended to a report path to name its signature file.
const SignatureExt = ".asc"

// ErrNoPrivateKey is returned when a keyring holds no usable signing key.
var ErrNoPrivateKey = errors.New("no private key in keyring")

// Signer signs reports with a single OpenPGP entity.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner wraps an entity that carries a decrypted private key.
func NewSigner(e *openpgp.Entity) (*Signer, error) {
	if e == nil || e.PrivateKey == nil {
		return nil, ErrNoPrivateKey
	}
	if e.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key %s is encrypted", fingerprint(e))
	}
	return &Signer{entity: e}, nil
}

// LoadSigner reads an armored or binary secret keyring from path and
// returns a Signer for its first private key, decrypting it with
// passphrase when needed.
func LoadSigner(path string, passphrase []byte) (*Signer, error) {
	entities, err := ReadKeyRing(path)
	if err != nil {
		return nil, err
	}

	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			if len(passphrase) == 0 {
				return nil, fmt.Errorf("private key %s is encrypted and no passphrase was given", fingerprint(e))
			}
			if err := e.DecryptPrivateKeys(passphrase); err != nil {
				return nil, fmt.Errorf("decrypt private key %s: %w", fingerprint(e), err)
			}
		}
		return NewSigner(e)
	}
	return nil, ErrNoPrivateKey
}

// ReadKeyRing reads an armored keyring, falling back to the binary encoding.
func ReadKeyRing(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path) // #nosec G304 -- key path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("reset key file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, errors.New("no keys found in file")
	}
	return entities, nil
}

// Fingerprint returns the signer's primary key fingerprint in hex.
func (s *Signer) Fingerprint() string {
	return fingerprint(s.entity)
}

// Sign writes an armored detached signature of message to w.
func (s *Signer) Sign(w io.Writer, message io.Reader) error {
	if err := openpgp.ArmoredDetachSign(w, s.entity, message, nil); err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return nil
}

// SignFile writes path+".asc" next to path and returns the signature path.
func (s *Signer) SignFile(path string) (string, error) {
	in, err := os.Open(path) // #nosec G304 -- report path is produced by this process
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = in.Close() }()

	sigPath := path + SignatureExt
	out, err := os.Create(sigPath)
	if err != nil {
		return "", fmt.Errorf("create signature file: %w", err)
	}
	if err := s.Sign(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(sigPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close signature file: %w", err)
	}
	return sigPath, nil
}

// Verify checks an armored detached signature against keyring and returns
// the signing entity.
func Verify(keyring openpgp.EntityList, message, signature io.Reader) (*openpgp.Entity, error) {
	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, message, signature, nil)
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	return signer, nil
}

func fingerprint(e *openpgp.Entity) string {
	if e == nil || e.PrimaryKey == nil {
		return ""
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
