// Package vault seals snapshots and deltas for storage. Payloads are
// compressed, then encrypted with XChaCha20-Poly1305 under a key derived per
// user and per message from a single master key.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/casework/deltatree"
)

const saltSize = 16

// ErrDecrypt is returned when a payload fails authentication, which covers a
// wrong user, a wrong master key and tampered bytes alike.
var ErrDecrypt = errors.New("vault: decryption failed")

// EncryptedSnapshot is a sealed base snapshot plus the metadata storage needs
// to index it without decrypting.
type EncryptedSnapshot struct {
	ParticipantID     string
	SaveFileName      string
	SaveFileTimestamp time.Time
	Data              []byte
}

// EncryptedDelta is a sealed delta plus its index metadata.
type EncryptedDelta struct {
	ParticipantID     string
	SaveFileTimestamp time.Time
	DeltaTimestamp    time.Time
	Data              []byte
}

// Vault encrypts and decrypts participant data.
type Vault struct {
	masterKey []byte
	codec     *Codec
}

// New creates a vault. masterKey must be 32 bytes.
func New(masterKey []byte, compression string) (*Vault, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault: master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	codec, err := NewCodec(compression)
	if err != nil {
		return nil, err
	}
	return &Vault{masterKey: append([]byte(nil), masterKey...), codec: codec}, nil
}

// Close releases codec resources.
func (v *Vault) Close() {
	v.codec.Close()
}

// EncryptSnapshot seals snapshot under a key derived for userID.
func (v *Vault) EncryptSnapshot(snapshot *deltatree.SaveFile, userID string) (*EncryptedSnapshot, error) {
	data, err := v.seal(snapshot, userID)
	if err != nil {
		return nil, err
	}
	return &EncryptedSnapshot{
		ParticipantID:     snapshot.ParticipantID,
		SaveFileName:      snapshot.SaveFileName,
		SaveFileTimestamp: snapshot.SaveFileTimestamp,
		Data:              data,
	}, nil
}

// DecryptSnapshot opens a sealed snapshot. A wrong key or tampered data
// fails with ErrDecrypt.
func (v *Vault) DecryptSnapshot(enc *EncryptedSnapshot, userID string) (*deltatree.SaveFile, error) {
	var snapshot deltatree.SaveFile
	if err := v.open(enc.Data, userID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// EncryptDelta seals delta under a key derived for userID.
func (v *Vault) EncryptDelta(delta *deltatree.DeltaFile, userID string) (*EncryptedDelta, error) {
	data, err := v.seal(delta, userID)
	if err != nil {
		return nil, err
	}
	return &EncryptedDelta{
		ParticipantID:     delta.ParticipantID,
		SaveFileTimestamp: delta.SaveFileTimestamp,
		DeltaTimestamp:    delta.DeltaTimestamp,
		Data:              data,
	}, nil
}

// DecryptDelta opens a sealed delta. A wrong key or tampered data fails
// with ErrDecrypt.
func (v *Vault) DecryptDelta(enc *EncryptedDelta, userID string) (*deltatree.DeltaFile, error) {
	var delta deltatree.DeltaFile
	if err := v.open(enc.Data, userID, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

// seal lays out salt | nonce | ciphertext.
func (v *Vault) seal(value any, userID string) ([]byte, error) {
	plaintext, err := v.codec.Marshal(value)
	if err != nil {
		return nil, err
	}

	out := make([]byte, saltSize+chacha20poly1305.NonceSizeX, saltSize+chacha20poly1305.NonceSizeX+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("failed to generate salt and nonce: %w", err)
	}
	salt, nonce := out[:saltSize], out[saltSize:]

	aead, err := v.aead(userID, salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, []byte(userID)), nil
}

func (v *Vault) open(data []byte, userID string, value any) error {
	if len(data) < saltSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return fmt.Errorf("%w: payload too short", ErrDecrypt)
	}
	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := data[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := v.aead(userID, salt)
	if err != nil {
		return err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return ErrDecrypt
	}
	return v.codec.Unmarshal(plaintext, value)
}

func (v *Vault) aead(userID string, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, v.masterKey, salt, []byte(userID)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return chacha20poly1305.NewX(key)
}
