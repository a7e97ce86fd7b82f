// Package securestore is the per-user encrypted key/value store that keeps a
// terminal usable while the remote ledger is unreachable.
//
// Every entry lives under "<userID>_<key>". The AES-256-GCM key is the SHA-256
// digest of userID, a random per-user salt and a version tag; the salt is kept
// in the clear under "<userID>_encryption_salt" so a 4-digit id alone never
// determines the key. Blobs are base64(nonce || ciphertext).
package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"goldledger/internal/localkv"

	"go.uber.org/zap"
)

const (
	saltKey    = "encryption_salt"
	versionTag = "goldledger-v1"
	saltSize   = 16
)

var ErrEmptyUserID = errors.New("user id is required")

type Recorder interface {
	IncDecryptFailure()
	IncSaltReset()
}

type Store struct {
	medium  localkv.Medium
	logger  *zap.Logger
	metrics Recorder
	random  io.Reader

	mu   sync.Mutex
	keys map[string]cipher.AEAD
}

func New(medium localkv.Medium, logger *zap.Logger, metrics Recorder) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		medium:  medium,
		logger:  logger,
		metrics: metrics,
		random:  rand.Reader,
		keys:    make(map[string]cipher.AEAD),
	}
}

func userKey(userID, key string) string {
	return userID + "_" + key
}

// aead returns the user's cipher. With create=false a missing salt yields
// (nil, nil) so a read never mints a salt that could not have sealed the data.
func (s *Store) aead(ctx context.Context, userID string, create bool) (cipher.AEAD, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gcm, ok := s.keys[userID]; ok {
		return gcm, nil
	}

	var salt []byte
	encoded, err := s.medium.Get(ctx, userKey(userID, saltKey))
	switch {
	case err == nil:
		salt, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(salt) != saltSize {
			// Nothing sealed under an unreadable salt can be opened again.
			if err := s.resetUser(ctx, userID, err); err != nil {
				return nil, err
			}
			if !create {
				return nil, nil
			}
			if salt, err = s.mintSalt(ctx, userID); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, localkv.ErrNotFound):
		if !create {
			return nil, nil
		}
		if salt, err = s.mintSalt(ctx, userID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load salt: %w", err)
	}

	material := make([]byte, 0, len(userID)+len(salt)+len(versionTag))
	material = append(material, userID...)
	material = append(material, salt...)
	material = append(material, versionTag...)
	digest := sha256.Sum256(material)

	block, err := aes.NewCipher(digest[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	s.keys[userID] = gcm
	return gcm, nil
}

func (s *Store) mintSalt(ctx context.Context, userID string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(s.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := s.medium.Set(ctx, userKey(userID, saltKey), base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("persist salt: %w", err)
	}
	return salt, nil
}

// resetUser drops the user's salt and every entry sealed under it.
func (s *Store) resetUser(ctx context.Context, userID string, cause error) error {
	keys, err := s.medium.Keys(ctx, userID+"_")
	if err != nil {
		return fmt.Errorf("list entries of user %s: %w", userID, err)
	}
	if err := s.medium.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("reset entries of user %s: %w", userID, err)
	}
	if s.metrics != nil {
		s.metrics.IncSaltReset()
	}
	s.logger.Warn("corrupt encryption salt, local data reset",
		zap.String("user_id", userID),
		zap.Int("dropped_entries", len(keys)),
		zap.Error(cause),
	)
	return nil
}

// Encrypt seals plaintext with a fresh nonce, so equal inputs never produce equal blobs.
func (s *Store) Encrypt(ctx context.Context, plaintext, userID string) (string, error) {
	gcm, err := s.aead(ctx, userID, true)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt fails soft: any decoding or authentication failure reports ok=false.
func (s *Store) Decrypt(ctx context.Context, blob, userID string) (string, bool) {
	gcm, err := s.aead(ctx, userID, false)
	if err != nil || gcm == nil {
		s.decryptFailed(userID, err)
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(raw) < gcm.NonceSize()+gcm.Overhead() {
		s.decryptFailed(userID, err)
		return "", false
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		s.decryptFailed(userID, err)
		return "", false
	}
	return string(plaintext), true
}

func (s *Store) decryptFailed(userID string, err error) {
	if s.metrics != nil {
		s.metrics.IncDecryptFailure()
	}
	s.logger.Warn("local entry could not be decrypted", zap.String("user_id", userID), zap.Error(err))
}

func (s *Store) SetItem(ctx context.Context, key string, value any, userID string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	blob, err := s.Encrypt(ctx, string(payload), userID)
	if err != nil {
		return err
	}
	return s.medium.Set(ctx, userKey(userID, key), blob)
}

// GetItem decodes the entry into dest and reports whether it was present.
// Entries that fail to decrypt or decode are deleted so the rest of the store keeps loading.
func (s *Store) GetItem(ctx context.Context, key, userID string, dest any) bool {
	if userID == "" {
		return false
	}
	blob, err := s.medium.Get(ctx, userKey(userID, key))
	if err != nil {
		if !errors.Is(err, localkv.ErrNotFound) {
			s.logger.Warn("local store read failed", zap.String("user_id", userID), zap.String("key", key), zap.Error(err))
		}
		return false
	}
	plaintext, ok := s.Decrypt(ctx, blob, userID)
	if ok {
		if err := json.Unmarshal([]byte(plaintext), dest); err == nil {
			return true
		}
	}
	if err := s.medium.Delete(ctx, userKey(userID, key)); err != nil {
		s.logger.Warn("failed to delete corrupted local entry", zap.String("user_id", userID), zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *Store) RemoveItem(ctx context.Context, key, userID string) error {
	return s.medium.Delete(ctx, userKey(userID, key))
}

// ClearUserData removes every entry of the user, salt included. Used on sign-out
// so nothing carries over to the next user of a shared terminal.
func (s *Store) ClearUserData(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	keys, err := s.medium.Keys(ctx, userID+"_")
	if err != nil {
		return err
	}
	s.forget(userID)
	return s.medium.Delete(ctx, keys...)
}

func (s *Store) ClearAllOfflineData(ctx context.Context) error {
	keys, err := s.medium.Keys(ctx, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = make(map[string]cipher.AEAD)
	s.mu.Unlock()
	return s.medium.Delete(ctx, keys...)
}

func (s *Store) forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, userID)
}
