package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/DreamingNice/Voxel-Launcher/internal/secret"
)

const maxOfflineUsername = 16

var (
	// ErrEmptyUsername rejects offline usernames that trim to nothing.
	ErrEmptyUsername = errors.New("username cannot be empty")
	// ErrUsernameTooLong rejects offline usernames over the Mojang limit.
	ErrUsernameTooLong = errors.New("username must be 16 characters or less")
	// ErrAccountNotFound is returned when an identifier matches no account.
	ErrAccountNotFound = errors.New("account not found")
)

// StoreData is the on-disk document. SelectedAccount holds the identifier of
// the active account, or "" when none is selected (older store files wrote
// null there, which decodes the same).
type StoreData struct {
	Accounts        []Account `json:"accounts"`
	SelectedAccount string    `json:"selectedAccount"`
}

// Store persists accounts to a single JSON file, encrypting microsoft tokens
// on the way out and decrypting them on the way in. Every operation re-reads
// the file; mutations are serialized under one lock so concurrent callers
// cannot drop each other's writes.
type Store struct {
	mu     sync.Mutex
	path   string
	cipher *secret.Cipher
	logger *slog.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, cipher *secret.Cipher) *Store {
	return &Store{path: path, cipher: cipher, logger: slog.Default()}
}

// Load reads the store from disk. A missing file is an empty store; a file
// that exists but cannot be read or parsed is an error, so callers can tell
// "no accounts yet" apart from "store corrupt".
func (s *Store) Load() (*StoreData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*StoreData, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &StoreData{Accounts: []Account{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account store: %w", err)
	}

	var doc StoreData
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse account store: %w", err)
	}
	if doc.Accounts == nil {
		doc.Accounts = []Account{}
	}

	for i := range doc.Accounts {
		acc := &doc.Accounts[i]
		if acc.Type != AccountTypeMicrosoft {
			continue
		}
		acc.AccessToken = s.decryptToken(acc.Username, "access", acc.AccessToken)
		acc.RefreshToken = s.decryptToken(acc.Username, "refresh", acc.RefreshToken)
	}
	return &doc, nil
}

// decryptToken recovers a stored token. An unrecoverable token is cleared so
// the account falls back to a fresh login instead of feeding garbage into
// the federation chain.
func (s *Store) decryptToken(username, kind, encrypted string) string {
	if encrypted == "" {
		return ""
	}
	plain, ok := s.cipher.Decrypt(encrypted)
	if !ok {
		s.logger.Warn("stored token unrecoverable, re-login required",
			"account", username, "token", kind)
		return ""
	}
	return plain
}

// Save writes the store to disk with microsoft tokens encrypted. The
// caller's copy keeps its plaintext tokens.
func (s *Store) Save(doc *StoreData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

func (s *Store) save(doc *StoreData) error {
	out := StoreData{
		Accounts:        make([]Account, len(doc.Accounts)),
		SelectedAccount: doc.SelectedAccount,
	}
	copy(out.Accounts, doc.Accounts)

	for i := range out.Accounts {
		acc := &out.Accounts[i]
		if acc.Type != AccountTypeMicrosoft {
			continue
		}
		if acc.AccessToken != "" {
			enc, err := s.cipher.Encrypt(acc.AccessToken)
			if err != nil {
				return fmt.Errorf("encrypt access token: %w", err)
			}
			acc.AccessToken = enc
		}
		if acc.RefreshToken != "" {
			enc, err := s.cipher.Encrypt(acc.RefreshToken)
			if err != nil {
				return fmt.Errorf("encrypt refresh token: %w", err)
			}
			acc.RefreshToken = enc
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Add inserts acc or, when an account with the same identifier already
// exists, replaces it in place keeping its addedAt stamp. The first account
// added to a store with no selection becomes selected.
func (s *Store) Add(acc Account) (*StoreData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(acc)
}

func (s *Store) add(acc Account) (*StoreData, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	acc.LastUsed = now

	replaced := false
	for i := range doc.Accounts {
		if doc.Accounts[i].Matches(&acc) {
			acc.AddedAt = doc.Accounts[i].AddedAt
			doc.Accounts[i] = acc
			replaced = true
			break
		}
	}
	if !replaced {
		acc.AddedAt = now
		doc.Accounts = append(doc.Accounts, acc)
	}

	if doc.SelectedAccount == "" {
		doc.SelectedAccount = acc.Identifier()
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Remove deletes the account with the given identifier. When the removed
// account was selected, selection moves to the first remaining account, or
// clears if the store is now empty.
func (s *Store) Remove(identifier string) (*StoreData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	kept := make([]Account, 0, len(doc.Accounts))
	for _, a := range doc.Accounts {
		if a.Identifier() != identifier {
			kept = append(kept, a)
		}
	}
	doc.Accounts = kept

	if doc.SelectedAccount == identifier {
		doc.SelectedAccount = ""
		if len(kept) > 0 {
			doc.SelectedAccount = kept[0].Identifier()
		}
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Select marks the account with the given identifier active and refreshes
// its lastUsed stamp.
func (s *Store) Select(identifier string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range doc.Accounts {
		if doc.Accounts[i].Identifier() != identifier {
			continue
		}
		doc.Accounts[i].LastUsed = time.Now().UnixMilli()
		doc.SelectedAccount = identifier
		if err := s.save(doc); err != nil {
			return nil, err
		}
		acc := doc.Accounts[i]
		return &acc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, identifier)
}

// Selected returns the active account, or nil when nothing is selected.
func (s *Store) Selected() (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if doc.SelectedAccount == "" {
		return nil, nil
	}
	for i := range doc.Accounts {
		if doc.Accounts[i].Identifier() == doc.SelectedAccount {
			acc := doc.Accounts[i]
			return &acc, nil
		}
	}
	return nil, nil
}

// All returns every stored account.
func (s *Store) All() ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

// AddOffline validates the username and stores an offline account with no
// token material.
func (s *Store) AddOffline(username string) (*StoreData, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, ErrEmptyUsername
	}
	if len(trimmed) > maxOfflineUsername {
		return nil, ErrUsernameTooLong
	}
	return s.Add(Account{Type: AccountTypeOffline, Username: trimmed})
}

// UpdateMicrosoft persists the outcome of a login or refresh.
func (s *Store) UpdateMicrosoft(acc Account) (*StoreData, error) {
	acc.Type = AccountTypeMicrosoft
	return s.Add(acc)
}
