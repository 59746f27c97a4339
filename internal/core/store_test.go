package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DreamingNice/Voxel-Launcher/internal/secret"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	return NewStore(path, secret.New("test-key")), path
}

func TestAddOfflineSelectsFirst(t *testing.T) {
	store, _ := newTestStore(t)

	doc, err := store.AddOffline("Steve")
	if err != nil {
		t.Fatalf("AddOffline failed: %v", err)
	}
	if doc.SelectedAccount != "Steve" {
		t.Errorf("Expected Steve selected, got %q", doc.SelectedAccount)
	}

	acc, err := store.Selected()
	if err != nil {
		t.Fatalf("Selected failed: %v", err)
	}
	if acc == nil {
		t.Fatal("Expected a selected account")
	}
	if acc.Username != "Steve" || acc.Type != AccountTypeOffline {
		t.Errorf("Got %s/%s, want Steve/offline", acc.Username, acc.Type)
	}
}

func TestAddOfflineValidation(t *testing.T) {
	store, _ := newTestStore(t)

	for _, username := range []string{"", "   "} {
		if _, err := store.AddOffline(username); !errors.Is(err, ErrEmptyUsername) {
			t.Errorf("AddOffline(%q): got %v, want ErrEmptyUsername", username, err)
		}
	}

	if _, err := store.AddOffline("a_name_over_16_chars"); !errors.Is(err, ErrUsernameTooLong) {
		t.Errorf("Got %v, want ErrUsernameTooLong", err)
	}

	// Surrounding whitespace is trimmed before storing
	doc, err := store.AddOffline("  Steve  ")
	if err != nil {
		t.Fatalf("AddOffline failed: %v", err)
	}
	if doc.Accounts[0].Username != "Steve" {
		t.Errorf("Got %q, want trimmed Steve", doc.Accounts[0].Username)
	}
}

func TestMicrosoftDedupByUUID(t *testing.T) {
	store, _ := newTestStore(t)

	first := Account{
		Username:     "Steve",
		UUID:         "U1",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().UnixMilli(),
	}
	doc, err := store.UpdateMicrosoft(first)
	if err != nil {
		t.Fatalf("UpdateMicrosoft failed: %v", err)
	}
	addedAt := doc.Accounts[0].AddedAt

	second := first
	second.AccessToken = "new-access"
	doc, err = store.UpdateMicrosoft(second)
	if err != nil {
		t.Fatalf("UpdateMicrosoft failed: %v", err)
	}

	if len(doc.Accounts) != 1 {
		t.Fatalf("Expected 1 account after re-add, got %d", len(doc.Accounts))
	}
	if doc.Accounts[0].AccessToken != "new-access" {
		t.Errorf("Got %q, want updated token", doc.Accounts[0].AccessToken)
	}
	if doc.Accounts[0].AddedAt != addedAt {
		t.Error("Expected addedAt preserved across update")
	}
}

func TestOfflineAndMicrosoftShareUsername(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.AddOffline("Steve"); err != nil {
		t.Fatal(err)
	}
	doc, err := store.UpdateMicrosoft(Account{Username: "Steve", UUID: "U1"})
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(doc.Accounts))
	}
}

func TestRemoveRepairsSelection(t *testing.T) {
	store, _ := newTestStore(t)

	store.AddOffline("First")
	store.AddOffline("Second")

	// First is selected; removing it transfers selection
	doc, err := store.Remove("First")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if doc.SelectedAccount != "Second" {
		t.Errorf("Expected selection to move to Second, got %q", doc.SelectedAccount)
	}

	// Removing the last account clears selection
	doc, err = store.Remove("Second")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if doc.SelectedAccount != "" {
		t.Errorf("Expected empty selection, got %q", doc.SelectedAccount)
	}
	acc, err := store.Selected()
	if err != nil {
		t.Fatal(err)
	}
	if acc != nil {
		t.Errorf("Expected no selected account, got %v", acc)
	}
}

func TestRemoveUnselectedKeepsSelection(t *testing.T) {
	store, _ := newTestStore(t)

	store.AddOffline("First")
	store.AddOffline("Second")

	doc, err := store.Remove("Second")
	if err != nil {
		t.Fatal(err)
	}
	if doc.SelectedAccount != "First" {
		t.Errorf("Expected First still selected, got %q", doc.SelectedAccount)
	}
}

func TestSelect(t *testing.T) {
	store, _ := newTestStore(t)

	store.AddOffline("First")
	store.AddOffline("Second")

	acc, err := store.Select("Second")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if acc.Username != "Second" {
		t.Errorf("Got %s, want Second", acc.Username)
	}
	if acc.LastUsed == 0 {
		t.Error("Expected lastUsed refreshed on select")
	}

	if _, err := store.Select("Missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Got %v, want ErrAccountNotFound", err)
	}
}

func TestTokensEncryptedAtRest(t *testing.T) {
	store, path := newTestStore(t)

	_, err := store.UpdateMicrosoft(Account{
		Username:     "Steve",
		UUID:         "U1",
		AccessToken:  "plain-access-token",
		RefreshToken: "plain-refresh-token",
	})
	if err != nil {
		t.Fatalf("UpdateMicrosoft failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read store file: %v", err)
	}
	if strings.Contains(string(raw), "plain-access-token") ||
		strings.Contains(string(raw), "plain-refresh-token") {
		t.Error("Store file contains plaintext tokens")
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Accounts[0].AccessToken != "plain-access-token" {
		t.Errorf("Got %q, want decrypted access token", doc.Accounts[0].AccessToken)
	}
	if doc.Accounts[0].RefreshToken != "plain-refresh-token" {
		t.Errorf("Got %q, want decrypted refresh token", doc.Accounts[0].RefreshToken)
	}
}

func TestSaveDoesNotMutateCaller(t *testing.T) {
	store, _ := newTestStore(t)

	doc := &StoreData{
		Accounts: []Account{{
			Type:        AccountTypeMicrosoft,
			Username:    "Steve",
			UUID:        "U1",
			AccessToken: "plain-access-token",
		}},
		SelectedAccount: "U1",
	}
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if doc.Accounts[0].AccessToken != "plain-access-token" {
		t.Error("Save mutated the caller's account data")
	}
}

func TestLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if len(doc.Accounts) != 0 || doc.SelectedAccount != "" {
		t.Errorf("Expected empty store, got %+v", doc)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	store, path := newTestStore(t)

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(); err == nil {
		t.Error("Expected error for corrupt store file")
	}
}

func TestUnrecoverableTokenCleared(t *testing.T) {
	store, path := newTestStore(t)

	blob := `{
  "accounts": [
    {"type": "microsoft", "username": "Steve", "uuid": "U1", "accessToken": "not-a-ciphertext"}
  ],
  "selectedAccount": "U1"
}`
	if err := os.WriteFile(path, []byte(blob), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Accounts[0].AccessToken != "" {
		t.Errorf("Expected unrecoverable token cleared, got %q", doc.Accounts[0].AccessToken)
	}
}
