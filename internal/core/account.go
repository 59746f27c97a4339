package core

import (
	"time"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeMicrosoft AccountType = "microsoft"
	AccountTypeOffline   AccountType = "offline"
)

// expiryMargin renews access tokens this long before they actually lapse,
// so a token never expires mid-launch.
const expiryMargin = 5 * time.Minute

// Account represents one launcher identity. Token fields are plaintext in
// memory; the store encrypts them on the way to disk.
type Account struct {
	Type         AccountType `json:"type"`
	Username     string      `json:"username"`
	UUID         string      `json:"uuid,omitempty"`         // microsoft only
	AccessToken  string      `json:"accessToken,omitempty"`  // microsoft only
	RefreshToken string      `json:"refreshToken,omitempty"` // microsoft only
	ExpiresAt    int64       `json:"expiresAt,omitempty"`    // epoch millis, microsoft only
	OwnsGame     bool        `json:"ownsGame,omitempty"`     // microsoft only
	AddedAt      int64       `json:"addedAt,omitempty"`      // epoch millis
	LastUsed     int64       `json:"lastUsed,omitempty"`     // epoch millis
}

// Identifier returns the stable id used for dedup and selection: the uuid
// for microsoft accounts, the username for offline accounts.
func (a *Account) Identifier() string {
	if a.Type == AccountTypeMicrosoft {
		return a.UUID
	}
	return a.Username
}

// Matches reports whether other refers to the same identity. Offline
// accounts compare by username and type, so an offline "Steve" never
// collides with a microsoft account that happens to share the name.
func (a *Account) Matches(other *Account) bool {
	if a.Type == AccountTypeMicrosoft {
		return other.Type == AccountTypeMicrosoft && a.UUID == other.UUID
	}
	return other.Type == AccountTypeOffline && a.Username == other.Username
}

// TokenExpired reports whether an access token expiring at the given
// epoch-millisecond instant needs renewal, with the proactive margin.
func TokenExpired(expiresAt int64) bool {
	return time.Now().UnixMilli() >= expiresAt-expiryMargin.Milliseconds()
}

// TokenExpired reports whether the account's access token needs renewal.
// Offline accounts never expire.
func (a *Account) TokenExpired() bool {
	if a.Type == AccountTypeOffline {
		return false
	}
	return TokenExpired(a.ExpiresAt)
}
