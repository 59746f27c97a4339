package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the login and refresh flows. Messages are shown to the
// user as-is, so they say what to do next, not where they came from.
var (
	// ErrAuthInProgress rejects a second interactive login while one is open.
	ErrAuthInProgress = errors.New("authentication already in progress")
	// ErrAuthCancelled means the login window was closed before a code or
	// error arrived.
	ErrAuthCancelled = errors.New("authentication window closed")
	// ErrAuthTimeout means the login window sat open past the deadline.
	ErrAuthTimeout = errors.New("authentication timed out")
	// ErrStateMismatch means the redirect carried a state we never issued.
	ErrStateMismatch = errors.New("authorization response state mismatch")
	// ErrNoXboxAccount translates XSTS denial 2148916233.
	ErrNoXboxAccount = errors.New("this Microsoft account has no Xbox account; create one at xbox.com first")
	// ErrChildAccount translates XSTS denial 2148916238.
	ErrChildAccount = errors.New("this is a child account; an adult must add it to a Family at xbox.com")
	// ErrGameNotOwned means the profile endpoint answered 404.
	ErrGameNotOwned = errors.New("this Microsoft account does not own Minecraft Java Edition")
	// ErrRefreshFailed is the uniform outcome of any failed refresh.
	ErrRefreshFailed = errors.New("token refresh failed, please log in again")
)

// ProviderError carries the error parameter Microsoft attached to the OAuth
// redirect, e.g. "access_denied".
type ProviderError struct {
	Reason      string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authentication rejected: %s (%s)", e.Reason, e.Description)
	}
	return "authentication rejected: " + e.Reason
}

// ExchangeError is a failed call to one of the federation endpoints.
type ExchangeError struct {
	Stage   string // "microsoft", "xbox", "xsts", "minecraft", "profile"
	Status  int    // HTTP status, 0 when the response never arrived intact
	Message string
}

func (e *ExchangeError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s auth failed (%d): %s", e.Stage, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s auth failed (%d)", e.Stage, e.Status)
	default:
		return fmt.Sprintf("%s auth failed: %s", e.Stage, e.Message)
	}
}
