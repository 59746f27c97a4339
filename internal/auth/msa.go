package auth

import (
	"golang.org/x/oauth2"
)

// Microsoft consumer-identity endpoints and the fixed desktop redirect used
// by the official launcher client id. Variables so tests can point them at a
// local server.
var (
	AuthorizeURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"
	TokenURL     = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	RedirectURI  = "https://login.live.com/oauth20_desktop.srf"
)

// Scopes requested from the identity platform. XboxLive.signin feeds the
// console-identity hop, offline_access yields a refresh token.
var Scopes = []string{"XboxLive.signin", "offline_access"}

// NewOAuthConfig builds the oauth2 config shared by the interactive acquirer
// and the token exchanges.
func NewOAuthConfig(clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    oauth2.Endpoint{AuthURL: AuthorizeURL, TokenURL: TokenURL},
		RedirectURL: RedirectURI,
		Scopes:      Scopes,
	}
}
