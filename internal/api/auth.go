// Package api implements the Microsoft → Xbox Live → XSTS → Minecraft
// federation chain used for both login and refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/DreamingNice/Voxel-Launcher/internal/auth"
)

var (
	xboxUserAuthURL   = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL       = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcAuthURL         = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcProfileURL      = "https://api.minecraftservices.com/minecraft/profile"
	mcEntitlementsURL = "https://api.minecraftservices.com/entitlements/mcstore"
)

// XSTS denial codes a user can act on.
const (
	xerrNoXboxAccount = 2148916233
	xerrChildAccount  = 2148916238
)

// defaultExpiry applies when the token endpoint omits expires_in.
const defaultExpiry = time.Hour

// Client executes the federation chain. Each stage consumes the previous
// stage's token and makes one network call; the order is fixed because every
// token is scoped to the next authority.
type Client struct {
	httpClient *http.Client
	oauth      *oauth2.Config
	logger     *slog.Logger
}

// NewClient creates a federation client for the given MSA client id.
func NewClient(clientID string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // Silence default logging
	retryClient.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: retryClient.StandardClient(),
		oauth:      auth.NewOAuthConfig(clientID),
		logger:     slog.Default(),
	}
}

// AuthResult is the assembled outcome of a full chain run.
type AuthResult struct {
	AccessToken  string // Minecraft access token
	RefreshToken string // MSA refresh token
	Username     string
	UUID         string
	OwnsGame     bool
	ExpiresAt    int64 // epoch millis
}

type XboxAuthRequest struct {
	Properties   XboxAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

type XboxAuthProperties struct {
	AuthMethod string   `json:"AuthMethod,omitempty"`
	SiteName   string   `json:"SiteName,omitempty"`
	RpsTicket  string   `json:"RpsTicket,omitempty"`
	SandboxId  string   `json:"SandboxId,omitempty"`
	UserTokens []string `json:"UserTokens,omitempty"`
}

type XboxAuthResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

// xstsDenial is the body XSTS returns on a 401.
type xstsDenial struct {
	Identity string `json:"Identity"`
	XErr     int64  `json:"XErr"`
	Message  string `json:"Message"`
	Redirect string `json:"Redirect"`
}

type MinecraftAuthRequest struct {
	IdentityToken string `json:"identityToken"`
}

type MinecraftAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type MinecraftProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type entitlementsResponse struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

// Authenticate runs the full login chain from a fresh authorization code:
// token exchange, Xbox Live, XSTS, Minecraft login, profile, entitlement.
func (c *Client) Authenticate(ctx context.Context, code, verifier string) (*AuthResult, error) {
	tok, err := c.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	res, err := c.completeChain(ctx, tok)
	if err != nil {
		return nil, err
	}
	res.OwnsGame = c.CheckGameOwnership(ctx, res.AccessToken)
	c.logger.Info("authentication complete", "username", res.Username, "ownsGame", res.OwnsGame)
	return res, nil
}

// Refresh runs the chain from a stored refresh token: refresh grant, then
// Xbox Live through profile. Callers only need to know that a failed refresh
// means logging in again, so every failure collapses to ErrRefreshFailed;
// the cause is logged here.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	tok, err := c.refreshMSAToken(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("msa token refresh failed", "error", err)
		return nil, auth.ErrRefreshFailed
	}
	res, err := c.completeChain(ctx, tok)
	if err != nil {
		c.logger.Warn("federation chain failed during refresh", "error", err)
		return nil, auth.ErrRefreshFailed
	}
	return res, nil
}

// completeChain runs the shared stages: Xbox Live, XSTS, Minecraft login,
// profile fetch.
func (c *Client) completeChain(ctx context.Context, tok *oauth2.Token) (*AuthResult, error) {
	xbl, err := c.AuthenticateXbox(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(xbl.DisplayClaims.XUI) == 0 {
		return nil, &auth.ExchangeError{Stage: "xbox", Message: "response carried no user hash"}
	}
	uhs := xbl.DisplayClaims.XUI[0].UHS

	xsts, err := c.AuthenticateXSTS(ctx, xbl.Token)
	if err != nil {
		return nil, err
	}

	mc, err := c.LoginWithXbox(ctx, uhs, xsts.Token)
	if err != nil {
		return nil, err
	}

	profile, err := c.FetchProfile(ctx, mc.AccessToken)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  mc.AccessToken,
		RefreshToken: tok.RefreshToken,
		Username:     profile.Name,
		UUID:         profile.ID,
		ExpiresAt:    expiryMillis(tok),
	}, nil
}

// ExchangeCode swaps the authorization code and PKCE verifier for a
// Microsoft access/refresh token pair.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, translateTokenError(err)
	}
	return tok, nil
}

// refreshMSAToken runs the refresh-token grant at the same endpoint.
func (c *Client) refreshMSAToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, translateTokenError(err)
	}
	return tok, nil
}

// oauthContext routes oauth2's internal HTTP calls through our retrying
// client.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// translateTokenError surfaces the provider's error description when the
// token endpoint answered at all.
func translateTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		msg := rerr.ErrorDescription
		if msg == "" {
			msg = rerr.ErrorCode
		}
		if msg == "" {
			msg = strings.TrimSpace(string(rerr.Body))
		}
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return &auth.ExchangeError{Stage: "microsoft", Status: status, Message: msg}
	}
	return fmt.Errorf("microsoft token endpoint: %w", err)
}

// AuthenticateXbox trades the Microsoft access token for an Xbox Live token
// and the user hash needed downstream.
func (c *Client) AuthenticateXbox(ctx context.Context, msaAccessToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			AuthMethod: "RPS",
			SiteName:   "user.auth.xboxlive.com",
			RpsTicket:  "d=" + msaAccessToken,
		},
		RelyingParty: "http://auth.xboxlive.com",
		TokenType:    "JWT",
	}
	return c.doXboxRequest(ctx, "xbox", xboxUserAuthURL, reqBody)
}

// AuthenticateXSTS authorizes the Xbox Live token against the Minecraft
// relying party. Denials carry an XErr code; the two codes a user can act on
// translate to dedicated errors, everything else is a generic failure.
func (c *Client) AuthenticateXSTS(ctx context.Context, xboxToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			SandboxId:  "RETAIL",
			UserTokens: []string{xboxToken},
		},
		RelyingParty: "rp://api.minecraftservices.com/",
		TokenType:    "JWT",
	}
	return c.doXboxRequest(ctx, "xsts", xstsAuthURL, reqBody)
}

func (c *Client) doXboxRequest(ctx context.Context, stage, endpoint string, body XboxAuthRequest) (*XboxAuthResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-xbl-contract-version", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s auth: %w", stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		if stage == "xsts" {
			if err := translateXErr(respBody); err != nil {
				return nil, err
			}
		}
		return nil, &auth.ExchangeError{
			Stage:   stage,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var result XboxAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// translateXErr maps XSTS denial codes to user-actionable errors. Returns
// nil when the body carries no known code.
func translateXErr(body []byte) error {
	var denial xstsDenial
	if err := json.Unmarshal(body, &denial); err != nil {
		return nil
	}
	switch denial.XErr {
	case xerrNoXboxAccount:
		return auth.ErrNoXboxAccount
	case xerrChildAccount:
		return auth.ErrChildAccount
	}
	return nil
}

// LoginWithXbox exchanges the XSTS token and user hash for a Minecraft
// access token.
func (c *Client) LoginWithXbox(ctx context.Context, uhs, xstsToken string) (*MinecraftAuthResponse, error) {
	reqBody := MinecraftAuthRequest{
		IdentityToken: fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mcAuthURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minecraft auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &auth.ExchangeError{
			Stage:   "minecraft",
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var result MinecraftAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchProfile returns the player profile. A 404 means the account has no
// Java Edition profile, i.e. does not own the game.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*MinecraftProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mcProfileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, auth.ErrGameNotOwned
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &auth.ExchangeError{Stage: "profile", Status: resp.StatusCode}
	}

	var result MinecraftProfile
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckGameOwnership consults the store entitlements. Ownership gates
// nothing security-critical, so any failure counts as "not owned" and the
// check never errors.
func (c *Client) CheckGameOwnership(ctx context.Context, accessToken string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mcEntitlementsURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("entitlement check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result entitlementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	for _, item := range result.Items {
		if item.Name == "product_minecraft" || item.Name == "game_minecraft" {
			return true
		}
	}
	return false
}

// expiryMillis converts the MSA token expiry to epoch millis, defaulting to
// one hour when the endpoint omitted expires_in.
func expiryMillis(tok *oauth2.Token) int64 {
	if tok.Expiry.IsZero() {
		return time.Now().Add(defaultExpiry).UnixMilli()
	}
	return tok.Expiry.UnixMilli()
}
