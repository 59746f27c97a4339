// Package launcher is the surface the window shell consumes: account
// management plus the interactive login and token refresh flows.
package launcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/DreamingNice/Voxel-Launcher/internal/api"
	"github.com/DreamingNice/Voxel-Launcher/internal/auth"
	"github.com/DreamingNice/Voxel-Launcher/internal/config"
	"github.com/DreamingNice/Voxel-Launcher/internal/core"
	"github.com/DreamingNice/Voxel-Launcher/internal/secret"
)

// ErrNoAccountSelected means a flow needing an active account found none.
var ErrNoAccountSelected = errors.New("no account selected")

// authenticator runs the federation chain. Satisfied by *api.Client.
type authenticator interface {
	Authenticate(ctx context.Context, code, verifier string) (*api.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error)
}

// codeAcquirer produces an authorization code interactively. Satisfied by
// *auth.Acquirer.
type codeAcquirer interface {
	Acquire(ctx context.Context) (*auth.CodeResult, error)
}

// Service wires the account store, the federation client and the interactive
// acquirer together.
type Service struct {
	store    *core.Store
	chain    authenticator
	acquirer codeAcquirer
	logger   *slog.Logger
}

// New builds a Service from config. newSurface is supplied by the shell and
// must open an isolated embedded browser window per call.
func New(cfg *config.Config, newSurface func() (auth.Surface, error)) *Service {
	return &Service{
		store:    core.NewStore(cfg.AccountsPath(), secret.New(cfg.CredentialKey)),
		chain:    api.NewClient(cfg.MSAClientID),
		acquirer: auth.NewAcquirer(cfg.MSAClientID, newSurface),
		logger:   slog.Default(),
	}
}

// Login runs one interactive Microsoft login end to end and persists the
// result. The account becomes selected if nothing was selected before.
func (s *Service) Login(ctx context.Context) (*core.Account, error) {
	code, err := s.acquirer.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.chain.Authenticate(ctx, code.Code, code.Verifier)
	if err != nil {
		return nil, err
	}

	acc := accountFromResult(res)
	if _, err := s.store.UpdateMicrosoft(acc); err != nil {
		return nil, err
	}
	s.logger.Info("microsoft login complete", "username", acc.Username, "ownsGame", acc.OwnsGame)
	return &acc, nil
}

// EnsureFresh returns the selected account, refreshing its access token
// first when it is inside the renewal margin. Offline accounts pass through
// untouched. A failed refresh surfaces as the uniform re-login error.
func (s *Service) EnsureFresh(ctx context.Context) (*core.Account, error) {
	acc, err := s.store.Selected()
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNoAccountSelected
	}
	if acc.Type == core.AccountTypeOffline || !acc.TokenExpired() {
		return acc, nil
	}

	res, err := s.chain.Refresh(ctx, acc.RefreshToken)
	if err != nil {
		return nil, err
	}

	updated := accountFromResult(res)
	updated.OwnsGame = acc.OwnsGame // refresh does not re-check entitlements
	if _, err := s.store.UpdateMicrosoft(updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// AddOfflineAccount validates and stores an offline account, returning the
// stored record.
func (s *Service) AddOfflineAccount(username string) (*core.Account, error) {
	doc, err := s.store.AddOffline(username)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(username)
	for i := range doc.Accounts {
		if doc.Accounts[i].Type == core.AccountTypeOffline && doc.Accounts[i].Username == trimmed {
			acc := doc.Accounts[i]
			return &acc, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

// SelectAccount marks an account active.
func (s *Service) SelectAccount(identifier string) (*core.Account, error) {
	return s.store.Select(identifier)
}

// RemoveAccount deletes an account, repairing selection if needed.
func (s *Service) RemoveAccount(identifier string) error {
	_, err := s.store.Remove(identifier)
	return err
}

// Accounts lists every stored account.
func (s *Service) Accounts() ([]core.Account, error) {
	return s.store.All()
}

// SelectedAccount returns the active account, or nil when none is selected.
func (s *Service) SelectedAccount() (*core.Account, error) {
	return s.store.Selected()
}

func accountFromResult(res *api.AuthResult) core.Account {
	return core.Account{
		Type:         core.AccountTypeMicrosoft,
		Username:     res.Username,
		UUID:         res.UUID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		OwnsGame:     res.OwnsGame,
	}
}
