package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultAcquireTimeout bounds how long the login window may sit open before
// the attempt settles as timed out.
const DefaultAcquireTimeout = 5 * time.Minute

// Surface is an embedded browser window supplied by the shell. It must be an
// isolated, non-privileged browsing context. Event handlers may fire from
// any goroutine and any number of times; the acquirer tolerates both.
type Surface interface {
	// Load points the surface at url and shows it.
	Load(url string) error
	// OnNavigate registers fn for every navigation and redirect, carrying
	// the target URL.
	OnNavigate(fn func(url string))
	// OnLoadFailed registers fn for failed loads, carrying the URL that
	// failed. The desktop redirect target is not a real page, so the
	// terminal redirect often arrives through this event.
	OnLoadFailed(fn func(url string))
	// OnClosed registers fn for the user closing the window.
	OnClosed(fn func())
	// Close dismisses the surface. Must be safe to call repeatedly and
	// after the user already closed the window.
	Close()
}

// CodeResult is a successful interactive acquisition: the authorization code
// and the PKCE verifier that must accompany it to the token endpoint.
type CodeResult struct {
	Code     string
	Verifier string
}

// Acquirer runs one interactive Microsoft login through a Surface. At most
// one acquisition runs per process; concurrent calls fail immediately with
// ErrAuthInProgress.
type Acquirer struct {
	oauth      *oauth2.Config
	newSurface func() (Surface, error)
	timeout    time.Duration
	inFlight   atomic.Bool
}

// NewAcquirer creates an acquirer. newSurface is called once per login to
// open a fresh browser window.
func NewAcquirer(clientID string, newSurface func() (Surface, error)) *Acquirer {
	return &Acquirer{
		oauth:      NewOAuthConfig(clientID),
		newSurface: newSurface,
		timeout:    DefaultAcquireTimeout,
	}
}

type settled struct {
	code string
	err  error
}

// Acquire opens the login window and waits for the OAuth redirect. The
// attempt settles exactly once: the first observed navigation reaching the
// redirect target wins, whether it carries a code or a provider error;
// closing the window cancels; ctx and the timeout settle deterministically.
// Every later event is a no-op, and the in-flight guard clears on every exit
// path so a new attempt is always possible afterwards.
func (a *Acquirer) Acquire(ctx context.Context) (*CodeResult, error) {
	if !a.inFlight.CompareAndSwap(false, true) {
		return nil, ErrAuthInProgress
	}
	defer a.inFlight.Store(false)

	pkce := GeneratePKCE()
	state := uuid.NewString()
	authURL := a.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(pkce.Verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)

	surface, err := a.newSurface()
	if err != nil {
		return nil, err
	}

	outcome := make(chan settled, 1)
	var once sync.Once
	settle := func(code string, err error) {
		once.Do(func() { outcome <- settled{code: code, err: err} })
	}

	handleURL := func(raw string) {
		if !strings.HasPrefix(raw, a.oauth.RedirectURL) {
			return
		}
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		q := u.Query()
		switch {
		case q.Get("error") != "":
			settle("", &ProviderError{
				Reason:      q.Get("error"),
				Description: q.Get("error_description"),
			})
		case q.Get("code") != "":
			if q.Get("state") != state {
				settle("", ErrStateMismatch)
				return
			}
			settle(q.Get("code"), nil)
		}
	}

	surface.OnNavigate(handleURL)
	surface.OnLoadFailed(handleURL)
	surface.OnClosed(func() { settle("", ErrAuthCancelled) })

	if err := surface.Load(authURL); err != nil {
		surface.Close()
		return nil, err
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case res := <-outcome:
		surface.Close()
		if res.err != nil {
			return nil, res.err
		}
		return &CodeResult{Code: res.code, Verifier: pkce.Verifier}, nil
	case <-ctx.Done():
		surface.Close()
		return nil, ctx.Err()
	case <-timer.C:
		surface.Close()
		return nil, ErrAuthTimeout
	}
}
