package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/jrsteele09/auction-storefront/sessions"
	"github.com/jrsteele09/auction-storefront/token"
	"github.com/jrsteele09/auction-storefront/users"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/oauth2"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultLogoutTimeout  = 5 * time.Second
)

var _ oauth2.TokenSource = (*Controller)(nil)

// Deps holds the collaborators the Controller is built from
type Deps struct {
	Store  sessions.Store // Durable session record
	Tokens *token.Service // Credential exchange and refresh
	Routes routes.Routes  // Backend endpoints
}

// Controller is the single source of truth for who is logged in. It owns the
// session record; the store is only written through it.
type Controller struct {
	lock    sync.RWMutex
	state   State
	session *sessions.Session

	store         sessions.Store
	tokens        *token.Service
	routes        routes.Routes
	httpClient    *http.Client
	validator     *users.Validator
	logger        zerolog.Logger
	nowTime       func() time.Time
	logoutTimeout time.Duration
	background    conc.WaitGroup
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithHTTPClient sets the client used for profile, password and registration calls
func WithHTTPClient(hc *http.Client) ControllerOption {
	return func(c *Controller) {
		c.httpClient = hc
	}
}

// WithLogoutTimeout bounds the background logout notification
func WithLogoutTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.logoutTimeout = d
	}
}

// NewController builds a Controller and hydrates it from the store. A stored
// record yields StateAuthenticated without contacting the backend, anything
// else yields StateAnonymous.
func NewController(ctx context.Context, deps Deps, options ...ControllerOption) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewController] Store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewController] Tokens is required")
	}

	c := &Controller{
		state:         StateAnonymous,
		store:         deps.Store,
		tokens:        deps.Tokens,
		routes:        deps.Routes,
		httpClient:    &http.Client{Timeout: defaultRequestTimeout},
		validator:     users.NewValidator(),
		logger:        zerolog.Nop(),
		nowTime:       time.Now,
		logoutTimeout: defaultLogoutTimeout,
	}
	for _, opt := range options {
		opt(c)
	}

	if s, ok := c.store.Load(ctx); ok {
		c.session = &s
		c.state = StateAuthenticated
		c.logger.Debug().Str("username", s.Username).Msg("Session restored")
	}
	return c, nil
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// Current returns a copy of the active session
func (c *Controller) Current() (sessions.Session, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.session == nil {
		return sessions.Session{}, false
	}
	return *c.session, true
}

// AccessToken returns the bearer token of the active session, read at call time
func (c *Controller) AccessToken() (string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.session == nil {
		return "", noSession()
	}
	return c.session.Access, nil
}

// Token implements oauth2.TokenSource over the active session
func (c *Controller) Token() (*oauth2.Token, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.session == nil {
		return nil, noSession()
	}
	return c.session.Pair().OAuth2Token(), nil
}

// Now is the controller's clock
func (c *Controller) Now() time.Time {
	return c.nowTime()
}

// Login exchanges the credentials, fetches the profile with the new access
// token and persists the merged record. Nothing is persisted unless both calls
// succeed. Concurrent logins are not coalesced: the last one to finish wins.
func (c *Controller) Login(ctx context.Context, username, password string) (sessions.Session, error) {
	pair, err := c.tokens.ExchangeCredentials(ctx, username, password)
	if err != nil {
		c.logger.Info().Err(err).Str("username", username).Msg("Login rejected")
		return sessions.Session{}, errors.Wrapf(err, "[Login]")
	}

	profile, err := c.fetchProfile(ctx, pair.Access)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", username).Msg("Profile fetch failed, discarding tokens")
		return sessions.Session{}, errors.Wrapf(fmt.Errorf("%w: %w", errors.ErrProfileFetchFailed, asAuthFailure(err)), "[Login]")
	}

	s := sessions.New(*pair, profile)

	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.store.Save(ctx, s); err != nil {
		return sessions.Session{}, errors.Wrapf(err, "[Login]")
	}
	c.session = &s
	c.state = StateAuthenticated
	c.logger.Info().Str("username", s.Username).Int("user_id", s.ID).Msg("Logged in")
	return s, nil
}

// Logout ends the session locally, then tells the backend in the background.
// The notification can fail or time out without affecting the result; Wait
// joins it.
func (c *Controller) Logout(ctx context.Context) error {
	c.lock.Lock()
	prior := c.session
	c.session = nil
	c.state = StateAnonymous
	err := c.store.Clear(ctx)
	c.lock.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session record")
	}
	if prior != nil {
		c.logger.Info().Str("username", prior.Username).Msg("Logged out")
		pair := prior.Pair()
		c.background.Go(func() {
			c.notifyLogout(context.WithoutCancel(ctx), pair)
		})
	}
	return errors.Wrapf(err, "[Logout]")
}

func (c *Controller) notifyLogout(ctx context.Context, pair token.Pair) {
	ctx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
	defer cancel()

	o := c.call(ctx, http.MethodPost, c.routes.Logout(), pair.Access, map[string]string{"refresh": pair.Refresh})
	if !o.OK() {
		c.logger.Warn().Err(o.Err()).Object("outcome", o).Msg("Backend logout failed, session already cleared locally")
	}
}

// Wait blocks until background logout notifications have finished
func (c *Controller) Wait() {
	c.background.Wait()
}

// Expire destroys the session when accessToken is still the active one and
// moves to StateLoggedOut. It reports whether this call made the transition,
// so concurrent rejections of the same token clear the store exactly once and
// a late rejection of an old token leaves a newer session alone.
func (c *Controller) Expire(accessToken, reason string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil || c.session.Access != accessToken {
		return false
	}
	username := c.session.Username
	c.session = nil
	c.state = StateLoggedOut
	if err := c.store.Clear(context.Background()); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session record")
	}
	c.logger.Info().Str("username", username).Str("reason", reason).Msg("Session expired")
	return true
}

// RefreshSession renews the access token with the stored refresh token. A
// rejected refresh token destroys the session; a transport failure keeps it.
func (c *Controller) RefreshSession(ctx context.Context) (sessions.Session, error) {
	c.lock.Lock()
	if c.session == nil {
		c.lock.Unlock()
		return sessions.Session{}, errors.Wrapf(noSession(), "[RefreshSession]")
	}
	access, refresh := c.session.Access, c.session.Refresh
	c.state = StateExpiring
	c.lock.Unlock()

	pair, err := c.tokens.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRefreshToken) {
			c.Expire(access, "refresh rejected")
		} else {
			c.restoreAuthenticated()
		}
		return sessions.Session{}, errors.Wrapf(err, "[RefreshSession]")
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session == nil || c.session.Refresh != refresh {
		return sessions.Session{}, errors.Wrapf(noSession(), "[RefreshSession] session ended during refresh")
	}
	updated := *c.session
	updated.Access = pair.Access
	if pair.Refresh != "" {
		updated.Refresh = pair.Refresh
	}
	if err := c.store.Save(ctx, updated); err != nil {
		c.state = StateAuthenticated
		return sessions.Session{}, errors.Wrapf(err, "[RefreshSession]")
	}
	c.session = &updated
	c.state = StateAuthenticated
	c.logger.Debug().Str("username", updated.Username).Msg("Access token refreshed")
	return updated, nil
}

func (c *Controller) restoreAuthenticated() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session != nil {
		c.state = StateAuthenticated
	}
}

func noSession() error {
	return outcome.AuthFailure(outcome.ReasonNoActiveSession).Err()
}

// asAuthFailure keeps auth failures and reports anything else as one
func asAuthFailure(err error) error {
	if oe, ok := outcome.FromError(err); ok && oe.Kind == outcome.KindAuthFailure {
		return err
	}
	return outcome.AuthFailure(err.Error()).Err()
}
