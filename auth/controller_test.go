package auth_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/auction-storefront/auth"
	"github.com/jrsteele09/auction-storefront/internal/backendfake"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/sessions"
	"github.com/jrsteele09/auction-storefront/sessions/repofakes"
	"github.com/jrsteele09/auction-storefront/token"
	"github.com/jrsteele09/auction-storefront/users"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testPassword = "validpass1"
	testUserID   = 7
)

// testFixture holds all test dependencies
type testFixture struct {
	backend    *backendfake.Backend
	store      *repofakes.FakeSessionStore
	tokens     *token.Service
	controller *auth.Controller
}

// setupTestFixture creates a backend with alice registered and an anonymous controller
func setupTestFixture(t *testing.T, options ...auth.ControllerOption) *testFixture {
	t.Helper()
	return setupTestFixtureWithStore(t, repofakes.NewFakeSessionStore(), options...)
}

func setupTestFixtureWithStore(t *testing.T, store *repofakes.FakeSessionStore, options ...auth.ControllerOption) *testFixture {
	t.Helper()

	backend := backendfake.New(t)
	backend.AddUser(testUsername, testPassword, users.Profile{ID: testUserID, Email: "alice@example.com"})

	tokens := token.NewService(backend.Routes(), token.WithHTTPClient(backend.Client()))
	options = append([]auth.ControllerOption{auth.WithHTTPClient(backend.Client())}, options...)
	controller, err := auth.NewController(context.Background(), auth.Deps{
		Store:  store,
		Tokens: tokens,
		Routes: backend.Routes(),
	}, options...)
	require.NoError(t, err)

	return &testFixture{backend: backend, store: store, tokens: tokens, controller: controller}
}

func (f *testFixture) login(t *testing.T) sessions.Session {
	t.Helper()
	s, err := f.controller.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	return s
}

func TestNewControllerRequiresDeps(t *testing.T) {
	_, err := auth.NewController(context.Background(), auth.Deps{})
	require.Error(t, err)

	_, err = auth.NewController(context.Background(), auth.Deps{Store: repofakes.NewFakeSessionStore()})
	require.Error(t, err)
}

func TestLoginPersistsMergedSession(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Override(http.MethodPost, backendfake.RouteToken, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"A1","refresh":"R1"}`))
	})
	f.backend.Override(http.MethodGet, backendfake.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"username":"alice"}`))
	})

	s, err := f.controller.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)

	expected := sessions.Session{Access: "A1", Refresh: "R1", Profile: users.Profile{ID: 7, Username: "alice"}}
	require.Equal(t, expected, s)
	require.Equal(t, auth.StateAuthenticated, f.controller.State())
	require.JSONEq(t, `{"access":"A1","refresh":"R1","id":7,"username":"alice"}`, string(f.store.Raw()))

	loaded, ok := f.store.Load(context.Background())
	require.True(t, ok)
	require.Equal(t, expected, loaded)

	current, ok := f.controller.Current()
	require.True(t, ok)
	require.Equal(t, expected, current)
}

func TestLoginInvalidCredentialsLeavesStoreUntouched(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.Login(context.Background(), testUsername, "wrongpass1")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrAuthFailure))
	require.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	require.Equal(t, auth.StateAnonymous, f.controller.State())
	require.Zero(t, f.store.Saves())
	require.Nil(t, f.store.Raw())
	require.Zero(t, f.backend.Calls(http.MethodGet, backendfake.RouteProfile))
}

func TestLoginProfileFailureDiscardsTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Override(http.MethodGet, backendfake.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := f.controller.Login(context.Background(), testUsername, testPassword)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrProfileFetchFailed))
	require.True(t, errors.Is(err, errors.ErrAuthFailure))

	require.Equal(t, auth.StateAnonymous, f.controller.State())
	require.Zero(t, f.store.Saves())
	_, ok := f.controller.Current()
	require.False(t, ok)
}

func TestLoginLastWriteWins(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddUser("bob", "validpass2", users.Profile{})

	first := f.login(t)
	second, err := f.controller.Login(context.Background(), "bob", "validpass2")
	require.NoError(t, err)
	require.NotEqual(t, first.Access, second.Access)

	current, _ := f.controller.Current()
	require.Equal(t, "bob", current.Username)
	loaded, _ := f.store.Load(context.Background())
	require.Equal(t, "bob", loaded.Username)
}

func TestHydrateFromStore(t *testing.T) {
	stored := sessions.Session{Access: "A1", Refresh: "R1", Profile: users.Profile{ID: 7, Username: "alice"}}
	data, err := sessions.Marshal(stored)
	require.NoError(t, err)

	f := setupTestFixtureWithStore(t, repofakes.NewFakeSessionStoreWith(data))
	require.Equal(t, auth.StateAuthenticated, f.controller.State())
	current, ok := f.controller.Current()
	require.True(t, ok)
	require.Equal(t, stored, current)
	require.Zero(t, f.backend.TotalCalls(), "hydration makes no network call")
}

func TestHydrateCorruptRecordIsAnonymous(t *testing.T) {
	f := setupTestFixtureWithStore(t, repofakes.NewFakeSessionStoreWith([]byte("{not json")))
	require.Equal(t, auth.StateAnonymous, f.controller.State())

	_, err := f.controller.AccessToken()
	require.True(t, errors.Is(err, errors.ErrSessionMissing))
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	s := f.login(t)

	require.NoError(t, f.controller.Logout(context.Background()))
	require.Equal(t, auth.StateAnonymous, f.controller.State())
	require.Nil(t, f.store.Raw())

	f.controller.Wait()
	require.Equal(t, 1, f.backend.Calls(http.MethodPost, backendfake.RouteLogout))
	require.False(t, f.backend.RefreshTokenValid(s.Refresh))
}

func TestLogoutClearsStoreWhenBackendFails(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Override(http.MethodPost, backendfake.RouteLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	require.NoError(t, f.controller.Logout(context.Background()))
	require.Nil(t, f.store.Raw())
	require.Equal(t, auth.StateAnonymous, f.controller.State())
	f.controller.Wait()
	require.Equal(t, 1, f.backend.Calls(http.MethodPost, backendfake.RouteLogout))
}

func TestLogoutClearsStoreWhenBackendTimesOut(t *testing.T) {
	f := setupTestFixture(t, auth.WithLogoutTimeout(50*time.Millisecond))
	f.login(t)

	release := make(chan struct{})
	defer close(release)
	f.backend.Override(http.MethodPost, backendfake.RouteLogout, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	start := time.Now()
	require.NoError(t, f.controller.Logout(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond, "local cleanup does not wait for the backend")
	require.Nil(t, f.store.Raw())

	f.controller.Wait()
	require.Equal(t, auth.StateAnonymous, f.controller.State())
}

func TestLogoutWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.controller.Logout(context.Background()))
	f.controller.Wait()
	require.Zero(t, f.backend.TotalCalls())
	require.Equal(t, 1, f.store.Clears())
}

func TestExpireClearsExactlyOnce(t *testing.T) {
	f := setupTestFixture(t)
	s := f.login(t)

	var (
		wg          sync.WaitGroup
		transitions atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.controller.Expire(s.Access, "session expired") {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), transitions.Load())
	require.Equal(t, 1, f.store.Clears())
	require.Equal(t, auth.StateLoggedOut, f.controller.State())
}

func TestExpireIgnoresStaleToken(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t)
	second := f.login(t)
	require.NotEqual(t, first.Access, second.Access)

	require.False(t, f.controller.Expire(first.Access, "session expired"))
	require.Equal(t, auth.StateAuthenticated, f.controller.State())
	require.Zero(t, f.store.Clears())
}

func TestLoginAfterLoggedOut(t *testing.T) {
	f := setupTestFixture(t)
	s := f.login(t)
	require.True(t, f.controller.Expire(s.Access, "session expired"))
	require.Equal(t, auth.StateLoggedOut, f.controller.State())

	f.login(t)
	require.Equal(t, auth.StateAuthenticated, f.controller.State())
}

func TestRefreshSession(t *testing.T) {
	f := setupTestFixture(t)
	s := f.login(t)

	refreshed, err := f.controller.RefreshSession(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, s.Access, refreshed.Access)
	require.Equal(t, s.Refresh, refreshed.Refresh)
	require.Equal(t, s.Profile, refreshed.Profile)
	require.Equal(t, auth.StateAuthenticated, f.controller.State())

	loaded, ok := f.store.Load(context.Background())
	require.True(t, ok)
	require.Equal(t, refreshed, loaded)
}

func TestRefreshSessionPersistsRotatedToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	access := f.backend.AccessToken(testUsername, time.Minute)
	f.backend.Override(http.MethodPost, backendfake.RouteTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"` + access + `","refresh":"R2"}`))
	})

	refreshed, err := f.controller.RefreshSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, access, refreshed.Access)
	require.Equal(t, "R2", refreshed.Refresh)

	stored, ok := sessions.Unmarshal(f.store.Raw())
	require.True(t, ok)
	require.Equal(t, "R2", stored.Refresh)
}

func TestRefreshSessionRejectedLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Override(http.MethodPost, backendfake.RouteTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
	})

	_, err := f.controller.RefreshSession(context.Background())
	require.True(t, errors.Is(err, errors.ErrInvalidRefreshToken))
	require.Equal(t, auth.StateLoggedOut, f.controller.State())
	require.Nil(t, f.store.Raw())
}

func TestRefreshSessionTransportFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	s := f.login(t)
	release := make(chan struct{})
	defer close(release)
	f.backend.Override(http.MethodPost, backendfake.RouteTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.controller.RefreshSession(ctx)
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.Equal(t, auth.StateAuthenticated, f.controller.State())

	current, ok := f.controller.Current()
	require.True(t, ok)
	require.Equal(t, s, current)
}

func TestRefreshSessionWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.RefreshSession(context.Background())
	require.True(t, errors.Is(err, errors.ErrSessionMissing))
	require.Zero(t, f.backend.TotalCalls())
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.Token()
	require.True(t, errors.Is(err, errors.ErrSessionMissing))

	s := f.login(t)
	tok, err := f.controller.Token()
	require.NoError(t, err)
	require.Equal(t, s.Access, tok.AccessToken)
	require.Equal(t, s.Refresh, tok.RefreshToken)
	require.True(t, tok.Valid())
}
