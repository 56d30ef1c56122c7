package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/auction-storefront/auth"
	"github.com/jrsteele09/auction-storefront/internal/backendfake"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/internal/utils"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/sessions"
	"github.com/jrsteele09/auction-storefront/sessions/repofakes"
	"github.com/jrsteele09/auction-storefront/users"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	profile, err := f.controller.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, testUserID, profile.ID)
	require.Equal(t, testUsername, profile.Username)
	require.Equal(t, "alice@example.com", profile.Email)
}

func TestGetProfileWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.GetProfile(context.Background())
	require.True(t, errors.Is(err, errors.ErrSessionMissing))
	require.Zero(t, f.backend.TotalCalls())
}

func TestGetProfileRejectedTokenIsSessionExpired(t *testing.T) {
	stored := sessions.Session{Access: "stale", Refresh: "R1", Profile: users.Profile{ID: 7, Username: "alice"}}
	data, err := sessions.Marshal(stored)
	require.NoError(t, err)
	store := repofakes.NewFakeSessionStoreWith(data)
	f := setupTestFixtureWithStore(t, store)

	_, err = f.controller.GetProfile(context.Background())
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.False(t, errors.Is(err, errors.ErrProfileFetchFailed))
	require.Equal(t, auth.StateLoggedOut, f.controller.State())
	require.Nil(t, store.Raw())
	require.Equal(t, 1, store.Clears())
}

func TestRejectedTokenEndsSession(t *testing.T) {
	tests := []struct {
		name   string
		method string
		route  string
		call   func(c *auth.Controller) error
	}{
		{
			name:   "update profile",
			method: http.MethodPatch,
			route:  backendfake.RouteProfile,
			call: func(c *auth.Controller) error {
				_, err := c.UpdateProfile(context.Background(), users.ProfileUpdate{Locality: utils.Ptr("Madrid")})
				return err
			},
		},
		{
			name:   "change password",
			method: http.MethodPost,
			route:  backendfake.RouteChangePassword,
			call: func(c *auth.Controller) error {
				return c.ChangePassword(context.Background(), users.PasswordChange{OldPassword: testPassword, NewPassword: "newpass22", Confirmation: "newpass22"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.login(t)
			f.backend.Override(tt.method, tt.route, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})

			err := tt.call(f.controller)
			require.True(t, errors.Is(err, errors.ErrSessionExpired))
			require.Equal(t, auth.StateLoggedOut, f.controller.State())
			require.Nil(t, f.store.Raw())
		})
	}
}

func TestGetProfileOtherFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Override(http.MethodGet, backendfake.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := f.controller.GetProfile(context.Background())
	require.True(t, errors.Is(err, errors.ErrProfileFetchFailed))
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.False(t, errors.Is(err, errors.ErrSessionExpired))
	oerr, ok := outcome.FromError(err)
	require.True(t, ok)
	require.Equal(t, outcome.KindTransportFailure, oerr.Kind)
	require.Equal(t, auth.StateAuthenticated, f.controller.State())
}

func TestUpdateProfile(t *testing.T) {
	f := setupTestFixture(t)
	before := f.login(t)

	profile, err := f.controller.UpdateProfile(context.Background(), users.ProfileUpdate{
		FirstName: utils.Ptr("Alice"),
		Locality:  utils.Ptr("Madrid"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", profile.FirstName)
	require.Equal(t, "Madrid", profile.Locality)
	require.Equal(t, before.Email, profile.Email, "unsent fields are untouched")

	current, _ := f.controller.Current()
	require.Equal(t, profile, current.Profile)
	require.Equal(t, before.Access, current.Access)
	loaded, _ := f.store.Load(context.Background())
	require.Equal(t, profile, loaded.Profile)
}

func TestUpdateProfileSendsOnlySuppliedFields(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	var body map[string]any
	f.backend.Override(http.MethodPatch, backendfake.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		_ = decodeJSON(r, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"username":"alice","last_name":"Liddell"}`))
	})

	profile, err := f.controller.UpdateProfile(context.Background(), users.ProfileUpdate{LastName: utils.Ptr("Liddell")})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"last_name": "Liddell"}, body)
	require.Equal(t, users.Profile{ID: 7, Username: "alice", LastName: "Liddell"}, profile, "server representation replaces the profile")
}

func TestUpdateProfileServerValidationFailure(t *testing.T) {
	f := setupTestFixture(t)
	before := f.login(t)
	f.backend.Override(http.MethodPatch, backendfake.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email":["Enter a valid email address."]}`))
	})

	_, err := f.controller.UpdateProfile(context.Background(), users.ProfileUpdate{Email: utils.Ptr("alice@example.com")})
	require.True(t, errors.Is(err, errors.ErrValidation))

	oerr, ok := outcome.FromError(err)
	require.True(t, ok)
	require.Equal(t, outcome.KindValidationFailure, oerr.Kind)
	require.Equal(t, outcome.FieldErrors{"email": {"Enter a valid email address."}}, oerr.Fields)

	current, _ := f.controller.Current()
	require.Equal(t, before, current, "session unchanged on failure")
}

func TestUpdateProfileLocalValidation(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	_, err := f.controller.UpdateProfile(context.Background(), users.ProfileUpdate{Email: utils.Ptr("not-an-email")})
	oerr, ok := outcome.FromError(err)
	require.True(t, ok)
	require.Equal(t, outcome.FieldErrors{"email": {"Enter a valid email address."}}, oerr.Fields)
	require.Zero(t, f.backend.Calls(http.MethodPatch, backendfake.RouteProfile))
}

func TestUpdateProfileWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.UpdateProfile(context.Background(), users.ProfileUpdate{FirstName: utils.Ptr("A")})
	require.True(t, errors.Is(err, errors.ErrSessionMissing))
	require.Zero(t, f.backend.TotalCalls())
}

func TestChangePassword(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	err := f.controller.ChangePassword(context.Background(), users.PasswordChange{
		OldPassword:  testPassword,
		NewPassword:  "newpass22",
		Confirmation: "newpass22",
	})
	require.NoError(t, err)

	_, err = f.controller.Login(context.Background(), testUsername, "newpass22")
	require.NoError(t, err)
}

func TestChangePasswordFailures(t *testing.T) {
	tests := []struct {
		name      string
		change    users.PasswordChange
		field     string
		wantCalls int
	}{
		{
			name:   "confirmation mismatch",
			change: users.PasswordChange{OldPassword: testPassword, NewPassword: "newpass22", Confirmation: "newpass23"},
			field:  "confirm_new_password",
		},
		{
			name:   "weak password",
			change: users.PasswordChange{OldPassword: testPassword, NewPassword: "short1", Confirmation: "short1"},
			field:  "new_password",
		},
		{
			name:      "wrong old password",
			change:    users.PasswordChange{OldPassword: "wrongpass1", NewPassword: "newpass22", Confirmation: "newpass22"},
			field:     "old_password",
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.login(t)

			err := f.controller.ChangePassword(context.Background(), tt.change)
			oerr, ok := outcome.FromError(err)
			require.True(t, ok)
			require.Equal(t, outcome.KindValidationFailure, oerr.Kind)
			require.Contains(t, oerr.Fields, tt.field)
			require.Equal(t, tt.wantCalls, f.backend.Calls(http.MethodPost, backendfake.RouteChangePassword))
		})
	}
}

func validRegistration() users.Registration {
	return users.Registration{
		Username:     "carol",
		Email:        "carol@example.com",
		Password:     "carolpass1",
		Confirmation: "carolpass1",
		FirstName:    "Carol",
		LastName:     "Smith",
		BirthDate:    "1990-04-01",
		Locality:     "Madrid",
		Municipality: "Madrid",
	}
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	profile, err := f.controller.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.Equal(t, "carol", profile.Username)
	require.NotZero(t, profile.ID)
	require.Equal(t, auth.StateAnonymous, f.controller.State(), "registration does not log in")
	require.Zero(t, f.store.Saves())

	_, err = f.controller.Login(context.Background(), "carol", "carolpass1")
	require.NoError(t, err)
}

func TestRegisterFailures(t *testing.T) {
	f := setupTestFixture(t)

	reg := validRegistration()
	reg.Confirmation = "other"
	_, err := f.controller.Register(context.Background(), reg)
	oerr, ok := outcome.FromError(err)
	require.True(t, ok)
	require.Equal(t, []string{errors.ErrPasswordsDontMatch.Error()}, oerr.Fields["confirm_password"])
	require.Zero(t, f.backend.TotalCalls())

	reg = validRegistration()
	reg.Username = testUsername
	_, err = f.controller.Register(context.Background(), reg)
	oerr, ok = outcome.FromError(err)
	require.True(t, ok)
	require.Contains(t, oerr.Fields, "username")
}

func TestNowTime(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := setupTestFixture(t, auth.WithNowTime(func() time.Time { return fixed }))
	require.Equal(t, fixed, f.controller.Now())
}
