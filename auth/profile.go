package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/users"
)

// GetProfile fetches the profile of the active session. A rejected access
// token is reported as ErrSessionExpired and ends the session.
func (c *Controller) GetProfile(ctx context.Context) (users.Profile, error) {
	access, err := c.AccessToken()
	if err != nil {
		return users.Profile{}, errors.Wrapf(err, "[GetProfile]")
	}

	profile, err := c.fetchProfile(ctx, access)
	if err != nil {
		if c.expireIfRejected(access, err) {
			return users.Profile{}, errors.Wrapf(err, "[GetProfile]")
		}
		return users.Profile{}, fmt.Errorf("[GetProfile]: %w: %w", errors.ErrProfileFetchFailed, err)
	}
	return profile, nil
}

// UpdateProfile sends only the supplied fields. On success the session's
// profile is replaced by the server's representation; on failure the session
// is unchanged and field errors come back as an *outcome.Error.
func (c *Controller) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Profile, error) {
	current, ok := c.Current()
	if !ok {
		return users.Profile{}, errors.Wrapf(noSession(), "[UpdateProfile]")
	}
	if err := c.validator.ValidateProfileUpdate(update); err != nil {
		return users.Profile{}, errors.Wrapf(err, "[UpdateProfile]")
	}
	if update.Empty() {
		return current.Profile, nil
	}

	o := c.call(ctx, http.MethodPatch, c.routes.UserProfile(), current.Access, update)
	if !o.OK() {
		c.expireIfRejected(current.Access, o.Err())
		return users.Profile{}, errors.Wrapf(o.Err(), "[UpdateProfile]")
	}
	var profile users.Profile
	if o.Kind == outcome.KindSuccessEmpty {
		return users.Profile{}, errors.Wrapf(errors.ErrUnrecognizedShape, "[UpdateProfile] empty response")
	}
	if err := o.Decode(&profile); err != nil {
		return users.Profile{}, errors.Wrapf(err, "[UpdateProfile]")
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session == nil || c.session.Access != current.Access {
		// the session changed underneath the call, the result belongs to nobody
		return profile, nil
	}
	updated := *c.session
	updated.Profile = profile
	if err := c.store.Save(ctx, updated); err != nil {
		return users.Profile{}, errors.Wrapf(err, "[UpdateProfile]")
	}
	c.session = &updated
	return profile, nil
}

// ChangePassword validates the form locally and submits the old and new passwords
func (c *Controller) ChangePassword(ctx context.Context, change users.PasswordChange) error {
	access, err := c.AccessToken()
	if err != nil {
		return errors.Wrapf(err, "[ChangePassword]")
	}
	if err := c.validator.ValidatePasswordChange(change); err != nil {
		return errors.Wrapf(err, "[ChangePassword]")
	}

	o := c.call(ctx, http.MethodPost, c.routes.ChangePassword(), access, change)
	c.expireIfRejected(access, o.Err())
	return errors.Wrapf(o.Err(), "[ChangePassword]")
}

// expireIfRejected ends the session when the backend rejected accessToken
func (c *Controller) expireIfRejected(accessToken string, err error) bool {
	if !errors.Is(err, errors.ErrSessionExpired) {
		return false
	}
	c.Expire(accessToken, outcome.ReasonSessionExpired)
	return true
}

// Register creates an account on the registration origin. It needs no session
// and creates none.
func (c *Controller) Register(ctx context.Context, reg users.Registration) (users.Profile, error) {
	if err := c.validator.ValidateRegistration(reg); err != nil {
		return users.Profile{}, errors.Wrapf(err, "[Register]")
	}

	o := c.call(ctx, http.MethodPost, c.routes.Register(), "", reg)
	if !o.OK() {
		return users.Profile{}, errors.Wrapf(o.Err(), "[Register]")
	}

	profile := users.Profile{Username: reg.Username, Email: reg.Email}
	if err := o.Decode(&profile); err != nil {
		c.logger.Debug().Err(err).Msg("Registration response not decoded")
	}
	return profile, nil
}
