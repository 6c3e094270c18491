package marketapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jdholdren/bazaar/internal/market"
)

// Login authenticates with the backend and starts the client's session.
func (c *Client) Login(ctx context.Context, creds market.Credentials) (market.User, error) {
	req, err := jsonRequest(http.MethodPost, "/user/login", creds)
	if err != nil {
		return market.User{}, err
	}

	var resp loginResp
	if err := c.do(ctx, req, &resp); err != nil {
		return market.User{}, fmt.Errorf("error logging in: %w", err)
	}
	if resp.Token == "" {
		return market.User{}, errors.New("error logging in: backend sent no token")
	}

	var raw rawUser
	if len(resp.User) > 0 {
		if err := json.Unmarshal(resp.User, &raw); err != nil {
			return market.User{}, fmt.Errorf("error decoding logged in user: %w", err)
		}
	}
	user := raw.user()
	if user.Username == "" {
		user.Username = creds.Username
	}

	if err := c.sess.Set(resp.Token, user); err != nil {
		return market.User{}, fmt.Errorf("error starting session: %w", err)
	}

	return user, nil
}

// Logout only forgets the token locally; the backend keeps no server side session.
func (c *Client) Logout() {
	c.sess.Clear()
}

func (c *Client) Register(ctx context.Context, reg market.Registration) (market.User, error) {
	req, err := jsonRequest(http.MethodPost, "/user/register", reg)
	if err != nil {
		return market.User{}, err
	}

	var raw rawUser
	if err := c.do(ctx, req, &raw); err != nil {
		return market.User{}, fmt.Errorf("error registering: %w", err)
	}

	return raw.user(), nil
}

func (c *Client) Profile(ctx context.Context, userID string) (market.User, error) {
	var raw rawUser
	if err := c.do(ctx, request{method: http.MethodGet, path: "/user/profile/" + url.PathEscape(userID)}, &raw); err != nil {
		return market.User{}, fmt.Errorf("error fetching profile %s: %w", userID, err)
	}

	return raw.user(), nil
}

// UpdateProfile changes the logged in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, upd market.ProfileUpdate) (market.User, error) {
	id := c.sess.User().ID
	req, err := jsonRequest(http.MethodPut, "/user/profile/"+url.PathEscape(id), upd)
	if err != nil {
		return market.User{}, err
	}
	req.auth = true

	var raw rawUser
	if err := c.do(ctx, req, &raw); err != nil {
		return market.User{}, fmt.Errorf("error updating profile: %w", err)
	}

	return raw.user(), nil
}

func (c *Client) ChangePassword(ctx context.Context, change market.PasswordChange) error {
	id := c.sess.User().ID
	req, err := jsonRequest(http.MethodPost, "/user/change-password/"+url.PathEscape(id), change)
	if err != nil {
		return err
	}
	req.auth = true

	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("error changing password: %w", err)
	}

	return nil
}
