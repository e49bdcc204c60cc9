package api

import (
	"context"
)

// LoginRequest holds credentials for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the payload from /auth/login.
type LoginResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// User is the authenticated user's profile as returned by the backend.
type User struct {
	ID       string        `json:"id"`
	Email    string        `json:"email"`
	Roles    []string      `json:"roles"`
	Settings *UserSettings `json:"settings,omitempty"`
}

// UserSettings holds per-user dashboard preferences.
type UserSettings struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
	TwoFactor     bool   `json:"two_factor"`
}

// Login authenticates with the console backend. The returned credential is
// not stored on the client; the session layer owns that.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if _, err := c.Do(ctx, "POST", "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the profile bound to the current credential.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if _, err := c.Do(ctx, "GET", "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
