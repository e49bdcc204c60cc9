package api

import (
	"context"
)

// UpdateSettings replaces the user's dashboard preferences wholesale.
func (c *Client) UpdateSettings(ctx context.Context, settings UserSettings) (*UserSettings, error) {
	var resp struct {
		Settings UserSettings `json:"settings"`
	}
	if _, err := c.Do(ctx, "PUT", "/user/settings", settings, &resp); err != nil {
		return nil, err
	}
	return &resp.Settings, nil
}
