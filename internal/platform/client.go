// Package platform talks to the chat platform's role API. Role names are the
// unit of exchange; role ids are an implementation detail of the platform and
// resolved here.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Role is a platform group role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type member struct {
	Roles []string `json:"roles"`
}

// Client implements role management over the platform's REST API.
type Client struct {
	http    *resty.Client
	guildID string
	logger  *slog.Logger
}

// NewClient creates a role API client for one guild.
func NewClient(baseURL, token, guildID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: httpClient, guildID: guildID, logger: logger}
}

// GrantRole grants the named role to a member, creating the role if needed.
func (c *Client) GrantRole(ctx context.Context, memberID, roleName string) error {
	role, err := c.getOrCreateRole(ctx, roleName)
	if err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Put(fmt.Sprintf("/guilds/%s/members/%s/roles/%s", c.guildID, memberID, role.ID))
	if err != nil {
		return fmt.Errorf("granting role %q: %w", roleName, err)
	}
	if resp.IsError() {
		return fmt.Errorf("granting role %q: %s", roleName, resp.Status())
	}
	c.logger.Debug("role granted", "member", memberID, "role", roleName)
	return nil
}

// RevokeRolesByPrefix removes every role the member holds whose name starts
// with one of the given prefixes.
func (c *Client) RevokeRolesByPrefix(ctx context.Context, memberID string, prefixes ...string) error {
	guildRoles, err := c.listGuildRoles(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]Role, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role
	}

	var m member
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&m).
		Get(fmt.Sprintf("/guilds/%s/members/%s", c.guildID, memberID))
	if err != nil {
		return fmt.Errorf("loading member %s: %w", memberID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("loading member %s: %s", memberID, resp.Status())
	}

	for _, roleID := range m.Roles {
		role, ok := byID[roleID]
		if !ok {
			continue
		}
		if !hasAnyPrefix(role.Name, prefixes) {
			continue
		}
		resp, err := c.http.R().
			SetContext(ctx).
			Delete(fmt.Sprintf("/guilds/%s/members/%s/roles/%s", c.guildID, memberID, role.ID))
		if err != nil {
			return fmt.Errorf("revoking role %q: %w", role.Name, err)
		}
		if resp.IsError() {
			return fmt.Errorf("revoking role %q: %s", role.Name, resp.Status())
		}
		c.logger.Debug("role revoked", "member", memberID, "role", role.Name)
	}
	return nil
}

func (c *Client) getOrCreateRole(ctx context.Context, roleName string) (Role, error) {
	guildRoles, err := c.listGuildRoles(ctx)
	if err != nil {
		return Role{}, err
	}
	for _, role := range guildRoles {
		if role.Name == roleName {
			return role, nil
		}
	}

	var created Role
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": roleName}).
		SetResult(&created).
		Post(fmt.Sprintf("/guilds/%s/roles", c.guildID))
	if err != nil {
		return Role{}, fmt.Errorf("creating role %q: %w", roleName, err)
	}
	if resp.IsError() {
		return Role{}, fmt.Errorf("creating role %q: %s", roleName, resp.Status())
	}
	return created, nil
}

func (c *Client) listGuildRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&roles).
		Get(fmt.Sprintf("/guilds/%s/roles", c.guildID))
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing roles: %s", resp.Status())
	}
	return roles, nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
