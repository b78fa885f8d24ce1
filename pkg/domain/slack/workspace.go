package slack

import "time"

// WorkspaceConfig is the per-tenant Slack installation state, stored as a
// JSON column on the tenant's integration row.
type WorkspaceConfig struct {
	BotAccessToken string     `json:"bot_access_token,omitempty"`
	BotUserID      string     `json:"bot_user_id,omitempty"`
	BotScopes      []string   `json:"bot_scopes,omitempty"`
	TeamID         string     `json:"team_id,omitempty"`
	TeamName       string     `json:"team_name,omitempty"`
	IsConfigured   bool       `json:"is_configured"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Connected reports whether the workspace has a usable bot token.
func (c *WorkspaceConfig) Connected() bool {
	return c != nil && c.IsConfigured && c.BotAccessToken != ""
}

// Connect records a completed OAuth install.
func (c *WorkspaceConfig) Connect(token, botUserID, teamID, teamName string, scopes []string) {
	now := time.Now().UTC()
	c.BotAccessToken = token
	c.BotUserID = botUserID
	c.BotScopes = scopes
	c.TeamID = teamID
	c.TeamName = teamName
	c.IsConfigured = true
	c.ConnectedAt = &now
	c.DisconnectedAt = nil
}

// Disconnect clears the install, keeping team identity for display.
func (c *WorkspaceConfig) Disconnect() {
	now := time.Now().UTC()
	c.BotAccessToken = ""
	c.BotUserID = ""
	c.BotScopes = nil
	c.IsConfigured = false
	c.DisconnectedAt = &now
}
