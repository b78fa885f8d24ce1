package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// CachedProfile is the cached projection of a Slack user profile, enough to
// render a conversation author without touching PostgreSQL or the Slack API.
type CachedProfile struct {
	SlackUserID string `json:"slack_user_id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url,omitempty"`
	Title       string `json:"title,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// ProfileCache caches Slack user profiles per tenant. All operations fail
// open: callers treat any error as a miss and fall through to the source.
type ProfileCache struct {
	cache *Cache[CachedProfile]
}

// NewProfileCache creates a ProfileCache with the given TTL.
func NewProfileCache(client *Client, ttl time.Duration) (*ProfileCache, error) {
	cache, err := NewCache[CachedProfile](client, "slack:profile", ttl)
	if err != nil {
		return nil, err
	}
	return &ProfileCache{cache: cache}, nil
}

// key scopes a profile to its tenant.
func (p *ProfileCache) key(tenantID shared.ID, slackUserID string) string {
	return fmt.Sprintf("%s:%s", tenantID, slackUserID)
}

// Get returns the cached profile or nil on a miss.
func (p *ProfileCache) Get(ctx context.Context, tenantID shared.ID, slackUserID string) (*CachedProfile, error) {
	profile, err := p.cache.Get(ctx, p.key(tenantID, slackUserID))
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Set caches a profile.
func (p *ProfileCache) Set(ctx context.Context, tenantID shared.ID, profile CachedProfile) error {
	return p.cache.Set(ctx, p.key(tenantID, profile.SlackUserID), profile)
}

// Invalidate drops a cached profile, used when a profile sync rewrites it.
func (p *ProfileCache) Invalidate(ctx context.Context, tenantID shared.ID, slackUserID string) error {
	return p.cache.Delete(ctx, p.key(tenantID, slackUserID))
}
