package app

import (
	"context"

	"github.com/allayhq/api/internal/infra/redis"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/slack"
	"github.com/allayhq/api/pkg/logger"
)

// UnknownUserName is the fallback author name when a Slack profile cannot
// be resolved. Resolution failures never fail the operation that needed
// the name.
const UnknownUserName = "Unknown User"

// AuthorProfile is the resolved display identity of a message author.
type AuthorProfile struct {
	Name     string
	ImageURL string
	Title    string
	IsBot    bool
}

// ProfileResolver resolves Slack author identities through three layers:
// Redis cache, synced profile rows, then the Slack Web API. Every layer
// fails open to the next; the final fallback is UnknownUserName.
type ProfileResolver struct {
	users      slack.UserRepository
	workspaces slack.WorkspaceRepository
	cache      *redis.ProfileCache
	gateway    SlackGateway
	logger     *logger.Logger
}

// NewProfileResolver creates a ProfileResolver. cache and gateway may be
// nil; resolution then skips those layers.
func NewProfileResolver(
	users slack.UserRepository,
	workspaces slack.WorkspaceRepository,
	cache *redis.ProfileCache,
	gateway SlackGateway,
	log *logger.Logger,
) *ProfileResolver {
	return &ProfileResolver{
		users:      users,
		workspaces: workspaces,
		cache:      cache,
		gateway:    gateway,
		logger:     log.With("component", "profile_resolver"),
	}
}

// Resolve returns the best available profile for a Slack user. Never
// returns nil.
func (r *ProfileResolver) Resolve(ctx context.Context, tenantID shared.ID, slackUserID string) *AuthorProfile {
	if slackUserID == "" {
		return &AuthorProfile{Name: UnknownUserName}
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, tenantID, slackUserID)
		if err != nil {
			r.logger.Warn("profile cache read failed", "slack_user_id", slackUserID, "error", err)
		} else if cached != nil {
			return &AuthorProfile{
				Name:     cached.Name,
				ImageURL: cached.ImageURL,
				Title:    cached.Title,
				IsBot:    cached.IsBot,
			}
		}
	}

	if u, err := r.users.GetBySlackUserID(ctx, tenantID, slackUserID); err == nil {
		profile := &AuthorProfile{
			Name:     u.Name(),
			ImageURL: u.ImageURL(),
			Title:    u.Title(),
			IsBot:    u.IsBot(),
		}
		if profile.Name == "" {
			profile.Name = UnknownUserName
		}
		r.cacheProfile(ctx, tenantID, slackUserID, profile)
		return profile
	}

	if u, err := r.SyncFromAPI(ctx, tenantID, slackUserID); err == nil {
		profile := &AuthorProfile{
			Name:     u.Name(),
			ImageURL: u.ImageURL(),
			Title:    u.Title(),
			IsBot:    u.IsBot(),
		}
		if profile.Name == "" {
			profile.Name = UnknownUserName
		}
		return profile
	}

	return &AuthorProfile{Name: UnknownUserName}
}

// ResolveName returns just the display name, UnknownUserName when nothing
// better exists.
func (r *ProfileResolver) ResolveName(ctx context.Context, tenantID shared.ID, slackUserID string) string {
	return r.Resolve(ctx, tenantID, slackUserID).Name
}

// SyncFromAPI fetches the profile from the Slack Web API, upserts the
// synced row and refreshes the cache. Requires a connected workspace.
func (r *ProfileResolver) SyncFromAPI(ctx context.Context, tenantID shared.ID, slackUserID string) (*slack.User, error) {
	if r.gateway == nil {
		return nil, shared.ErrNotFound
	}

	cfg, err := r.workspaces.GetConfig(ctx, tenantID)
	if err != nil || !cfg.Connected() {
		return nil, shared.ErrNotFound
	}

	info, err := r.gateway.GetUserInfo(ctx, cfg.BotAccessToken, slackUserID)
	if err != nil {
		r.logger.Warn("slack profile fetch failed", "slack_user_id", slackUserID, "error", err)
		return nil, err
	}

	u, err := r.users.GetBySlackUserID(ctx, tenantID, slackUserID)
	if err != nil {
		if u, err = slack.NewUser(tenantID, slackUserID); err != nil {
			return nil, err
		}
	}
	u.UpdateProfile(
		info.RealName,
		info.Profile.DisplayName,
		info.Profile.Email,
		info.Profile.Title,
		info.Profile.Image192,
		info.TZ,
		info.IsBot,
		info.IsAdmin,
	)
	u.MarkSeen()

	if err := r.users.Save(ctx, u); err != nil {
		r.logger.Warn("failed to save synced profile", "slack_user_id", slackUserID, "error", err)
	}

	r.cacheProfile(ctx, tenantID, slackUserID, &AuthorProfile{
		Name:     u.Name(),
		ImageURL: u.ImageURL(),
		Title:    u.Title(),
		IsBot:    u.IsBot(),
	})
	return u, nil
}

// cacheProfile writes through to the cache, logging failures.
func (r *ProfileResolver) cacheProfile(ctx context.Context, tenantID shared.ID, slackUserID string, p *AuthorProfile) {
	if r.cache == nil {
		return
	}
	err := r.cache.Set(ctx, tenantID, redis.CachedProfile{
		SlackUserID: slackUserID,
		Name:        p.Name,
		ImageURL:    p.ImageURL,
		Title:       p.Title,
		IsBot:       p.IsBot,
	})
	if err != nil {
		r.logger.Warn("profile cache write failed", "slack_user_id", slackUserID, "error", err)
	}
}
