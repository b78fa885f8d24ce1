package app

import (
	"context"

	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/infra/sse"
)

// SlackGateway is the outbound Slack Web API surface the services need.
type SlackGateway interface {
	PostMessage(ctx context.Context, token string, req slackapi.ChatPostMessageRequest) (*slackapi.ChatPostMessageResponse, error)
	GetUserInfo(ctx context.Context, token, userID string) (*slackapi.UserInfo, error)
	ExchangeOAuthCode(ctx context.Context, code string) (*slackapi.OAuthAccessResponse, error)
}

// EventBroadcaster fans an event out to a tenant's stream subscribers.
type EventBroadcaster interface {
	Broadcast(tenantID string, event sse.Event) int
}
