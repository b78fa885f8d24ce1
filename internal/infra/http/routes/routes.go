// Package routes wires handlers, middleware and services onto the
// router. Route paths live here and nowhere else.
package routes

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/infra/http"
	"github.com/allayhq/api/internal/infra/http/handler"
	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/validator"
)

// Dependencies carries everything route registration needs.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	AuthService         *app.AuthService
	TenantService       *app.TenantService
	ConversationService *app.ConversationService
	SlackService        *app.SlackService

	Hub      *sse.Hub
	Verifier *slackapi.SignatureVerifier

	DB    handler.Pinger
	Redis handler.Pinger
}

// Register wires all routes onto the router and returns a cleanup
// function for graceful shutdown.
func Register(r http.Router, deps *Dependencies) func() {
	v := validator.New()
	cookies := handler.NewCookieConfig(deps.Config.Auth)

	authHandler := handler.NewAuthHandler(deps.AuthService, v, cookies, deps.Logger)
	tenantHandler := handler.NewTenantHandler(deps.TenantService, v, deps.Logger)
	conversationHandler := handler.NewConversationHandler(deps.ConversationService, deps.Hub, v, deps.Config.SSE, deps.Logger)
	slackHandler := handler.NewSlackHandler(deps.SlackService, deps.Verifier, v, deps.Logger)
	healthHandler := handler.NewHealthHandler(
		handler.WithDatabase(deps.DB),
		handler.WithRedis(deps.Redis),
	)

	requireAuth := middleware.Auth(deps.AuthService, cookies.AccessTokenCookieName)
	requireMembership := middleware.RequireMembership(deps.TenantService)
	authLimits := middleware.NewAuthRateLimiter(deps.Logger)

	// Probes and metrics sit outside the API prefix.
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", promhttp.Handler().ServeHTTP)

	r.Group("/api/v1", func(api http.Router) {
		api.Group("/auth", func(auth http.Router) {
			auth.POST("/register", authHandler.Register, authLimits.RegisterMiddleware())
			auth.POST("/login", authHandler.Login, authLimits.LoginMiddleware())
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/logout-all", authHandler.LogoutAll, requireAuth)
			auth.GET("/me", authHandler.Me, requireAuth)
		})

		// Authenticated by request signature, not session.
		api.POST("/slack/events", slackHandler.Events)

		api.GET("/invitations/{token}", tenantHandler.PreviewInvitation)
		api.POST("/invitations/{token}/accept", tenantHandler.AcceptInvitation, requireAuth)

		api.Group("/tenants", func(tenants http.Router) {
			tenants.Use(requireAuth)

			tenants.POST("/", tenantHandler.Create)
			tenants.GET("/", tenantHandler.List)

			tenants.Group("/{tenantID}", func(ws http.Router) {
				ws.Use(requireMembership)

				ws.GET("/", tenantHandler.Get)
				ws.PATCH("/", tenantHandler.Update, middleware.RequirePermissions(tenant.PermManageMembers))

				ws.GET("/members", tenantHandler.ListMembers)
				ws.PATCH("/members/{membershipID}", tenantHandler.UpdateMemberRole, middleware.RequirePermissions(tenant.PermManageMembers))
				ws.DELETE("/members/{membershipID}", tenantHandler.RemoveMember, middleware.RequirePermissions(tenant.PermManageMembers))

				ws.POST("/invitations", tenantHandler.Invite, middleware.RequirePermissions(tenant.PermInviteMembers))
				ws.GET("/invitations", tenantHandler.ListInvitations, middleware.RequirePermissions(tenant.PermInviteMembers))
				ws.DELETE("/invitations/{invitationID}", tenantHandler.RevokeInvitation, middleware.RequirePermissions(tenant.PermInviteMembers))

				ws.GET("/conversations", conversationHandler.List)
				ws.GET("/conversations/stream", conversationHandler.Stream)
				ws.GET("/conversations/{conversationID}", conversationHandler.Get)
				ws.POST("/conversations/{conversationID}/replies", conversationHandler.CreateThreadReply, middleware.RequirePermissions(tenant.PermSendMessages))

				ws.GET("/slack", slackHandler.Status)
				ws.POST("/slack/oauth", slackHandler.CompleteOAuth, middleware.RequirePermissions(tenant.PermManageSlack))
				ws.DELETE("/slack", slackHandler.Disconnect, middleware.RequirePermissions(tenant.PermManageSlack))
			})
		})
	})

	return authLimits.Stop
}
