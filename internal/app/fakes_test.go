package app

import (
	"context"
	"fmt"
	"time"

	"github.com/allayhq/api/internal/infra/jobs"
	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/pkg/domain/conversation"
	"github.com/allayhq/api/pkg/domain/session"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/slack"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/domain/user"
)

// In-memory repository fakes. Single-goroutine test use only.

type memUserRepo struct {
	byID map[shared.ID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[shared.ID]*user.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.byID {
		if existing.Email() == u.Email() {
			return fmt.Errorf("%w: email %s", shared.ErrAlreadyExists, u.Email())
		}
	}
	r.byID[u.ID()] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.byID {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, email)
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	r.byID[u.ID()] = u
	return nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.byID {
		if u.Email() == email {
			return true, nil
		}
	}
	return false, nil
}

type memSessionRepo struct {
	byHash map[string]*session.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byHash: map[string]*session.Session{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *session.Session) error {
	r.byHash[s.TokenHash()] = s
	return nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, fmt.Errorf("%w: session", shared.ErrNotFound)
	}
	return s, nil
}

func (r *memSessionRepo) Update(_ context.Context, s *session.Session) error {
	r.byHash[s.TokenHash()] = s
	return nil
}

func (r *memSessionRepo) InvalidateByTokenHash(_ context.Context, tokenHash string) error {
	s, ok := r.byHash[tokenHash]
	if !ok {
		return fmt.Errorf("%w: session", shared.ErrNotFound)
	}
	s.Invalidate()
	return nil
}

func (r *memSessionRepo) InvalidateAllByUserID(_ context.Context, userID shared.ID) error {
	for _, s := range r.byHash {
		if s.UserID() == userID {
			s.Invalidate()
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var count int64
	for hash, s := range r.byHash {
		if time.Now().UTC().After(s.ExpiresAt()) {
			delete(r.byHash, hash)
			count++
		}
	}
	return count, nil
}

type memTenantRepo struct {
	tenants     map[shared.ID]*tenant.Tenant
	memberships map[shared.ID]*tenant.Membership
	invitations map[shared.ID]*tenant.Invitation
	emails      map[shared.ID]string
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{
		tenants:     map[shared.ID]*tenant.Tenant{},
		memberships: map[shared.ID]*tenant.Membership{},
		invitations: map[shared.ID]*tenant.Invitation{},
		emails:      map[shared.ID]string{},
	}
}

func (r *memTenantRepo) Create(_ context.Context, t *tenant.Tenant) error {
	for _, existing := range r.tenants {
		if existing.Slug() == t.Slug() {
			return fmt.Errorf("%w: slug %s", shared.ErrAlreadyExists, t.Slug())
		}
	}
	r.tenants[t.ID()] = t
	return nil
}

func (r *memTenantRepo) GetByID(_ context.Context, id shared.ID) (*tenant.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %s", shared.ErrNotFound, id)
	}
	return t, nil
}

func (r *memTenantRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug() == slug {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s", shared.ErrNotFound, slug)
}

func (r *memTenantRepo) Update(_ context.Context, t *tenant.Tenant) error {
	r.tenants[t.ID()] = t
	return nil
}

func (r *memTenantRepo) Delete(_ context.Context, id shared.ID) error {
	delete(r.tenants, id)
	return nil
}

func (r *memTenantRepo) ExistsBySlug(_ context.Context, slug string) (bool, error) {
	for _, t := range r.tenants {
		if t.Slug() == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *memTenantRepo) CreateMembership(_ context.Context, m *tenant.Membership) error {
	r.memberships[m.ID()] = m
	return nil
}

func (r *memTenantRepo) GetMembership(_ context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	for _, m := range r.memberships {
		if m.UserID() == userID && m.TenantID() == tenantID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: membership", shared.ErrNotFound)
}

func (r *memTenantRepo) GetMembershipByID(_ context.Context, id shared.ID) (*tenant.Membership, error) {
	m, ok := r.memberships[id]
	if !ok {
		return nil, fmt.Errorf("%w: membership %s", shared.ErrNotFound, id)
	}
	return m, nil
}

func (r *memTenantRepo) UpdateMembership(_ context.Context, m *tenant.Membership) error {
	r.memberships[m.ID()] = m
	return nil
}

func (r *memTenantRepo) ListMembersByTenant(_ context.Context, tenantID shared.ID) ([]*tenant.Membership, error) {
	var out []*tenant.Membership
	for _, m := range r.memberships {
		if m.TenantID() == tenantID && m.IsActive() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memTenantRepo) ListMembersWithUserInfo(_ context.Context, tenantID shared.ID) ([]*tenant.MemberWithUser, error) {
	var out []*tenant.MemberWithUser
	for _, m := range r.memberships {
		if m.TenantID() == tenantID && m.IsActive() {
			out = append(out, &tenant.MemberWithUser{Membership: m, Email: r.emails[m.UserID()]})
		}
	}
	return out, nil
}

func (r *memTenantRepo) ListTenantsByUser(_ context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	var out []*tenant.TenantWithRole
	for _, m := range r.memberships {
		if m.UserID() == userID && m.IsActive() {
			if t, ok := r.tenants[m.TenantID()]; ok {
				out = append(out, &tenant.TenantWithRole{Tenant: t, Role: m.Role(), JoinedAt: m.JoinedAt()})
			}
		}
	}
	return out, nil
}

func (r *memTenantRepo) GetActiveMemberByEmail(_ context.Context, tenantID shared.ID, email string) (*tenant.MemberWithUser, error) {
	for _, m := range r.memberships {
		if m.TenantID() == tenantID && m.IsActive() && r.emails[m.UserID()] == email {
			return &tenant.MemberWithUser{Membership: m, Email: email}, nil
		}
	}
	return nil, fmt.Errorf("%w: member %s", shared.ErrNotFound, email)
}

func (r *memTenantRepo) CreateInvitation(_ context.Context, inv *tenant.Invitation) error {
	r.invitations[inv.ID()] = inv
	return nil
}

func (r *memTenantRepo) GetInvitationByID(_ context.Context, id shared.ID) (*tenant.Invitation, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return nil, fmt.Errorf("%w: invitation %s", shared.ErrNotFound, id)
	}
	return inv, nil
}

func (r *memTenantRepo) GetInvitationByToken(_ context.Context, token string) (*tenant.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.Token() == token {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("%w: invitation", shared.ErrNotFound)
}

func (r *memTenantRepo) UpdateInvitation(_ context.Context, inv *tenant.Invitation) error {
	r.invitations[inv.ID()] = inv
	return nil
}

func (r *memTenantRepo) ListInvitationsByTenant(_ context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	var out []*tenant.Invitation
	for _, inv := range r.invitations {
		if inv.TenantID() == tenantID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memTenantRepo) GetPendingInvitationByEmail(_ context.Context, tenantID shared.ID, email string) (*tenant.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.TenantID() == tenantID && inv.Email() == email && inv.Status() == tenant.InvitationPending {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("%w: invitation for %s", shared.ErrNotFound, email)
}

func (r *memTenantRepo) AcceptInvitationTx(_ context.Context, inv *tenant.Invitation, m *tenant.Membership) error {
	r.invitations[inv.ID()] = inv
	r.memberships[m.ID()] = m
	return nil
}

type memConversationRepo struct {
	rows      map[string]*conversation.Conversation
	lastLimit int
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{rows: map[string]*conversation.Conversation{}}
}

func (r *memConversationRepo) key(tenantID shared.ID, id string) string {
	return tenantID.String() + "/" + id
}

func (r *memConversationRepo) Save(_ context.Context, c *conversation.Conversation) error {
	r.rows[r.key(c.TenantID(), c.ID())] = c
	return nil
}

func (r *memConversationRepo) GetByID(_ context.Context, id string, tenantID shared.ID) (*conversation.Conversation, error) {
	c, ok := r.rows[r.key(tenantID, id)]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", shared.ErrNotFound, id)
	}
	return c, nil
}

func (r *memConversationRepo) ListRecentByTenant(_ context.Context, tenantID shared.ID, limit int) ([]*conversation.Conversation, error) {
	r.lastLimit = limit
	var out []*conversation.Conversation
	for _, c := range r.rows {
		if c.TenantID() == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memWorkspaceRepo struct {
	configs map[shared.ID]*slack.WorkspaceConfig
}

func newMemWorkspaceRepo() *memWorkspaceRepo {
	return &memWorkspaceRepo{configs: map[shared.ID]*slack.WorkspaceConfig{}}
}

func (r *memWorkspaceRepo) GetConfig(_ context.Context, tenantID shared.ID) (*slack.WorkspaceConfig, error) {
	if cfg, ok := r.configs[tenantID]; ok {
		return cfg, nil
	}
	return &slack.WorkspaceConfig{}, nil
}

func (r *memWorkspaceRepo) SaveConfig(_ context.Context, tenantID shared.ID, cfg *slack.WorkspaceConfig) error {
	r.configs[tenantID] = cfg
	return nil
}

func (r *memWorkspaceRepo) FindTenantByTeamID(_ context.Context, teamID string) (shared.ID, error) {
	for tenantID, cfg := range r.configs {
		if cfg.IsConfigured && cfg.TeamID == teamID {
			return tenantID, nil
		}
	}
	return shared.ID{}, fmt.Errorf("%w: team %s", shared.ErrNotFound, teamID)
}

type memSlackUserRepo struct {
	byKey map[string]*slack.User
}

func newMemSlackUserRepo() *memSlackUserRepo {
	return &memSlackUserRepo{byKey: map[string]*slack.User{}}
}

func (r *memSlackUserRepo) Save(_ context.Context, u *slack.User) error {
	r.byKey[u.TenantID().String()+"/"+u.SlackUserID()] = u
	return nil
}

func (r *memSlackUserRepo) GetBySlackUserID(_ context.Context, tenantID shared.ID, slackUserID string) (*slack.User, error) {
	u, ok := r.byKey[tenantID.String()+"/"+slackUserID]
	if !ok {
		return nil, fmt.Errorf("%w: slack user %s", shared.ErrNotFound, slackUserID)
	}
	return u, nil
}

func (r *memSlackUserRepo) ListByTenant(_ context.Context, tenantID shared.ID) ([]*slack.User, error) {
	var out []*slack.User
	for _, u := range r.byKey {
		if u.TenantID() == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

// captureEnqueuer records enqueued email payloads.
type captureEnqueuer struct {
	invitations []jobs.InvitationEmailPayload
	welcomes    []jobs.WelcomeEmailPayload
	err         error
}

func (e *captureEnqueuer) EnqueueInvitationEmail(_ context.Context, payload jobs.InvitationEmailPayload) error {
	if e.err != nil {
		return e.err
	}
	e.invitations = append(e.invitations, payload)
	return nil
}

func (e *captureEnqueuer) EnqueueWelcomeEmail(_ context.Context, payload jobs.WelcomeEmailPayload) error {
	if e.err != nil {
		return e.err
	}
	e.welcomes = append(e.welcomes, payload)
	return nil
}

// captureBroadcaster records events per tenant and reports one delivery.
type captureBroadcaster struct {
	tenantIDs []string
	events    []sse.Event
}

func (b *captureBroadcaster) Broadcast(tenantID string, event sse.Event) int {
	b.tenantIDs = append(b.tenantIDs, tenantID)
	b.events = append(b.events, event)
	return 1
}

// fakeGateway is a scriptable SlackGateway.
type fakeGateway struct {
	postResp *slackapi.ChatPostMessageResponse
	postErr  error
	posted   []slackapi.ChatPostMessageRequest

	userInfo    *slackapi.UserInfo
	userInfoErr error

	oauthResp *slackapi.OAuthAccessResponse
	oauthErr  error
}

func (g *fakeGateway) PostMessage(_ context.Context, _ string, req slackapi.ChatPostMessageRequest) (*slackapi.ChatPostMessageResponse, error) {
	g.posted = append(g.posted, req)
	if g.postErr != nil {
		return nil, g.postErr
	}
	return g.postResp, nil
}

func (g *fakeGateway) GetUserInfo(_ context.Context, _ string, _ string) (*slackapi.UserInfo, error) {
	if g.userInfoErr != nil {
		return nil, g.userInfoErr
	}
	if g.userInfo == nil {
		return nil, fmt.Errorf("%w: no scripted user info", shared.ErrNotFound)
	}
	return g.userInfo, nil
}

func (g *fakeGateway) ExchangeOAuthCode(_ context.Context, _ string) (*slackapi.OAuthAccessResponse, error) {
	if g.oauthErr != nil {
		return nil, g.oauthErr
	}
	return g.oauthResp, nil
}
