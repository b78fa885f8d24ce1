// Package conversation contains the conversation aggregate: Slack-sourced
// messages, their reactions, and denormalized thread replies.
package conversation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// Reaction is an emoji reaction aggregated on a conversation.
type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ThreadReply is the denormalized form of a reply kept on its parent.
// Replies also exist as standalone Conversation rows keyed by their own
// timestamp; this value type is the copy embedded in the parent.
type ThreadReply struct {
	ID          string    `json:"id"`
	MessageText string    `json:"messageText"`
	MessageTs   string    `json:"messageTs"`
	UserID      string    `json:"userId"`
	ChannelID   string    `json:"channelId"`
	PostedAt    time.Time `json:"postedAt"`
}

// Conversation is one Slack message. The ID is the Slack message timestamp,
// which doubles as the natural dedup key. A row with ThreadTs set is a
// thread reply that is also denormalized into its parent's reply list.
type Conversation struct {
	id             string
	tenantID       shared.ID
	channelID      string
	channelName    string
	content        string
	userID         string
	userName       string
	reactions      []Reaction
	threadReplies  []ThreadReply
	threadTs       string
	slackTimestamp time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// New creates a top-level Conversation keyed by its Slack timestamp.
func New(id string, tenantID shared.ID, channelID, channelName, content, userID, userName string) (*Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: message timestamp id is required", shared.ErrValidation)
	}
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if channelID == "" {
		return nil, fmt.Errorf("%w: channelID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Conversation{
		id:             id,
		tenantID:       tenantID,
		channelID:      channelID,
		channelName:    channelName,
		content:        content,
		userID:         userID,
		userName:       userName,
		reactions:      []Reaction{},
		threadReplies:  []ThreadReply{},
		slackTimestamp: TimestampToTime(id),
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// NewThreadReplyRow creates the standalone row for a thread reply, keyed
// by the reply's own timestamp and pointing at its parent via threadTs.
func NewThreadReplyRow(id string, tenantID shared.ID, channelID, channelName, content, userID, userName, parentID string) (*Conversation, error) {
	c, err := New(id, tenantID, channelID, channelName, content, userID, userName)
	if err != nil {
		return nil, err
	}
	c.threadTs = parentID
	return c, nil
}

// Reconstitute recreates a Conversation from persistence.
func Reconstitute(
	id string,
	tenantID shared.ID,
	channelID string,
	channelName string,
	content string,
	userID string,
	userName string,
	reactions []Reaction,
	threadReplies []ThreadReply,
	threadTs string,
	slackTimestamp time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Conversation {
	if reactions == nil {
		reactions = []Reaction{}
	}
	if threadReplies == nil {
		threadReplies = []ThreadReply{}
	}
	return &Conversation{
		id:             id,
		tenantID:       tenantID,
		channelID:      channelID,
		channelName:    channelName,
		content:        content,
		userID:         userID,
		userName:       userName,
		reactions:      reactions,
		threadReplies:  threadReplies,
		threadTs:       threadTs,
		slackTimestamp: slackTimestamp,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the conversation ID (the Slack message timestamp).
func (c *Conversation) ID() string {
	return c.id
}

// TenantID returns the owning tenant ID.
func (c *Conversation) TenantID() shared.ID {
	return c.tenantID
}

// ChannelID returns the source channel ID.
func (c *Conversation) ChannelID() string {
	return c.channelID
}

// ChannelName returns the source channel name.
func (c *Conversation) ChannelName() string {
	return c.channelName
}

// Content returns the message text.
func (c *Conversation) Content() string {
	return c.content
}

// UserID returns the author's external (Slack) user ID.
func (c *Conversation) UserID() string {
	return c.userID
}

// UserName returns the author's display name as captured at write time.
func (c *Conversation) UserName() string {
	return c.userName
}

// Reactions returns the aggregated reactions.
func (c *Conversation) Reactions() []Reaction {
	return c.reactions
}

// ThreadReplies returns the denormalized reply list.
func (c *Conversation) ThreadReplies() []ThreadReply {
	return c.threadReplies
}

// ThreadTs returns the parent conversation ID, empty for top-level rows.
func (c *Conversation) ThreadTs() string {
	return c.threadTs
}

// IsThreadReply reports whether this row is itself a reply.
func (c *Conversation) IsThreadReply() bool {
	return c.threadTs != ""
}

// SlackTimestamp returns the source message time.
func (c *Conversation) SlackTimestamp() time.Time {
	return c.slackTimestamp
}

// CreatedAt returns when the row was created.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the row was last updated.
func (c *Conversation) UpdatedAt() time.Time {
	return c.updatedAt
}

// AppendThreadReply adds a reply to the denormalized list, idempotent on
// MessageTs: replaying the same reply never duplicates the entry. Returns
// true when the list actually changed.
func (c *Conversation) AppendThreadReply(r ThreadReply) bool {
	for _, existing := range c.threadReplies {
		if existing.MessageTs == r.MessageTs {
			return false
		}
	}
	c.threadReplies = append(c.threadReplies, r)
	c.updatedAt = time.Now().UTC()
	return true
}

// AddReaction increments a reaction, tracking the reacting user.
func (c *Conversation) AddReaction(name, userID string) {
	for i := range c.reactions {
		if c.reactions[i].Name != name {
			continue
		}
		for _, u := range c.reactions[i].Users {
			if u == userID {
				return
			}
		}
		c.reactions[i].Count++
		c.reactions[i].Users = append(c.reactions[i].Users, userID)
		c.updatedAt = time.Now().UTC()
		return
	}
	c.reactions = append(c.reactions, Reaction{Name: name, Count: 1, Users: []string{userID}})
	c.updatedAt = time.Now().UTC()
}

// RemoveReaction decrements a reaction, dropping it at zero.
func (c *Conversation) RemoveReaction(name, userID string) {
	for i := range c.reactions {
		if c.reactions[i].Name != name {
			continue
		}
		users := c.reactions[i].Users
		for j, u := range users {
			if u == userID {
				c.reactions[i].Users = append(users[:j], users[j+1:]...)
				c.reactions[i].Count--
				break
			}
		}
		if c.reactions[i].Count <= 0 {
			c.reactions = append(c.reactions[:i], c.reactions[i+1:]...)
		}
		c.updatedAt = time.Now().UTC()
		return
	}
}

// UpdateContent replaces the message text (edit events, reply upserts).
func (c *Conversation) UpdateContent(content string) {
	c.content = content
	c.updatedAt = time.Now().UTC()
}

// TimestampToTime converts a Slack timestamp ("1712345678.000200") to a
// time.Time. Malformed input yields the zero time rather than an error;
// the raw string remains the authoritative ordering key.
func TimestampToTime(ts string) time.Time {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}
