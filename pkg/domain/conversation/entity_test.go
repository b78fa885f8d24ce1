package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/shared"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()

	c, err := New("1700000000.000100", shared.NewID(), "C012AB3CD", "support", "the export job is stuck", "U01AAAAAA", "Jamie Rivera")
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	tenantID := shared.NewID()

	_, err := New("", tenantID, "C012AB3CD", "support", "hi", "U01AAAAAA", "Jamie")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = New("1700000000.000100", shared.ID{}, "C012AB3CD", "support", "hi", "U01AAAAAA", "Jamie")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = New("1700000000.000100", tenantID, "", "support", "hi", "U01AAAAAA", "Jamie")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewDerivesSlackTimestampFromID(t *testing.T) {
	c := newTestConversation(t)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), c.SlackTimestamp().Truncate(time.Second))
	assert.False(t, c.IsThreadReply())
	assert.Empty(t, c.ThreadTs())
	assert.Empty(t, c.Reactions())
	assert.Empty(t, c.ThreadReplies())
}

func TestNewThreadReplyRowPointsAtParent(t *testing.T) {
	reply, err := NewThreadReplyRow("1700000001.000200", shared.NewID(), "C012AB3CD", "support", "on it", "U01BBBBBB", "Sam Okafor", "1700000000.000100")
	require.NoError(t, err)

	assert.True(t, reply.IsThreadReply())
	assert.Equal(t, "1700000000.000100", reply.ThreadTs())
	assert.Equal(t, "1700000001.000200", reply.ID())
}

func TestAppendThreadReplyIsIdempotentOnMessageTs(t *testing.T) {
	c := newTestConversation(t)
	reply := ThreadReply{
		ID:          "1700000001.000200",
		MessageText: "on it",
		MessageTs:   "1700000001.000200",
		UserID:      "U01BBBBBB",
		ChannelID:   "C012AB3CD",
		PostedAt:    time.Now().UTC(),
	}

	assert.True(t, c.AppendThreadReply(reply))
	require.Len(t, c.ThreadReplies(), 1)

	// Slack redelivers events; replaying the same reply must not duplicate.
	assert.False(t, c.AppendThreadReply(reply))
	assert.Len(t, c.ThreadReplies(), 1)

	reply2 := reply
	reply2.MessageTs = "1700000002.000300"
	assert.True(t, c.AppendThreadReply(reply2))
	assert.Len(t, c.ThreadReplies(), 2)
}

func TestAddReactionAggregatesPerUser(t *testing.T) {
	c := newTestConversation(t)

	c.AddReaction("eyes", "U01AAAAAA")
	c.AddReaction("eyes", "U01BBBBBB")

	require.Len(t, c.Reactions(), 1)
	assert.Equal(t, 2, c.Reactions()[0].Count)
	assert.ElementsMatch(t, []string{"U01AAAAAA", "U01BBBBBB"}, c.Reactions()[0].Users)

	// Same user reacting twice with the same emoji is a no-op.
	c.AddReaction("eyes", "U01AAAAAA")
	assert.Equal(t, 2, c.Reactions()[0].Count)

	c.AddReaction("rocket", "U01AAAAAA")
	assert.Len(t, c.Reactions(), 2)
}

func TestRemoveReactionDropsEmptyEntry(t *testing.T) {
	c := newTestConversation(t)
	c.AddReaction("eyes", "U01AAAAAA")
	c.AddReaction("eyes", "U01BBBBBB")

	c.RemoveReaction("eyes", "U01AAAAAA")
	require.Len(t, c.Reactions(), 1)
	assert.Equal(t, 1, c.Reactions()[0].Count)
	assert.Equal(t, []string{"U01BBBBBB"}, c.Reactions()[0].Users)

	c.RemoveReaction("eyes", "U01BBBBBB")
	assert.Empty(t, c.Reactions())

	// Removing an absent reaction is a no-op.
	c.RemoveReaction("eyes", "U01CCCCCC")
	assert.Empty(t, c.Reactions())
}

func TestRemoveReactionIgnoresNonReactingUser(t *testing.T) {
	c := newTestConversation(t)
	c.AddReaction("eyes", "U01AAAAAA")

	c.RemoveReaction("eyes", "U01BBBBBB")
	require.Len(t, c.Reactions(), 1)
	assert.Equal(t, 1, c.Reactions()[0].Count)
}

func TestUpdateContent(t *testing.T) {
	c := newTestConversation(t)
	before := c.UpdatedAt()

	c.UpdateContent("the export job is stuck (edited)")
	assert.Equal(t, "the export job is stuck (edited)", c.Content())
	assert.False(t, c.UpdatedAt().Before(before))
}

func TestTimestampToTime(t *testing.T) {
	ts := TimestampToTime("1712345678.000200")
	assert.Equal(t, int64(1712345678), ts.Unix())

	assert.True(t, TimestampToTime("not-a-timestamp").IsZero())
	assert.True(t, TimestampToTime("").IsZero())
}
