package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.NewNop())
}

// drainFrame pops one queued frame and decodes it.
func drainFrame(t *testing.T, sub *Subscriber) Event {
	t.Helper()

	select {
	case frame := <-sub.Frames():
		var event Event
		payload := frame[len("data: ") : len(frame)-2]
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return Event{}
	}
}

func TestSubscribeQueuesConnectedFrame(t *testing.T) {
	hub := newTestHub()

	sub, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)

	event := drainFrame(t, sub)
	assert.Equal(t, EventConnected, event.Type)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, 1, hub.SubscriberCount("tenant-a"))
}

func TestBroadcastIsTenantScoped(t *testing.T) {
	hub := newTestHub()

	subA, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)
	subB, err := hub.Subscribe("tenant-b")
	require.NoError(t, err)
	drainFrame(t, subA)
	drainFrame(t, subB)

	delivered := hub.Broadcast("tenant-a", NewConversationUpdateEvent(ConversationUpdate{
		Type:           "new_message",
		ConversationID: "1700000000.000100",
	}))
	assert.Equal(t, 1, delivered)

	event := drainFrame(t, subA)
	assert.Equal(t, EventConversationUpdate, event.Type)

	select {
	case <-subB.Frames():
		t.Fatal("subscriber of another tenant received the event")
	default:
	}
}

func TestBroadcastWithoutSubscribersIsDropped(t *testing.T) {
	hub := newTestHub()

	delivered := hub.Broadcast("tenant-a", NewHeartbeatEvent())
	assert.Equal(t, 0, delivered)

	// A subscriber joining afterwards sees only its connected frame, never
	// a replay of earlier events.
	sub, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)

	event := drainFrame(t, sub)
	assert.Equal(t, EventConnected, event.Type)
	select {
	case <-sub.Frames():
		t.Fatal("late subscriber received a replayed event")
	default:
	}
}

func TestUnsubscribeRemovesEmptyTenantEntry(t *testing.T) {
	hub := newTestHub()

	sub, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)
	require.Equal(t, 1, hub.SubscriberCount("tenant-a"))

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount("tenant-a"))
	assert.Equal(t, 0, hub.TotalSubscribers())

	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed on unsubscribe")
	}

	// Idempotent: a second removal of the same handle is a no-op.
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.TotalSubscribers())
}

func TestBroadcastPrunesDeadSubscribers(t *testing.T) {
	hub := newTestHub()

	dead, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)
	live, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)
	drainFrame(t, live)

	// The dead handle never drains; fill its queue to capacity.
	for i := 0; i < subscriberBuffer-1; i++ {
		hub.Broadcast("tenant-a", NewHeartbeatEvent())
		drainFrame(t, live)
	}

	prunedBefore := testutil.ToFloat64(metrics.StreamSubscribersPruned)

	delivered := hub.Broadcast("tenant-a", NewHeartbeatEvent())
	assert.Equal(t, 1, delivered)
	drainFrame(t, live)

	assert.Equal(t, 1, hub.SubscriberCount("tenant-a"))
	assert.Equal(t, prunedBefore+1, testutil.ToFloat64(metrics.StreamSubscribersPruned))
	select {
	case <-dead.Done():
	default:
		t.Fatal("dead subscriber was not closed")
	}

	// The survivor still receives subsequent events.
	hub.Broadcast("tenant-a", NewHeartbeatEvent())
	event := drainFrame(t, live)
	assert.Equal(t, EventHeartbeat, event.Type)
}

func TestCloseRejectsNewSubscriptions(t *testing.T) {
	hub := newTestHub()

	sub, err := hub.Subscribe("tenant-a")
	require.NoError(t, err)

	hub.Close()
	assert.Equal(t, 0, hub.TotalSubscribers())
	select {
	case <-sub.Done():
	default:
		t.Fatal("subscriber not closed on hub close")
	}

	_, err = hub.Subscribe("tenant-a")
	assert.Error(t, err)
}

func TestEventFrameFormat(t *testing.T) {
	event := NewConversationUpdateEvent(ConversationUpdate{
		Type:                 "new_thread_reply",
		ConversationID:       "1700000001.000200",
		ParentConversationID: "1700000000.000100",
		Content:              "on it",
		UserName:             "Jamie Rivera",
	})

	frame, err := event.Frame()
	require.NoError(t, err)

	assert.True(t, len(frame) > 8)
	assert.Equal(t, "data: ", string(frame[:6]))
	assert.Equal(t, "\n\n", string(frame[len(frame)-2:]))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame[6:len(frame)-2], &decoded))
	assert.Equal(t, "conversation_update", decoded["type"])
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new_thread_reply", data["type"])
	assert.Equal(t, "1700000000.000100", data["parentConversationId"])
}
