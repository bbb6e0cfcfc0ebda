package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Index24/live-docs/internal/domain"
)

func receive(t *testing.T, c *Client) domain.RevalidationEvent {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send 通道不应被关闭")
		var event domain.RevalidationEvent
		require.NoError(t, json.Unmarshal(msg, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for revalidation message")
	}
	return domain.RevalidationEvent{}
}

func TestHub_DispatchOnlyToSubscribedPath(t *testing.T) {
	h := NewHub()
	home := NewClient(h, nil, "/", "alice@example.com")
	doc := NewClient(h, nil, "/documents/room-1", "bob@example.com")
	h.registerClient(home)
	h.registerClient(doc)

	h.dispatch(domain.RevalidationEvent{Type: domain.RevalidationEventType, Path: "/documents/room-1"})

	event := receive(t, doc)
	assert.Equal(t, "/documents/room-1", event.Path)
	assert.Empty(t, home.send, "未订阅该路径的客户端不应收到消息")
}

func TestHub_UnregisterClosesSendAndDropsEmptyPath(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, "/", "alice@example.com")
	h.registerClient(c)
	require.Equal(t, 1, h.ClientCount("/"))

	h.unregisterClient(c)

	assert.Equal(t, 0, h.ClientCount("/"))
	_, ok := <-c.send
	assert.False(t, ok)

	// 重复注销不应 panic
	assert.NotPanics(t, func() { h.unregisterClient(c) })
}

func TestHub_FullSendChannelDoesNotBlock(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, "/", "alice@example.com")
	h.registerClient(c)
	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("x")
	}

	done := make(chan struct{})
	go func() {
		h.dispatch(domain.RevalidationEvent{Type: domain.RevalidationEventType, Path: "/"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full client")
	}
}

func TestHub_RunForwardsEventsAndStopsOnCancel(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, "/inbox/bob@example.com", "bob@example.com")
	h.registerClient(c)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan domain.RevalidationEvent, 1)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx, events)
		close(stopped)
	}()

	events <- domain.RevalidationEvent{Type: domain.RevalidationEventType, Path: "/inbox/bob@example.com"}
	assert.Equal(t, "/inbox/bob@example.com", receive(t, c).Path)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after cancel")
	}
	_, ok := <-c.send
	assert.False(t, ok, "Hub 停止时应关闭所有客户端")
}

func TestHub_QueueMessageRegisters(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, "/", "alice@example.com")

	require.True(t, h.QueueMessage(HubMessage{Type: "register", Client: c}))
	msg := <-h.messageChan
	h.registerClient(msg.Client)

	assert.Equal(t, 1, h.ClientCount("/"))
}
