package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	id   string
	err  error
	mu   sync.Mutex
	msgs []Message
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return c.err
}

func (c *recordingConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func TestRegistryPublishReachesAll(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Second, zap.NewNop())
	failing := &recordingConn{id: "a", err: errors.New("closed")}
	ok := &recordingConn{id: "b"}
	reg.Subscribe(failing)
	reg.Subscribe(ok)
	require.Equal(t, 2, reg.Len())

	msg := SearchDoneMessage{Done: true}
	require.NoError(t, reg.Send(context.Background(), msg))
	require.Equal(t, []Message{msg}, failing.received())
	require.Equal(t, []Message{msg}, ok.received())
}

func TestRegistryUnsubscribe(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(0, nil)
	conn := &recordingConn{id: "a"}
	reg.Subscribe(conn)
	reg.Subscribe(conn)
	require.Equal(t, 1, reg.Len())

	reg.Unsubscribe("a")
	reg.Unsubscribe("missing")
	require.Zero(t, reg.Len())

	reg.Publish(context.Background(), SummaryMessage{})
	require.Empty(t, conn.received())
}

func TestRegistryConcurrentUse(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(time.Second, zap.NewNop())
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &recordingConn{id: string(rune('a' + i))}
			reg.Subscribe(conn)
			reg.Publish(context.Background(), SummaryMessage{})
			reg.Unsubscribe(conn.ID())
		}()
	}
	wg.Wait()
	require.Zero(t, reg.Len())
}

func TestListenerFunc(t *testing.T) {
	t.Parallel()

	var got Message
	l := ListenerFunc(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})
	require.NoError(t, l.Send(context.Background(), SummaryMessage{}))
	require.Equal(t, SummaryMessage{}, got)
	require.NoError(t, Discard.Send(context.Background(), SummaryMessage{}))
}
