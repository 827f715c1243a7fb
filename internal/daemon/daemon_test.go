package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShutdownFiresOnce(t *testing.T) {
	s := NewShutdown(context.Background())
	require.False(t, s.Fired())
	s.Fire()
	s.Fire()
	require.True(t, s.Fired())
	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done channel closed")
	}
}

func TestProgressTrackerUpdateAndClear(t *testing.T) {
	p := NewProgressTracker()
	_, ok := p.Snapshot("tok1")
	require.False(t, ok)

	p.Update(ProgressEvent{Token: "tok1", Progress: 3, Total: 10})
	ev, ok := p.Snapshot("tok1")
	require.True(t, ok)
	require.Equal(t, 3, ev.Progress)

	p.Clear("tok1")
	_, ok = p.Snapshot("tok1")
	require.False(t, ok)
}

func TestBroadcastPublishReachesSubscribers(t *testing.T) {
	b := NewBroadcast()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish("tools/list_changed")

	select {
	case msg := <-ch:
		require.Equal(t, "tools/list_changed", msg)
	case <-time.After(time.Second):
		t.Fatal("expected message on subscriber channel")
	}
}

func TestMetricsRecordDispatch(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch("search", true, 0.01)
	m.RecordDispatch("search", false, 0.02)
	m.SetBreakerState("embedding", 1)
}
