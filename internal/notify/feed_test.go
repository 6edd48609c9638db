package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedSince(t *testing.T) {
	h := NewHub()
	since := time.Now()

	assert.False(t, h.ChangedSince("t1", since))

	h.Publish(Event{TaskID: "t1", NoteID: "n1", Kind: "note.created"})
	assert.True(t, h.ChangedSince("t1", since))
	// 其它周报不受影响
	assert.False(t, h.ChangedSince("t2", since))
}

func TestWaitReturnsImmediatelyOnPastChange(t *testing.T) {
	h := NewHub()
	since := time.Now().Add(-time.Minute)
	h.Publish(Event{TaskID: "t1", NoteID: "n1", Kind: "note.created"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	ev, changed := h.Wait(ctx, "t1", since)
	require.True(t, changed)
	assert.Equal(t, "t1", ev.TaskID)
	// 不该真的挂起
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWaitTimesOutWithoutChange(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, changed := h.Wait(ctx, "t1", time.Now())
	assert.False(t, changed)
}

func TestWaitWakesOnPublish(t *testing.T) {
	h := NewHub()
	since := time.Now()

	go func() {
		time.Sleep(20 * time.Millisecond)
		h.Publish(Event{TaskID: "t1", NoteID: "n1", Kind: "note.created"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev, changed := h.Wait(ctx, "t1", since)
	require.True(t, changed)
	assert.Equal(t, "n1", ev.NoteID)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("t1")

	h.Publish(Event{TaskID: "t1", NoteID: "n1", Kind: "note.created"})
	select {
	case ev := <-ch:
		assert.Equal(t, "n1", ev.NoteID)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	cancel()
	h.Publish(Event{TaskID: "t1", NoteID: "n2", Kind: "note.created"})
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event after cancel: %v", ev)
		}
	default:
	}
}
