package observe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	v := NewValue(1)
	assert.Equal(t, 1, v.Get())

	v.Set(2)
	assert.Equal(t, 2, v.Get())
}

func TestSubscribe_ReceivesCurrentImmediately(t *testing.T) {
	v := NewValue("initial")

	ch, cancel := v.Subscribe()
	defer cancel()

	select {
	case got := <-ch:
		assert.Equal(t, "initial", got)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot delivered")
	}
}

func TestSubscribe_ReceivesUpdates(t *testing.T) {
	v := NewValue(0)

	ch, cancel := v.Subscribe()
	defer cancel()
	<-ch // initial

	v.Set(42)

	select {
	case got := <-ch:
		assert.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("update not delivered")
	}
}

func TestSubscribe_SlowSubscriberSeesLatest(t *testing.T) {
	v := NewValue(0)

	ch, cancel := v.Subscribe()
	defer cancel()

	// Flood well past the buffer without draining.
	for i := 1; i <= subscriberBuffer*3; i++ {
		v.Set(i)
	}

	// Drain everything queued; the final value must be the latest snapshot.
	var last int
	for {
		select {
		case got := <-ch:
			last = got
		default:
			require.Equal(t, subscriberBuffer*3, last)
			return
		}
	}
}

func TestCancel_RemovesSubscriber(t *testing.T) {
	v := NewValue(0)

	_, cancel := v.Subscribe()
	assert.Equal(t, 1, v.SubscriberCount())

	cancel()
	assert.Equal(t, 0, v.SubscriberCount())

	// Double-cancel is harmless.
	cancel()
	assert.Equal(t, 0, v.SubscriberCount())
}
