package sse

import (
	"bufio"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioapp/folio-server/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m, cancel
}

func TestConnectDisconnect(t *testing.T) {
	m, _ := newTestManager(t)

	client := m.Connect()
	assert.NotEmpty(t, client.ID)
	assert.True(t, strings.HasPrefix(client.ID, "sse-"))
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Disconnecting twice is harmless.
	m.Disconnect(client.ID)
}

func TestEmit_ReachesAllClients(t *testing.T) {
	m, _ := newTestManager(t)

	a := m.Connect()
	b := m.Connect()

	book := &domain.Book{ID: "book-1", Title: "Moby Dick"}
	m.Emit(NewBookImportedEvent(book))

	for _, client := range []*Client{a, b} {
		select {
		case event := <-client.EventChan:
			assert.Equal(t, EventBookImported, event.Type)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestEmit_AfterShutdownIsDropped(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	defer cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, m.Shutdown(shutdownCtx))

	// Must not panic on the closed channel.
	m.Emit(NewBookDeletedEvent("book-1"))
}

func TestHandler_StreamsEvents(t *testing.T) {
	m, _ := newTestManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// First event on the wire is the connected handshake.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// Wait for the client to register, then emit.
	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, time.Millisecond)
	m.Emit(NewSettingsUpdatedEvent(domain.DefaultReaderSettings()))

	// Scan forward until the emitted event arrives.
	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("settings event never arrived")
		default:
		}
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: settings.updated\n" {
			data, err := reader.ReadString('\n')
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(data, "data: "))
			assert.Contains(t, data, `"font_size_px":16`)
			return
		}
	}
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m, _ := newTestManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest("POST", "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, 405, rec.Code)
}
