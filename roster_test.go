package main

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/ghostly/ghosts"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRoster(t *testing.T, base string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readRoster(t *testing.T, conn *websocket.Conn) RosterMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg RosterMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestRosterMessageHidesEmail(t *testing.T) {
	pool, err := ghosts.New([]ghosts.Record{
		{Name: "Casper"},
		{Name: "Slimer", Holder: ghosts.Holder{First: "Ann", Family: "Lee", Email: "ann@x.com"}, Taken: true},
	})
	require.NoError(t, err)

	msg := newRosterMessage(pool)

	assert.Equal(t, "roster", msg.Type)
	assert.Equal(t, []RosterEntry{{Name: "Slimer", First: "Ann", Family: "Lee"}}, msg.Taken)
	assert.Equal(t, []RosterEntry{{Name: "Casper"}}, msg.Free)
}

func TestRosterPushesClaims(t *testing.T) {
	s := newTestSite(t, testConfig(), "Casper", "Slimer", "Boo", "Zuul")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.roster.run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := startServer(t, s)
	conn := dialRoster(t, srv.URL)

	first := readRoster(t, conn)
	assert.Empty(t, first.Taken)
	assert.Len(t, first.Free, 4)

	c := newTestClient(t)
	login(t, c, srv.URL)

	resp := post(t, c, srv.URL+"/name-select", url.Values{"first_name": {"Ann"}, "family_name": {"Lee"}})
	offered := candidates(body(t, resp))
	require.NotEmpty(t, offered)

	resp = post(t, c, srv.URL+"/submit", url.Values{"ghost_name": {offered[0]}})
	resp.Body.Close()

	update := readRoster(t, conn)
	assert.Equal(t, []RosterEntry{{Name: offered[0], First: "Ann", Family: "Lee"}}, update.Taken)
	assert.Len(t, update.Free, 3)
}

func TestRosterClosesClientsOnShutdown(t *testing.T) {
	s := newTestSite(t, testConfig(), "Casper")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.roster.run(ctx) }()

	srv := startServer(t, s)
	conn := dialRoster(t, srv.URL)
	readRoster(t, conn)

	cancel()
	require.NoError(t, <-done)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
