/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"

	"github.com/Seednode/ghostly/ghosts"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// RosterEntry is the public view of a record. Emails never leave the server.
type RosterEntry struct {
	Name   string `json:"name"`
	First  string `json:"first,omitempty"`
	Family string `json:"family,omitempty"`
}

// Sent to clients on connect and after every change
type RosterMessage struct {
	Type  string        `json:"type"` // "roster"
	Taken []RosterEntry `json:"taken"`
	Free  []RosterEntry `json:"free"`
}

func newRosterMessage(pool *ghosts.Store) RosterMessage {
	msg := RosterMessage{
		Type:  "roster",
		Taken: []RosterEntry{},
		Free:  []RosterEntry{},
	}

	for _, r := range pool.All() {
		if r.Taken {
			msg.Taken = append(msg.Taken, RosterEntry{Name: r.Name, First: r.Holder.First, Family: r.Holder.Family})
		} else {
			msg.Free = append(msg.Free, RosterEntry{Name: r.Name})
		}
	}

	return msg
}

type rosterClient struct {
	conn *websocket.Conn
	send chan any
}

// rosterHub pushes the roster to every connected browser whenever a name
// is claimed or released.
type rosterHub struct {
	pool    *ghosts.Store
	clients map[*rosterClient]bool

	register chan *rosterClient
	unreg    chan *rosterClient
	changed  chan struct{}
	done     chan struct{}
}

func newRosterHub(pool *ghosts.Store) *rosterHub {
	return &rosterHub{
		pool:     pool,
		clients:  make(map[*rosterClient]bool),
		register: make(chan *rosterClient),
		unreg:    make(chan *rosterClient),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (h *rosterHub) run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return nil

		case c := <-h.register:
			h.clients[c] = true
			h.deliver(c, newRosterMessage(h.pool))

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case <-h.changed:
			msg := newRosterMessage(h.pool)
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver drops clients that cannot keep up.
func (h *rosterHub) deliver(c *rosterClient, msg RosterMessage) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// notify coalesces changes; a pending broadcast already carries the
// latest state.
func (h *rosterHub) notify() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *rosterHub) serveWS(cfg *Config) httprouter.Handle {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ROSTER: upgrade from %s failed: %v", realIP(r), err)
			return
		}

		client := &rosterClient{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "ROSTER: %s subscribed", realIP(r))

		go client.writePump()
		client.readPump(h)
	}
}

// readPump only watches for the connection closing; clients never send.
func (c *rosterClient) readPump(h *rosterHub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *rosterClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
