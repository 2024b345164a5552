// Copyright (c) 2025 BVK Chaitanya

package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport used by the feed. It is the subset of
// *websocket.Conn the feed needs, so tests can substitute a fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens the transport for a feed connection.
type Dialer func(ctx context.Context, url string) (Conn, error)

func websocketDial(ctx context.Context, url string) (Conn, error) {
	var dialer websocket.Dialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		slog.Error("could not dial to websocket feed", "url", url, "err", err)
		return nil, err
	}
	return conn, nil
}

// readMessage reads one transport message with context cancellation applied
// through the read deadline.
func readMessage(ctx context.Context, conn Conn) ([]byte, error) {
	stopc := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
		close(stopc)
	})

	_, msg, err := conn.ReadMessage()
	if !stop() {
		// The AfterFunc was started. Wait for it to complete, and reset
		// the Conn's deadline.
		<-stopc
		conn.SetReadDeadline(time.Time{})
		return nil, context.Cause(ctx)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}
