// internal/handlers/race_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/typerace/internal/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 8 << 10
)

// WSOptions tunes the race websocket endpoint.
type WSOptions struct {
	OriginPatterns []string
	SendBuffer     int

	// MsgRate and MsgBurst throttle inbound frames per connection. A
	// non-positive MsgRate disables throttling.
	MsgRate  float64
	MsgBurst int
}

// RaceWSHandler upgrades to a websocket, assigns the connection a fresh id
// and pumps frames between the socket, the gateway and the hub. Open
// connections are closed with ServerShutdownError once srvCtx is cancelled.
func RaceWSHandler(srvCtx context.Context, logger logrus.FieldLogger, hub *Hub, gw *Gateway, opts WSOptions) http.HandlerFunc {
	origins := opts.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.CloseNow()
		c.SetReadLimit(readLimit)

		connID := uuid.NewString()
		remoteAddr := r.RemoteAddr
		connLog := logger.WithField("conn", connID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := NewClient(connID, opts.SendBuffer, func() {
			go c.Close(SlowConsumerError, "outbound buffer overflow")
		})
		stop := context.AfterFunc(srvCtx, func() {
			c.Close(ServerShutdownError, "server shutting down")
		})
		defer stop()

		hub.Register(client)
		middleware.LogWebSocketConnect(logger, connID, remoteAddr)

		limiter := rate.NewLimiter(rate.Inf, 0)
		if opts.MsgRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.MsgRate), max(opts.MsgBurst, 1))
		}

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			writePump(ctx, cancel, c, client, connLog)
		}()

		err = readPump(ctx, c, client, gw, limiter, connLog)

		// The disconnect sweep is queued behind everything this connection
		// already submitted.
		cancel()
		gw.Disconnect(connID)
		hub.Unregister(connID)
		<-writerDone

		c.Close(websocket.StatusNormalClosure, "")
		middleware.LogWebSocketDisconnect(logger, connID, remoteAddr, closeCause(err))
	}
}

// readPump forwards text frames to the gateway until the connection fails
// or ctx is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, client *Client, gw *Gateway, limiter *rate.Limiter, logger logrus.FieldLogger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message type %d", typ)
			continue
		}
		// Flooding clients are slowed down, never dropped.
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := gw.Submit(ctx, client.ID, msg); err != nil {
			return err
		}
	}
}

// writePump drains the client's outbound buffer to the socket and keeps the
// connection alive with periodic pings. A failed write or ping cancels ctx.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, client *Client, logger logrus.FieldLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-client.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal %s event: %v", ev.Type, err)
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				logger.Warnf("failed to write to websocket: %v", err)
				cancel()
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Warnf("ping failed: %v. Assuming disconnect.", err)
				cancel()
				return
			}
		}
	}
}

// closeCause hides the errors that describe an orderly close.
func closeCause(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
