package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/nirvaan-oms/api/internal/client"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/ws"
	"github.com/rs/zerolog"
)

const (
	// The server pings every 54s.
	readWait  = 70 * time.Second
	writeWait = 10 * time.Second

	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// EventSource locates the push endpoint and can renew the credentials it
// embeds. Satisfied by *client.Client.
type EventSource interface {
	EventsURL() (string, error)
	Login(ctx context.Context) (client.User, error)
}

// Subscriber feeds push events into a Syncer, reconnecting with backoff.
type Subscriber struct {
	source     EventSource
	syncer     *Syncer
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
	log        zerolog.Logger
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(source EventSource, syncer *Syncer) *Subscriber {
	return &Subscriber{
		source:     source,
		syncer:     syncer,
		dialer:     &websocket.Dialer{HandshakeTimeout: writeWait},
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		log:        logger.With("subscriber"),
	}
}

// Run keeps a connection open until ctx is done. Every reconnect is followed
// by a refresh, since events may have been missed while disconnected.
func (s *Subscriber) Run(ctx context.Context) error {
	bo := newReconnectBackOff(s.minBackoff, s.maxBackoff)
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		s.log.Warn().Err(err).Dur("retry_in", wait).Msg("event stream disconnected")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// newReconnectBackOff doubles the delay from initial up to maxInterval, with jitter,
// and never gives up.
func newReconnectBackOff(initial, maxInterval time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = maxInterval
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// session dials once and reads until the connection fails. connected
// reports whether the handshake succeeded.
func (s *Subscriber) session(ctx context.Context) (connected bool, err error) {
	url, err := s.source.EventsURL()
	if err != nil {
		return false, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			if _, lerr := s.source.Login(ctx); lerr != nil {
				return false, fmt.Errorf("renew token: %w", lerr)
			}
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock the read below on shutdown.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	s.log.Info().Msg("event stream connected")
	if _, err := s.syncer.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refresh after connect failed")
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		// Queued events arrive newline-separated in one frame.
		for _, line := range bytes.Split(msg, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var ev ws.Event
			if err := json.Unmarshal(line, &ev); err != nil {
				s.log.Warn().Err(err).Msg("skipping malformed event")
				continue
			}
			if err := s.syncer.ApplyEvent(ctx, ev); err != nil {
				s.log.Warn().Err(err).Str("event", ev.Type).Msg("apply event")
			}
		}
	}
}
