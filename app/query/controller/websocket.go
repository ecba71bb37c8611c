package controller

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/retry"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	confirmWait  = 5 * time.Second
	outboxSize   = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ClientMessage is a request from a WebSocket client. Set is a set name or a
// glob over set names such as "pools.*".
type ClientMessage struct {
	Action string `json:"action"`
	Set    string `json:"set"`
}

// ServerMessage is a frame sent to a WebSocket client. Type is one of
// command, subscribed, unsubscribed, info or error.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type setPayload struct {
	Set string `json:"set"`
}

type notice struct {
	Message string  `json:"message"`
	Attempt int     `json:"attempt,omitempty"`
	RetryIn float64 `json:"retry_in,omitempty"`
}

func errorMessage(format string, args ...interface{}) ServerMessage {
	return ServerMessage{Type: "error", Payload: notice{Message: fmt.Sprintf(format, args...)}}
}

type clientSubscriptions struct {
	sets *xsync.Map[string, struct{}]
}

func NewClientSubscriptions() *clientSubscriptions {
	return &clientSubscriptions{sets: xsync.NewMap[string, struct{}]()}
}

func (cs *clientSubscriptions) Subscribe(set string) { cs.sets.Store(set, struct{}{}) }

func (cs *clientSubscriptions) Unsubscribe(set string) { cs.sets.Delete(set) }

// IsSubscribed reports whether set was subscribed by name or matches a
// subscribed glob.
func (cs *clientSubscriptions) IsSubscribed(set string) bool {
	if _, ok := cs.sets.Load(set); ok {
		return true
	}
	found := false
	cs.sets.Range(func(pattern string, _ struct{}) bool {
		if strings.ContainsAny(pattern, "*?[") {
			found, _ = path.Match(pattern, set)
		}
		return !found
	})
	return found
}

// apply handles one client request and returns the reply for it.
func (cs *clientSubscriptions) apply(msg ClientMessage) ServerMessage {
	switch msg.Action {
	case "subscribe":
		if msg.Set == "" {
			return errorMessage("set is required")
		}
		cs.Subscribe(msg.Set)
		return ServerMessage{Type: "subscribed", Payload: setPayload{Set: msg.Set}}
	case "unsubscribe":
		if msg.Set == "" {
			return errorMessage("set is required")
		}
		cs.Unsubscribe(msg.Set)
		return ServerMessage{Type: "unsubscribed", Payload: setPayload{Set: msg.Set}}
	default:
		return errorMessage("unknown action: %s", msg.Action)
	}
}

// SetFromChannel returns the set a per-set channel carries, or "" when the
// channel is outside prefix. Set names contain ':' so the prefix is trimmed
// rather than the channel split.
func SetFromChannel(prefix, channel string) string {
	set, ok := strings.CutPrefix(channel, prefix)
	if !ok {
		return ""
	}
	return set
}

// session is one WebSocket client. The writer goroutine owns every write on conn.
type session struct {
	c      *Controller
	conn   *websocket.Conn
	subs   *clientSubscriptions
	outbox chan ServerMessage
	logger *zap.Logger
}

// HandleWebSocket streams set changes to the client. After upgrading, the
// client sends {"action":"subscribe","set":"pools.*"} and receives
// {"type":"command","payload":<feed event>} for every matching change.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	s := &session{
		c:      c,
		conn:   conn,
		subs:   NewClientSubscriptions(),
		outbox: make(chan ServerMessage, outboxSize),
		logger: c.App.Logger.With(zap.String("remote_addr", r.RemoteAddr)),
	}
	s.logger.Info("WebSocket client connected")
	s.run(r.Context())
	s.logger.Info("WebSocket client disconnected")
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	// closing the connection is what unblocks read when another goroutine ends the session
	context.AfterFunc(ctx, func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("WebSocket close failed", zap.Error(err))
		}
	})

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Error("WebSocket goroutine panicked",
						zap.String("goroutine", name),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())))
				}
			}()
			fn(ctx)
		}()
	}
	spawn("feed", s.follow)
	spawn("writer", s.write)

	s.read(ctx)
	cancel()
	wg.Wait()
}

func (s *session) push(ctx context.Context, msg ServerMessage) bool {
	select {
	case s.outbox <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// follow keeps a pattern subscription over every per-set channel open,
// resubscribing with backoff when Redis drops it.
func (s *session) follow(ctx context.Context) {
	backoff := retry.ReconnectConfig().NewBackoff()
	for {
		err := s.relay(ctx, backoff)
		if ctx.Err() != nil {
			return
		}
		delay := backoff.Next()
		s.logger.Warn("Redis subscription lost",
			zap.Int("attempt", backoff.Attempt()),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		if !s.push(ctx, ServerMessage{Type: "error", Payload: notice{
			Message: "redis subscription lost, reconnecting",
			Attempt: backoff.Attempt(),
			RetryIn: delay.Seconds(),
		}}) {
			return
		}
		if !retry.Wait(ctx, delay) {
			return
		}
	}
}

// relay subscribes once and forwards matching events until the subscription
// ends. A nil error means Redis closed the channel.
func (s *session) relay(ctx context.Context, backoff *retry.Backoff) error {
	pattern := s.c.App.Store.ChannelPattern()
	ps := s.c.App.Redis.PSubscribe(ctx, pattern)
	defer func() { _ = ps.Close() }()

	confirmCtx, cancel := context.WithTimeout(ctx, confirmWait)
	_, err := ps.Receive(confirmCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", pattern, err)
	}
	if backoff.Attempt() > 0 {
		if !s.push(ctx, ServerMessage{Type: "info", Payload: notice{Message: "redis subscription restored", Attempt: backoff.Attempt()}}) {
			return ctx.Err()
		}
		backoff.Reset()
	}
	return s.forward(ctx, ps)
}

func (s *session) forward(ctx context.Context, ps *redis.PubSub) error {
	prefix := s.c.App.Store.Channel("")
	ch := ps.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg = m
		}

		set := SetFromChannel(prefix, msg.Channel)
		if set == "" || !s.subs.IsSubscribed(set) {
			continue
		}
		ev, err := crdt.DecodeFeedEvent([]byte(msg.Payload))
		if err != nil {
			s.logger.Warn("Dropping undecodable feed event", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if !s.push(ctx, ServerMessage{Type: "command", Payload: ev}) {
			return ctx.Err()
		}
	}
}

// write sends queued frames and pings until ctx ends or a write fails.
func (s *session) write(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("WebSocket ping failed", zap.Error(err))
				return
			}
		case msg := <-s.outbox:
			frame, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("Failed to encode WebSocket frame", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// read applies client requests until the connection closes or goes quiet
// for longer than pongWait.
func (s *session) read(ctx context.Context) {
	extend := func() error { return s.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	if err := extend(); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}
		if err := extend(); err != nil {
			return
		}

		var reply ServerMessage
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = errorMessage("malformed message: %v", err)
		} else {
			reply = s.subs.apply(msg)
			s.logger.Debug("Client request", zap.String("action", msg.Action), zap.String("set", msg.Set), zap.String("reply", reply.Type))
		}
		if !s.push(ctx, reply) {
			return
		}
	}
}
