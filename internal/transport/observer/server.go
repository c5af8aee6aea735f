package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"agentgrid.ai/internal/observerproto"
)

// Server fans trial and tick frames out to loopback websocket observers.
// Publishing never blocks: a subscriber that falls behind loses frames.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu        sync.RWMutex
	subs      map[string]*subscriber
	lastTrial *observerproto.TrialMsg
}

type subscriber struct {
	id  string
	out chan []byte

	mu     sync.Mutex
	filter observerproto.SubscribeMsg

	dropped atomic.Uint64
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log:  logger,
		subs: map[string]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Server) PublishTrial(m observerproto.TrialMsg) {
	s.mu.Lock()
	s.lastTrial = &m
	s.mu.Unlock()

	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	s.broadcast(b, func(f observerproto.SubscribeMsg) bool {
		return matches(f, m.Scenario, m.AgentType)
	})
}

func (s *Server) PublishTick(m observerproto.TickMsg) {
	if s.Subscribers() == 0 {
		return
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	s.broadcast(b, func(f observerproto.SubscribeMsg) bool {
		return matches(f, m.Scenario, m.AgentType) && (m.Tick-1)%uint64(f.EveryTicks) == 0
	})
}

func (s *Server) broadcast(b []byte, keep func(observerproto.SubscribeMsg) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		sub.mu.Lock()
		f := sub.filter
		sub.mu.Unlock()
		if !keep(f) {
			continue
		}
		select {
		case sub.out <- b:
		default:
			sub.dropped.Add(1)
		}
	}
}

func matches(f observerproto.SubscribeMsg, scenario, agentType string) bool {
	if f.Scenario != "" && f.Scenario != scenario {
		return false
	}
	return f.AgentType == "" || f.AgentType == agentType
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.RLock()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Subscribers:     len(s.subs),
			Trial:           s.lastTrial,
		}
		s.mu.RUnlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		o := &subscriber{
			id:     fmt.Sprintf("O%d", s.nextID.Add(1)),
			out:    make(chan []byte, 1024),
			filter: sub,
		}
		s.mu.Lock()
		s.subs[o.id] = o
		s.mu.Unlock()
		s.logf("observer %s subscribed from %s (scenario=%q agent_type=%q every=%d)", o.id, r.RemoteAddr, sub.Scenario, sub.AgentType, sub.EveryTicks)
		defer func() {
			s.mu.Lock()
			delete(s.subs, o.id)
			s.mu.Unlock()
			s.logf("observer %s left (dropped %d frames)", o.id, o.dropped.Load())
		}()

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine. A failed write closes the conn, which ends the reader.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-o.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			o.mu.Lock()
			o.filter = sub
			o.mu.Unlock()
		}

		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	sub.Scenario = strings.TrimSpace(sub.Scenario)
	sub.AgentType = strings.TrimSpace(sub.AgentType)
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = 1
	}
	if sub.EveryTicks > 1000 {
		sub.EveryTicks = 1000
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
