package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"agentgrid.ai/internal/observerproto"
)

func main() {
	var (
		url       = flag.String("url", "ws://127.0.0.1:8081/observer/ws", "observer ws url")
		scenario  = flag.String("scenario", "", "only this scenario")
		agentType = flag.String("agent_type", "", "only this agent type")
		every     = flag.Int("every", 10, "print every Nth tick")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		Scenario:        *scenario,
		AgentType:       *agentType,
		EveryTicks:      *every,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case observerproto.TypeTrial:
			var m observerproto.TrialMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("TRIAL %s/%s #%d seed=%d %dx%d resources=%d goals=%d hazards=%d walls=%d",
				m.Scenario, m.AgentType, m.Trial, m.Seed, m.Width, m.Height, len(m.Resources), len(m.Goals), len(m.Hazards), len(m.Walls))

		case observerproto.TypeTick:
			var m observerproto.TickMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logTick(logger, &m)
		}
	}
}

func logTick(logger *log.Logger, m *observerproto.TickMsg) {
	parts := make([]string, 0, len(m.Agents))
	for _, a := range m.Agents {
		s := a.Name
		if a.Frozen {
			s += "(frozen)"
		} else if a.Action != "" {
			s += " " + a.Action
		}
		parts = append(parts, s)
	}
	logger.Printf("tick=%d deliveries=%d resources_left=%d %s", m.Tick, m.Deliveries, len(m.Resources), strings.Join(parts, "; "))
}
