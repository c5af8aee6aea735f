package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTrial     = "TRIAL"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional filters; empty matches everything.
	Scenario  string `json:"scenario,omitempty"`
	AgentType string `json:"agent_type,omitempty"`

	// Send every Nth tick frame (1 = all).
	EveryTicks int `json:"every_ticks,omitempty"`
}

// Server -> Client. Sent when a trial starts, with the full static layout.
type TrialMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	AgentType string `json:"agent_type"`
	Trial     int    `json:"trial"`
	Seed      int64  `json:"seed"`

	Width     int      `json:"width"`
	Height    int      `json:"height"`
	MaxSteps  int      `json:"max_steps"`
	Walls     [][2]int `json:"walls"`
	Hazards   [][2]int `json:"hazards"`
	Goals     [][2]int `json:"goals"`
	Resources [][2]int `json:"resources"`
}

// Server -> Client. Sent after every tick of the trial.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	AgentType string `json:"agent_type"`
	Trial     int    `json:"trial"`

	Tick       uint64       `json:"tick"`
	Deliveries int          `json:"deliveries"`
	Agents     []AgentState `json:"agents"`
	Resources  [][2]int     `json:"resources"`
	Digest     string       `json:"digest"`
}

type AgentState struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Pos      [2]int  `json:"pos"`
	Energy   float64 `json:"energy"`
	Carrying bool    `json:"carrying"`
	Frozen   bool    `json:"frozen"`

	// Empty when the agent did not act this tick.
	Action    string `json:"action,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// Server -> Client. Plain HTTP status used by clients before they subscribe.
type BootstrapResponse struct {
	ProtocolVersion string    `json:"protocol_version"`
	Subscribers     int       `json:"subscribers"`
	Trial           *TrialMsg `json:"trial,omitempty"`
}
