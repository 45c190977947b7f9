package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnState is one node of the per-turn state machine.
type TurnState string

const (
	StateIdle                 TurnState = "idle"
	StateResolvingLocation    TurnState = "resolving_location"
	StateAwaitingConfirmation TurnState = "awaiting_confirmation"
	StateFetchingData         TurnState = "fetching_data"
	StateCompleted            TurnState = "completed"
	StateFailed               TurnState = "failed"
)

// turnTransitions defines the valid state transitions. Failed is reachable
// from every non-terminal state; Completed and Failed are terminal.
var turnTransitions = map[TurnState][]TurnState{
	StateIdle:                 {StateResolvingLocation, StateFailed},
	StateResolvingLocation:    {StateAwaitingConfirmation, StateFailed},
	StateAwaitingConfirmation: {StateFetchingData, StateCompleted, StateFailed},
	StateFetchingData:         {StateCompleted, StateFailed},
	StateCompleted:            {},
	StateFailed:               {},
}

// FailReason is a stable, enumerable code reported with a TurnFailed event.
type FailReason string

const (
	ReasonNoLocationFound       FailReason = "no_location_found"
	ReasonLocationUnresolved    FailReason = "location_unresolved"
	ReasonConfirmationAbandoned FailReason = "confirmation_abandoned"
	ReasonTurnCancelled         FailReason = "turn_cancelled"
)

// Category identifies one kind of weather information the user can request.
type Category string

const (
	CategoryForecast Category = "forecast"
	CategoryAlerts   Category = "alerts"
)

// ResolvedLocation is the geocoded place a turn operates on.
type ResolvedLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
	StateCode   string  `json:"stateCode,omitempty"`
}

// Valid reports whether the coordinates are on the globe.
func (l ResolvedLocation) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Turn is the aggregate tying one utterance to its resolution, confirmation
// and fetches. It is owned exclusively by the controller goroutine running
// it; nothing here needs locking.
type Turn struct {
	ID        string
	SessionID string
	Utterance string
	State     TurnState
	Reason    FailReason
	Location  *ResolvedLocation

	// expected maps call id to category for the fetch fan-out. It is
	// populated before dispatch so a result can never arrive unannounced.
	expected map[string]Category
	results  map[string]ToolResult

	StartedAt time.Time
	EndedAt   time.Time
}

func newTurn(sessionID, utterance string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Utterance: utterance,
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}
}

// transition moves the turn to a new state, rejecting anything the
// transition table does not allow.
func (t *Turn) transition(to TurnState) error {
	for _, allowed := range turnTransitions[t.State] {
		if allowed == to {
			t.State = to
			if t.terminal() {
				t.EndedAt = time.Now().UTC()
			}
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", t.State, to)
}

func (t *Turn) terminal() bool {
	return len(turnTransitions[t.State]) == 0
}

// expect registers the call ids the fetch join will wait on. Must be called
// before the calls are dispatched.
func (t *Turn) expect(calls map[string]Category) {
	t.expected = make(map[string]Category, len(calls))
	t.results = make(map[string]ToolResult, len(calls))
	for id, cat := range calls {
		t.expected[id] = cat
	}
}

// applyResult records a settled result. Results for unknown call ids (late
// arrivals from abandoned calls, stray correlation bugs) are rejected.
func (t *Turn) applyResult(res ToolResult) error {
	if _, ok := t.expected[res.CallID]; !ok {
		return fmt.Errorf("unexpected call id %s", res.CallID)
	}
	if _, dup := t.results[res.CallID]; dup {
		return fmt.Errorf("duplicate result for call id %s", res.CallID)
	}
	t.results[res.CallID] = res
	return nil
}

// settled reports whether every expected call has a recorded result.
func (t *Turn) settled() bool {
	return len(t.results) == len(t.expected)
}

// categoryResults regroups recorded results by category for assembly.
func (t *Turn) categoryResults() map[Category]ToolResult {
	out := make(map[Category]ToolResult, len(t.results))
	for id, res := range t.results {
		out[t.expected[id]] = res
	}
	return out
}

// TurnEventKind discriminates the events streamed to the transport.
type TurnEventKind string

const (
	EventConfirmationRequested TurnEventKind = "confirmation_requested"
	EventTurnCompleted         TurnEventKind = "turn_completed"
	EventTurnFailed            TurnEventKind = "turn_failed"
)

// TurnEvent is one progress notification for a running turn.
type TurnEvent struct {
	Kind         TurnEventKind        `json:"kind"`
	SessionID    string               `json:"sessionId"`
	TurnID       string               `json:"turnId"`
	Confirmation *ConfirmationRequest `json:"confirmation,omitempty"`
	Payload      *FinalPayload        `json:"payload,omitempty"`
	Reason       FailReason           `json:"reason,omitempty"`
}
