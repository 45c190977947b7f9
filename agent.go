package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/stratoflow/weather-agent/src/concurrent"
	"github.com/stratoflow/weather-agent/src/models"
	"github.com/stratoflow/weather-agent/src/transcript"
)

// Well-known tool names the controller dispatches to. Concrete backends are
// whatever the registry holds under these names.
const (
	GeocodeToolName  = "geocode_location"
	ForecastToolName = "get_forecast"
	AlertsToolName   = "get_alerts"
)

// ErrTurnInProgress is returned when an utterance arrives for a session
// whose previous turn has not reached a terminal state yet. Turns are
// sequential per session; finish or cancel the running one first.
var ErrTurnInProgress = errors.New("turn already in progress for session")

// Options configure a new Controller.
type Options struct {
	Registry            *Registry
	Gate                *Gate
	Interpreter         models.Agent     // optional LLM fallback for location extraction
	Transcripts         transcript.Store // optional, best-effort turn recording
	ToolTimeout         time.Duration
	ConfirmationTimeout time.Duration
}

// Controller runs the per-turn state machine: resolve the location, suspend
// for the user's category selection, fan out the selected fetches, assemble
// one payload. Each turn is owned by the goroutine running it; the only
// state shared across turns is the read-only registry and the gate.
type Controller struct {
	registry       *Registry
	invoker        *Invoker
	gate           *Gate
	interpreter    models.Agent
	transcripts    transcript.Store
	confirmTimeout time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates a Controller with the provided options.
func New(opts Options) (*Controller, error) {
	if opts.Registry == nil {
		return nil, errors.New("controller requires a tool registry")
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewGate()
	}
	confirmTimeout := opts.ConfirmationTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmationTimeout
	}
	return &Controller{
		registry:       opts.Registry,
		invoker:        NewInvoker(opts.Registry, opts.ToolTimeout),
		gate:           gate,
		interpreter:    opts.Interpreter,
		transcripts:    opts.Transcripts,
		confirmTimeout: confirmTimeout,
		cancels:        make(map[string]context.CancelFunc),
	}, nil
}

// HandleUtterance starts a turn for the utterance and returns its event
// stream. The channel is closed once the turn reaches a terminal state.
func (c *Controller) HandleUtterance(ctx context.Context, sessionID, text string) (<-chan TurnEvent, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("utterance is empty")
	}

	turn := newTurn(sessionID, text)
	turnCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if _, running := c.cancels[sessionID]; running {
		c.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrTurnInProgress, sessionID)
	}
	c.cancels[sessionID] = cancel
	c.mu.Unlock()

	// Room for every event a turn can emit, so the runner never blocks on a
	// slow transport reader.
	events := make(chan TurnEvent, 4)
	go func() {
		defer close(events)
		defer func() {
			cancel()
			c.mu.Lock()
			delete(c.cancels, sessionID)
			c.mu.Unlock()
		}()
		c.run(turnCtx, turn, events)
	}()
	return events, nil
}

// SubmitConfirmation resumes a suspended turn with the user's decision.
func (c *Controller) SubmitConfirmation(sessionID string, resp ConfirmationResponse) error {
	return c.gate.Resolve(sessionID, resp)
}

// PendingConfirmation reports the outstanding request for a session, if any.
func (c *Controller) PendingConfirmation(sessionID string) (ConfirmationRequest, bool) {
	return c.gate.Pending(sessionID)
}

// Cancel aborts the session's running turn: the confirmation suspension
// resolves as cancelled and outstanding tool calls are abandoned.
func (c *Controller) Cancel(sessionID string) error {
	c.mu.Lock()
	cancel, ok := c.cancels[sessionID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no running turn for session %s", sessionID)
	}
	cancel()
	return nil
}

func (c *Controller) run(ctx context.Context, turn *Turn, events chan<- TurnEvent) {
	// Idle -> ResolvingLocation
	if err := turn.transition(StateResolvingLocation); err != nil {
		log.Printf("turn %s: %v", turn.ID, err)
		return
	}

	phrase, ok := c.extractLocation(ctx, turn.Utterance)
	if !ok {
		c.fail(turn, events, ReasonNoLocationFound)
		return
	}

	geocode := ToolCall{
		CallID:    NewCallID(),
		ToolName:  GeocodeToolName,
		SessionID: turn.SessionID,
		Arguments: map[string]any{"location": phrase},
	}
	res := c.invoker.Invoke(ctx, geocode)
	if !res.OK() {
		c.fail(turn, events, ReasonLocationUnresolved)
		return
	}
	location, err := decodeLocation(res.Payload)
	if err != nil {
		log.Printf("turn %s: bad geocode payload: %v", turn.ID, err)
		c.fail(turn, events, ReasonLocationUnresolved)
		return
	}
	turn.Location = &location

	// ResolvingLocation -> AwaitingConfirmation. The suspension is
	// registered before the prompt event goes out, so a response arriving
	// immediately cannot hit NoPendingConfirmation.
	if err := turn.transition(StateAwaitingConfirmation); err != nil {
		log.Printf("turn %s: %v", turn.ID, err)
		return
	}
	request := ConfirmationRequest{
		Prompt: fmt.Sprintf("What information would you like for %s?", location.DisplayName),
		Choices: []ConfirmationChoice{
			{ID: string(CategoryForecast), Label: "Get current forecast"},
			{ID: string(CategoryAlerts), Label: "Check weather alerts"},
		},
		MultiSelect: true,
		Timeout:     c.confirmTimeout,
	}
	pending, err := c.gate.Open(turn.SessionID, request)
	if err != nil {
		log.Printf("turn %s: %v", turn.ID, err)
		c.fail(turn, events, ReasonConfirmationAbandoned)
		return
	}
	events <- TurnEvent{
		Kind:         EventConfirmationRequested,
		SessionID:    turn.SessionID,
		TurnID:       turn.ID,
		Confirmation: &request,
	}

	resp, outcome := pending.Wait(ctx)
	if outcome != OutcomeAnswered {
		c.fail(turn, events, ReasonConfirmationAbandoned)
		return
	}

	// Empty selection is a deliberate non-error outcome: the user wants
	// nothing further.
	if len(resp.SelectedIDs) == 0 {
		if err := turn.transition(StateCompleted); err != nil {
			log.Printf("turn %s: %v", turn.ID, err)
			return
		}
		c.complete(turn, events, Assemble(turn.Location, nil), nil)
		return
	}

	// AwaitingConfirmation -> FetchingData
	if err := turn.transition(StateFetchingData); err != nil {
		log.Printf("turn %s: %v", turn.ID, err)
		return
	}
	calls, expected := c.buildFetchCalls(turn, resp.SelectedIDs)
	turn.expect(expected)

	results := concurrent.ParallelMap(ctx, calls, func(ctx context.Context, call ToolCall) ToolResult {
		return c.invoker.Invoke(ctx, call)
	}, len(calls))
	for _, res := range results {
		if err := turn.applyResult(res); err != nil {
			log.Printf("turn %s: %v", turn.ID, err)
		}
	}

	// A cancelled turn emits no payload, even if some calls settled.
	if ctx.Err() != nil {
		c.fail(turn, events, ReasonTurnCancelled)
		return
	}
	if !turn.settled() {
		// Join invariant broken; nothing sane to assemble.
		c.fail(turn, events, ReasonTurnCancelled)
		return
	}

	if err := turn.transition(StateCompleted); err != nil {
		log.Printf("turn %s: %v", turn.ID, err)
		return
	}
	c.complete(turn, events, Assemble(turn.Location, turn.categoryResults()), resp.SelectedIDs)
}

// extractLocation tries the heuristics first and falls back to the LLM
// interpreter when one is configured.
func (c *Controller) extractLocation(ctx context.Context, utterance string) (string, bool) {
	if phrase, ok := ExtractLocation(utterance); ok {
		return phrase, true
	}
	if c.interpreter == nil {
		return "", false
	}
	reply, err := c.interpreter.Generate(ctx, fmt.Sprintf(locationPrompt, utterance))
	if err != nil {
		log.Printf("location interpreter: %v", err)
		return "", false
	}
	return parseLocationReply(fmt.Sprint(reply))
}

func (c *Controller) buildFetchCalls(turn *Turn, selected []string) ([]ToolCall, map[string]Category) {
	calls := make([]ToolCall, 0, len(selected))
	expected := make(map[string]Category, len(selected))
	for _, id := range selected {
		var call ToolCall
		switch Category(id) {
		case CategoryForecast:
			call = ToolCall{
				CallID:    NewCallID(),
				ToolName:  ForecastToolName,
				SessionID: turn.SessionID,
				Arguments: map[string]any{
					"latitude":  turn.Location.Latitude,
					"longitude": turn.Location.Longitude,
				},
			}
		case CategoryAlerts:
			call = ToolCall{
				CallID:    NewCallID(),
				ToolName:  AlertsToolName,
				SessionID: turn.SessionID,
				Arguments: map[string]any{"state": turn.Location.StateCode},
			}
		default:
			continue
		}
		calls = append(calls, call)
		expected[call.CallID] = Category(id)
	}
	return calls, expected
}

func (c *Controller) complete(turn *Turn, events chan<- TurnEvent, payload FinalPayload, selected []string) {
	c.record(turn, selected)
	events <- TurnEvent{
		Kind:      EventTurnCompleted,
		SessionID: turn.SessionID,
		TurnID:    turn.ID,
		Payload:   &payload,
	}
}

func (c *Controller) fail(turn *Turn, events chan<- TurnEvent, reason FailReason) {
	if !turn.terminal() {
		if err := turn.transition(StateFailed); err != nil {
			log.Printf("turn %s: %v", turn.ID, err)
		}
	}
	turn.Reason = reason
	c.record(turn, nil)
	events <- TurnEvent{
		Kind:      EventTurnFailed,
		SessionID: turn.SessionID,
		TurnID:    turn.ID,
		Reason:    reason,
	}
}

// record persists the terminal turn outcome, best-effort.
func (c *Controller) record(turn *Turn, selected []string) {
	if c.transcripts == nil {
		return
	}
	rec := transcript.Record{
		TurnID:    turn.ID,
		SessionID: turn.SessionID,
		Utterance: turn.Utterance,
		State:     string(turn.State),
		Reason:    string(turn.Reason),
		Selected:  selected,
		CreatedAt: turn.StartedAt,
	}
	if turn.Location != nil {
		rec.Location = turn.Location.DisplayName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.transcripts.Record(ctx, rec); err != nil {
		log.Printf("transcript record: %v", err)
	}
}

// decodeLocation converts a geocode tool payload into a ResolvedLocation,
// tolerating both typed structs and decoded JSON maps.
func decodeLocation(payload any) (ResolvedLocation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ResolvedLocation{}, err
	}
	var wire struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		DisplayName string  `json:"display_name"`
		StateCode   string  `json:"state_code"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ResolvedLocation{}, err
	}
	loc := ResolvedLocation{
		Latitude:    wire.Latitude,
		Longitude:   wire.Longitude,
		DisplayName: wire.DisplayName,
		StateCode:   wire.StateCode,
	}
	if loc.DisplayName == "" {
		return ResolvedLocation{}, errors.New("geocode payload has no display_name")
	}
	if !loc.Valid() {
		return ResolvedLocation{}, fmt.Errorf("coordinates out of range: %f, %f", loc.Latitude, loc.Longitude)
	}
	return loc, nil
}
