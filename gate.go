package agent

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultConfirmationTimeout bounds how long a turn stays suspended waiting
// for the user when the request carries no timeout of its own.
const DefaultConfirmationTimeout = 2 * time.Minute

var (
	// ErrConfirmationAlreadyPending signals a programmer/state error: a second
	// request was opened while one is still suspended for the same session.
	ErrConfirmationAlreadyPending = errors.New("confirmation already pending")
	// ErrNoPendingConfirmation is returned when a response arrives for a
	// session with nothing outstanding.
	ErrNoPendingConfirmation = errors.New("no pending confirmation")
)

// ConfirmationChoice is one selectable option offered to the user.
type ConfirmationChoice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ConfirmationRequest describes the structured prompt shown to the user
// while the turn is suspended.
type ConfirmationRequest struct {
	Prompt      string               `json:"prompt"`
	Choices     []ConfirmationChoice `json:"choices"`
	MultiSelect bool                 `json:"multiSelect"`
	Timeout     time.Duration        `json:"-"`
}

// ConfirmationResponse is the user's decision. An empty selection is a valid
// answer meaning "nothing further".
type ConfirmationResponse struct {
	SelectedIDs []string `json:"selectedIds"`
	TimedOut    bool     `json:"timedOut,omitempty"`
}

// ConfirmationOutcome classifies how a suspension resolved.
type ConfirmationOutcome int

const (
	OutcomeAnswered ConfirmationOutcome = iota
	OutcomeTimedOut
	OutcomeCancelled
)

// Gate is the suspend/resume point collecting a structured user decision
// mid-turn. At most one request may be outstanding per session; the second
// one fails without disturbing the first.
type Gate struct {
	mu      sync.Mutex
	pending map[string]*PendingConfirmation
}

// PendingConfirmation is an open suspension. The turn registers it before
// the prompt is surfaced, so a response can never outrun the expectation.
type PendingConfirmation struct {
	gate      *Gate
	sessionID string
	request   ConfirmationRequest
	answered  chan ConfirmationResponse
}

// NewGate builds an empty gate.
func NewGate() *Gate {
	return &Gate{pending: make(map[string]*PendingConfirmation)}
}

// Open registers a suspension for the session. The caller surfaces the
// prompt afterwards and then blocks in Wait.
func (g *Gate) Open(sessionID string, req ConfirmationRequest) (*PendingConfirmation, error) {
	if req.Timeout <= 0 {
		req.Timeout = DefaultConfirmationTimeout
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.pending[sessionID]; exists {
		return nil, ErrConfirmationAlreadyPending
	}
	p := &PendingConfirmation{
		gate:      g,
		sessionID: sessionID,
		request:   req,
		answered:  make(chan ConfirmationResponse, 1),
	}
	g.pending[sessionID] = p
	return p, nil
}

// Request opens a suspension and waits in one step.
func (g *Gate) Request(ctx context.Context, sessionID string, req ConfirmationRequest) (ConfirmationResponse, ConfirmationOutcome, error) {
	p, err := g.Open(sessionID, req)
	if err != nil {
		return ConfirmationResponse{}, OutcomeCancelled, err
	}
	resp, outcome := p.Wait(ctx)
	return resp, outcome, nil
}

// Resolve delivers the user's decision for the session's outstanding
// request. The selection is clamped to the offered choice ids so a response
// can never select something that was not on the table.
func (g *Gate) Resolve(sessionID string, resp ConfirmationResponse) error {
	g.mu.Lock()
	p, ok := g.pending[sessionID]
	if !ok {
		g.mu.Unlock()
		return ErrNoPendingConfirmation
	}
	delete(g.pending, sessionID)
	g.mu.Unlock()

	resp.TimedOut = false
	resp.SelectedIDs = clampSelection(p.request.Choices, resp.SelectedIDs)
	p.answered <- resp
	return nil
}

// Pending returns the outstanding request for a session, if any.
func (g *Gate) Pending(sessionID string) (ConfirmationRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[sessionID]
	if !ok {
		return ConfirmationRequest{}, false
	}
	return p.request, true
}

// Request returns the prompt this suspension was opened with.
func (p *PendingConfirmation) Request() ConfirmationRequest { return p.request }

// Wait suspends until the user answers, the request times out, or ctx is
// cancelled. Timeouts yield a synthetic empty response flagged TimedOut.
func (p *PendingConfirmation) Wait(ctx context.Context) (ConfirmationResponse, ConfirmationOutcome) {
	timer := time.NewTimer(p.request.Timeout)
	defer timer.Stop()

	select {
	case resp := <-p.answered:
		return resp, OutcomeAnswered
	case <-timer.C:
		if resp, answered := p.abandon(); answered {
			return resp, OutcomeAnswered
		}
		return ConfirmationResponse{TimedOut: true}, OutcomeTimedOut
	case <-ctx.Done():
		if resp, answered := p.abandon(); answered {
			return resp, OutcomeAnswered
		}
		return ConfirmationResponse{}, OutcomeCancelled
	}
}

// abandon removes the suspension from the gate. If a resolve slipped in
// concurrently, the delivered answer wins and is returned instead.
func (p *PendingConfirmation) abandon() (ConfirmationResponse, bool) {
	p.gate.mu.Lock()
	cur, ok := p.gate.pending[p.sessionID]
	if ok && cur == p {
		delete(p.gate.pending, p.sessionID)
		p.gate.mu.Unlock()
		return ConfirmationResponse{}, false
	}
	p.gate.mu.Unlock()

	select {
	case resp := <-p.answered:
		return resp, true
	default:
		return ConfirmationResponse{}, false
	}
}

func clampSelection(choices []ConfirmationChoice, selected []string) []string {
	offered := make(map[string]bool, len(choices))
	for _, c := range choices {
		offered[c.ID] = true
	}
	out := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if offered[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}
