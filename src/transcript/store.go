package transcript

import (
	"context"
	"time"
)

// Record is the flattened, terminal outcome of one conversation turn.
type Record struct {
	TurnID    string    `json:"turnId"`
	SessionID string    `json:"sessionId"`
	Utterance string    `json:"utterance"`
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Location  string    `json:"location,omitempty"`
	Selected  []string  `json:"selected,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists terminal turn records. Recording is best-effort from the
// controller's point of view: a store error never fails a turn.
type Store interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close(ctx context.Context) error
}
