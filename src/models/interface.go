package models

import "context"

// Agent is a single-turn language model used by the controller as an
// utterance interpreter (location extraction when the heuristics are not
// confident). Implementations return the model's text reply.
type Agent interface {
	Generate(ctx context.Context, prompt string) (any, error)
}
