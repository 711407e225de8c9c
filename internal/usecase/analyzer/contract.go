package analyzer

import "context"

// ChatCompleter is the transport contract the adapters speak. The returned
// string is the raw JSON object produced by the model.
type ChatCompleter interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}
