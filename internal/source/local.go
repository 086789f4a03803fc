package source

import (
	"context"

	"dispatchops/api/internal/dispatch"
)

// LocalSink acknowledges every status change. Static files have no remote
// side to confirm against.
type LocalSink struct{}

func (LocalSink) UpdateStatus(context.Context, []string, dispatch.Status) error { return nil }
