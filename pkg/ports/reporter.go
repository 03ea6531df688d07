package ports

import (
	"context"

	"github.com/aretw0/tripflow/pkg/domain"
)

// Reporter records structured outcome events to an observability backend.
// Errors are informational: callers must never abort a flow because of them.
type Reporter interface {
	Track(ctx context.Context, event domain.Event) error
}
