package driven

import (
	"context"

	"github.com/evoliveira/qasops/internal/domain/model"
)

// Notifier defines the driven port for outcome notifications. Delivery is a
// single best-effort synchronous call; a non-2xx response surfaces as
// *model.DeliveryError and is never retried by callers.
type Notifier interface {
	Notify(ctx context.Context, msg model.BuildMessage) error
}
