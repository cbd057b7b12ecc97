package component

import (
	"context"

	"github.com/kbukum/flowgraph/observability"
)

// Component is a lifecycle-managed part of a running binary, such as the
// HTTP server. Health reporting goes through observability.HealthChecker so
// components show up on the /health endpoint next to the compiler probe.
type Component interface {
	observability.HealthChecker

	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component. It must return once the
	// component is ready; long-running work continues in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error
}
