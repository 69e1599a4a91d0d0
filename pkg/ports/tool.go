package ports

import (
	"context"

	"github.com/probaah/probaah/pkg/domain"
)

// Prober is the minimal surface every tool adapter exposes: a stable name
// and a side-effect-free availability check. The full invocation lifecycle
// (build, execute, interpret) is adapter-specific because each tool has its
// own parameter shape; the orchestrator reaches adapters through step
// runners, not through a common invocation interface.
type Prober interface {
	Name() string
	Probe(ctx context.Context) domain.Availability
}
