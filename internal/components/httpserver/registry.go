package httpserver

import (
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/JiHungLin/Skalds/internal/app/core"
)

// RouteRegisterFunc mounts a project's routes on the shared router. The
// container is passed so registrars can resolve their controllers.
type RouteRegisterFunc func(r chi.Router, c *core.Container) error

var (
	regMu      sync.Mutex
	registrars []RouteRegisterFunc
)

// RegisterRoutes queues a registrar; called from project init() functions.
// The server applies them all at Start.
func RegisterRoutes(fn RouteRegisterFunc) {
	if fn == nil {
		return
	}
	regMu.Lock()
	registrars = append(registrars, fn)
	regMu.Unlock()
}

func snapshot() []RouteRegisterFunc {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]RouteRegisterFunc, len(registrars))
	copy(out, registrars)
	return out
}

// ResetRoutes clears queued registrars. Test helper.
func ResetRoutes() {
	regMu.Lock()
	registrars = nil
	regMu.Unlock()
}
