package internal

import (
	"github.com/EllieBekrian/cab432/internal/cache"
	"github.com/EllieBekrian/cab432/internal/events"
	"github.com/EllieBekrian/cab432/internal/service"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/EllieBekrian/cab432/pkg/security"
)

// Deps carries everything the handlers need. Wired once in the router.
type Deps struct {
	Store     store.Store
	Cache     *cache.Cache
	Bus       *events.Bus
	Meta      *service.Metadata
	Pipeline  *service.Pipeline
	Transfers *service.Transfers
	Weather   *service.Weather
	Argon     *security.ArgonHash
}
