package cast

import "github.com/scobuck/CastKit/internal/types"

// Observer receives Client lifecycle and status events. Implementations
// should embed NopObserver so new methods added here don't break
// existing observers.
type Observer interface {
	OnStateChanged(state ConnectionState)
	OnStatus(status types.CastStatus)
	OnMediaStatus(status types.CastMediaStatus)
	OnMultizoneStatus(status types.CastMultizoneStatus)
	OnConnectedApp(app *types.CastApp)
	OnError(err error)
}

// NopObserver implements Observer with no-op methods. Embed it in a
// partial observer to only override the events you care about.
type NopObserver struct{}

func (NopObserver) OnStateChanged(ConnectionState)               {}
func (NopObserver) OnStatus(types.CastStatus)                    {}
func (NopObserver) OnMediaStatus(types.CastMediaStatus)          {}
func (NopObserver) OnMultizoneStatus(types.CastMultizoneStatus)  {}
func (NopObserver) OnConnectedApp(*types.CastApp)                {}
func (NopObserver) OnError(error)                                {}

var _ Observer = NopObserver{}
