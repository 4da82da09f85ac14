package cast

import (
	"context"

	"github.com/scobuck/CastKit/internal/wire"
)

// transportLink is the subset of internal/transport.Transport that
// Client depends on. Defining it here — mirroring internal/channel's
// Sender and the corpus's own Transporter interface — lets Client be
// tested against a fake transport with no TLS socket involved.
type transportLink interface {
	Open(ctx context.Context, host string, port int) error
	Close() error
	Write(frame []byte) error
	OnFrame(fn func(*wire.CastMessage))
	OnClosed(fn func(error))
}
