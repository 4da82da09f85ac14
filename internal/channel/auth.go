package channel

import "github.com/scobuck/CastKit/internal/wire"

// Auth implements urn:x-cast:com.google.cast.tp.deviceauth. It is a
// formality in this client: TLS certificate validation is disabled
// (self-signed receiver certs are the norm), so the auth exchange is
// sent once after the TLS connection opens and its result is recorded
// but never allowed to block or fail the connection sequence.
type Auth struct {
	sender  Sender
	onError func()
}

// NewAuth constructs an Auth channel.
func NewAuth(sender Sender) *Auth {
	return &Auth{sender: sender}
}

// Namespace implements BinaryHandler.
func (a *Auth) Namespace() string { return NamespaceAuth }

// OnError registers a callback fired if the receiver's auth response
// carries an AuthError field. The connection sequence does not wait on
// or fail over this; it exists for logging.
func (a *Auth) OnError(fn func()) { a.onError = fn }

// deviceAuthChallenge is the wire encoding of
// DeviceAuthMessage{challenge: AuthChallenge{}}: field 1 (challenge),
// wire type 2 (length-delimited), length 0 — AuthChallenge carries no
// fields of its own.
var deviceAuthChallenge = []byte{0x0a, 0x00}

const (
	authFieldChallenge = 1
	authFieldResponse  = 2
	authFieldError     = 3
)

// SendChallenge sends the (always-empty) auth challenge to
// destinationID.
func (a *Auth) SendChallenge(destinationID string) error {
	return a.sender.SendBinary(NamespaceAuth, destinationID, deviceAuthChallenge)
}

// HandleBinary parses the DeviceAuthMessage response and fires
// OnError if the receiver signaled an AuthError.
func (a *Auth) HandleBinary(data []byte, sourceID string) {
	fields, err := wire.DecodeFields(data)
	if err != nil {
		return
	}
	if _, hasError := fields[authFieldError]; hasError && a.onError != nil {
		a.onError()
	}
}
