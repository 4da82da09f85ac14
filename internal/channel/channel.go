// Package channel implements the per-namespace Cast V2 protocol logic:
// encoding outbound requests, parsing inbound responses and broadcasts,
// and raising typed status updates to the Client Facade.
//
// Each channel owns a namespace string and a narrow Sender it was
// constructed with, rather than a back-reference to the dispatcher —
// per the design note to model the weak/non-owning relationship with
// handles instead of cyclic references.
package channel

import (
	"github.com/scobuck/CastKit/internal/dispatch"
)

// Well-known namespaces, per the public Cast V2 protocol.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
	NamespaceMultizone  = "urn:x-cast:com.google.cast.multizone"
	NamespaceAuth       = "urn:x-cast:com.google.cast.tp.deviceauth"
	NamespaceDiscovery  = "urn:x-cast:com.google.cast.discovery"
	NamespaceSetup      = "urn:x-cast:com.google.cast.setup"
)

// ReceiverDestination is the reserved platform endpoint ID for the
// receiver device itself, used as the destination for receiver,
// heartbeat, and device-to-sender connection messages.
const ReceiverDestination = "receiver-0"

// Sender is the capability a channel needs from the dispatcher: build
// and transmit a request, optionally waiting on a correlated response.
// Channels depend on this narrow interface instead of the concrete
// Dispatcher so they stay independently testable.
type Sender interface {
	// SendJSON allocates a request ID, injects it as "requestId", and
	// delivers the response (or a timeout) to handler.
	SendJSON(namespace, destinationID string, payload map[string]any, handler dispatch.Handler) error
	// SendJSONMessage writes a JSON payload with no requestId and no
	// correlated response — connection and heartbeat traffic never
	// carries a requestId in the wire protocol.
	SendJSONMessage(namespace, destinationID string, payload map[string]any) error
	SendBinary(namespace, destinationID string, payload []byte) error
}

// JSONHandler is implemented by channels that process the JSON payload
// decoded by the Message Router. Every registered channel receives
// every inbound message on its namespace, whether or not the message
// carries a requestId — request/response correlation happens
// separately, in the Dispatcher.
type JSONHandler interface {
	Namespace() string
	HandleJSON(payload map[string]any, sourceID string)
}

// BinaryHandler is implemented by channels that process raw binary
// payloads (only the auth channel, in this protocol).
type BinaryHandler interface {
	Namespace() string
	HandleBinary(data []byte, sourceID string)
}
