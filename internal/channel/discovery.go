package channel

import "github.com/scobuck/CastKit/internal/dispatch"

// Discovery implements urn:x-cast:com.google.cast.discovery, a
// one-shot query for device metadata beyond what the main receiver
// status already carries. It has no push state and no delegate.
type Discovery struct {
	sender Sender
}

// NewDiscovery constructs a Discovery channel.
func NewDiscovery(sender Sender) *Discovery {
	return &Discovery{sender: sender}
}

// Namespace implements JSONHandler.
func (d *Discovery) Namespace() string { return NamespaceDiscovery }

// GetDeviceInfo requests the receiver's device info document.
func (d *Discovery) GetDeviceInfo(handler func(map[string]any, error)) error {
	return d.sender.SendJSON(NamespaceDiscovery, ReceiverDestination, map[string]any{"type": "GET_DEVICE_INFO"}, func(res dispatch.Result) {
		handler(res.JSON, res.Err)
	})
}

// HandleJSON is a no-op: Discovery has no unsolicited broadcasts.
func (d *Discovery) HandleJSON(map[string]any, string) {}
