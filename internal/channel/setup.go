package channel

import "github.com/scobuck/CastKit/internal/dispatch"

// Setup implements urn:x-cast:com.google.cast.setup, two one-shot
// configuration queries used by first-run provisioning flows. It has
// no push state and no delegate.
type Setup struct {
	sender Sender
}

// NewSetup constructs a Setup channel.
func NewSetup(sender Sender) *Setup {
	return &Setup{sender: sender}
}

// Namespace implements JSONHandler.
func (s *Setup) Namespace() string { return NamespaceSetup }

// GetDeviceConfig requests the receiver's setup configuration document.
func (s *Setup) GetDeviceConfig(handler func(map[string]any, error)) error {
	return s.sender.SendJSON(NamespaceSetup, ReceiverDestination, map[string]any{"type": "GET_DEVICE_CONFIG"}, func(res dispatch.Result) {
		handler(res.JSON, res.Err)
	})
}

// GetAppDeviceID requests the receiver's app-scoped device identifier.
func (s *Setup) GetAppDeviceID(handler func(string, error)) error {
	return s.sender.SendJSON(NamespaceSetup, ReceiverDestination, map[string]any{"type": "GET_APP_DEVICE_ID"}, func(res dispatch.Result) {
		if res.Err != nil {
			handler("", res.Err)
			return
		}
		handler(getString(res.JSON, "appDeviceId"), nil)
	})
}

// HandleJSON is a no-op: Setup has no unsolicited broadcasts.
func (s *Setup) HandleJSON(map[string]any, string) {}
