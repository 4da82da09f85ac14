package channel

import (
	"fmt"

	"github.com/scobuck/CastKit/internal/dispatch"
	"github.com/scobuck/CastKit/internal/types"
)

// Receiver implements urn:x-cast:com.google.cast.receiver: app
// lifecycle (LAUNCH/STOP/JOIN discovery via GET_STATUS) and device
// volume control.
type Receiver struct {
	sender   Sender
	onStatus func(types.CastStatus)
}

// NewReceiver constructs a Receiver channel.
func NewReceiver(sender Sender) *Receiver {
	return &Receiver{sender: sender}
}

// Namespace implements JSONHandler.
func (r *Receiver) Namespace() string { return NamespaceReceiver }

// OnStatus registers the callback fired whenever a RECEIVER_STATUS
// broadcast or reply is parsed, whether solicited or not.
func (r *Receiver) OnStatus(fn func(types.CastStatus)) {
	r.onStatus = fn
}

// GetStatus requests the receiver's current status.
func (r *Receiver) GetStatus(handler func(types.CastStatus, error)) error {
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{"type": "GET_STATUS"}, func(res dispatch.Result) {
		if res.Err != nil {
			handler(types.CastStatus{}, res.Err)
			return
		}
		handler(parseCastStatus(getMap(res.JSON, "status")), nil)
	})
}

// Launch requests the receiver start appID, delivering the launched
// CastApp (looked up from the resulting status by appID) rather than
// the raw receiver response.
func (r *Receiver) Launch(appID string, handler func(types.CastApp, error)) error {
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{
		"type":  "LAUNCH",
		"appId": appID,
	}, func(res dispatch.Result) {
		if res.Err != nil {
			handler(types.CastApp{}, res.Err)
			return
		}
		if errType := getString(res.JSON, "type"); errType == "LAUNCH_ERROR" {
			reason := getString(res.JSON, "reason")
			handler(types.CastApp{}, fmt.Errorf("receiver: launch %s failed: %s", appID, reason))
			return
		}
		status := parseCastStatus(getMap(res.JSON, "status"))
		app, ok := status.AppWithID(appID)
		if !ok {
			handler(types.CastApp{}, fmt.Errorf("receiver: launch %s: app not present in resulting status", appID))
			return
		}
		handler(app, nil)
	})
}

// Stop requests the receiver stop the app owning sessionID.
func (r *Receiver) Stop(sessionID string, handler func(error)) error {
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{
		"type":      "STOP",
		"sessionId": sessionID,
	}, func(res dispatch.Result) {
		handler(res.Err)
	})
}

// SetVolumeLevel sets the receiver's overall volume level in [0, 1].
func (r *Receiver) SetVolumeLevel(level float64, handler func(error)) error {
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{
		"type":   "SET_VOLUME",
		"volume": map[string]any{"level": level},
	}, func(res dispatch.Result) { handler(res.Err) })
}

// SetMuted sets the receiver's overall mute state.
func (r *Receiver) SetMuted(muted bool, handler func(error)) error {
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{
		"type":   "SET_VOLUME",
		"volume": map[string]any{"muted": muted},
	}, func(res dispatch.Result) { handler(res.Err) })
}

// GetAppAvailability asks the receiver which of appIDs it can launch.
func (r *Receiver) GetAppAvailability(appIDs []string, handler func(types.AppAvailability, error)) error {
	ids := make([]any, len(appIDs))
	for i, id := range appIDs {
		ids[i] = id
	}
	return r.sender.SendJSON(NamespaceReceiver, ReceiverDestination, map[string]any{
		"type":      "GET_APP_AVAILABILITY",
		"appId":     ids,
	}, func(res dispatch.Result) {
		if res.Err != nil {
			handler(nil, res.Err)
			return
		}
		avail := make(types.AppAvailability, len(appIDs))
		raw := getMap(res.JSON, "availability")
		for _, id := range appIDs {
			avail[id] = getString(raw, id) == "APP_AVAILABLE"
		}
		handler(avail, nil)
	})
}

// HandleJSON publishes every RECEIVER_STATUS payload — broadcast or
// reply — to the registered OnStatus observer.
func (r *Receiver) HandleJSON(payload map[string]any, sourceID string) {
	if getString(payload, "type") != "RECEIVER_STATUS" {
		return
	}
	if r.onStatus == nil {
		return
	}
	r.onStatus(parseCastStatus(getMap(payload, "status")))
}
