package channel

import (
	"sync"

	"github.com/scobuck/CastKit/internal/dispatch"
	"github.com/scobuck/CastKit/internal/types"
)

// Multizone implements urn:x-cast:com.google.cast.multizone: group
// volume control and device membership. The receiver sends a full
// MULTIZONE_STATUS occasionally and incremental DEVICE_ADDED /
// DEVICE_UPDATED / DEVICE_REMOVED events in between; Multizone folds
// both into one consistent device set before notifying observers.
type Multizone struct {
	sender Sender

	mu       sync.Mutex
	devices  map[string]types.CastMultizoneDevice
	order    []string
	onStatus func(types.CastMultizoneStatus)
}

// NewMultizone constructs a Multizone channel.
func NewMultizone(sender Sender) *Multizone {
	return &Multizone{sender: sender, devices: make(map[string]types.CastMultizoneDevice)}
}

// Namespace implements JSONHandler.
func (z *Multizone) Namespace() string { return NamespaceMultizone }

// OnStatus registers the callback fired after any full status or delta
// event changes the known device set.
func (z *Multizone) OnStatus(fn func(types.CastMultizoneStatus)) {
	z.mu.Lock()
	z.onStatus = fn
	z.mu.Unlock()
}

// GetStatus requests the full multizone group status.
func (z *Multizone) GetStatus(handler func(types.CastMultizoneStatus, error)) error {
	return z.sender.SendJSON(NamespaceMultizone, ReceiverDestination, map[string]any{"type": "GET_STATUS"}, func(res dispatch.Result) {
		if res.Err != nil {
			handler(types.CastMultizoneStatus{}, res.Err)
			return
		}
		status := z.replaceAll(getMap(res.JSON, "status"))
		handler(status, nil)
	})
}

// SetVolume sets the volume level of one device within the group.
func (z *Multizone) SetVolume(deviceID string, level float64, handler func(error)) error {
	return z.sender.SendJSON(NamespaceMultizone, ReceiverDestination, map[string]any{
		"type":     "SET_VOLUME",
		"deviceId": deviceID,
		"volume":   map[string]any{"level": level},
	}, func(res dispatch.Result) { handler(res.Err) })
}

func (z *Multizone) replaceAll(status map[string]any) types.CastMultizoneStatus {
	z.mu.Lock()
	z.devices = make(map[string]types.CastMultizoneDevice)
	z.order = nil
	for _, d := range getSlice(status, "devices") {
		devMap, ok := d.(map[string]any)
		if !ok {
			continue
		}
		dev := parseMultizoneDevice(devMap)
		z.devices[dev.ID] = dev
		z.order = append(z.order, dev.ID)
	}
	out := z.snapshotLocked()
	z.mu.Unlock()
	return out
}

func (z *Multizone) snapshotLocked() types.CastMultizoneStatus {
	out := types.CastMultizoneStatus{Devices: make([]types.CastMultizoneDevice, 0, len(z.order))}
	for _, id := range z.order {
		out.Devices = append(out.Devices, z.devices[id])
	}
	return out
}

// HandleJSON applies MULTIZONE_STATUS, DEVICE_ADDED, DEVICE_UPDATED,
// and DEVICE_REMOVED events, notifying OnStatus with the resulting
// consistent device set.
func (z *Multizone) HandleJSON(payload map[string]any, sourceID string) {
	var status types.CastMultizoneStatus
	changed := true

	switch getString(payload, "type") {
	case "MULTIZONE_STATUS":
		status = z.replaceAll(getMap(payload, "status"))
	case "DEVICE_ADDED", "DEVICE_UPDATED":
		devMap := getMap(payload, "device")
		if devMap == nil {
			return
		}
		dev := parseMultizoneDevice(devMap)
		z.mu.Lock()
		if _, exists := z.devices[dev.ID]; !exists {
			z.order = append(z.order, dev.ID)
		}
		z.devices[dev.ID] = dev
		status = z.snapshotLocked()
		z.mu.Unlock()
	case "DEVICE_REMOVED":
		id := getString(payload, "deviceId")
		z.mu.Lock()
		if _, exists := z.devices[id]; !exists {
			z.mu.Unlock()
			return
		}
		delete(z.devices, id)
		for i, existing := range z.order {
			if existing == id {
				z.order = append(z.order[:i], z.order[i+1:]...)
				break
			}
		}
		status = z.snapshotLocked()
		z.mu.Unlock()
	default:
		changed = false
	}

	if !changed {
		return
	}
	z.mu.Lock()
	cb := z.onStatus
	z.mu.Unlock()
	if cb != nil {
		cb(status)
	}
}
