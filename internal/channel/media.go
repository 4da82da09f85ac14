package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/scobuck/CastKit/internal/dispatch"
	"github.com/scobuck/CastKit/internal/types"
)

// Media implements urn:x-cast:com.google.cast.media: playback control
// scoped to whichever app transport is currently connected. The
// destination (the app's transportId) changes across the channel's
// lifetime as apps launch, join, and stop, so it is set explicitly
// rather than fixed at construction like Receiver's ReceiverDestination.
type Media struct {
	sender Sender

	mu          sync.RWMutex
	destination string

	onStatus func(types.CastMediaStatus)
}

// NewMedia constructs a Media channel with no destination set. The
// destination is not checked: calls made before SetDestination are sent
// with an empty destination ID.
func NewMedia(sender Sender) *Media {
	return &Media{sender: sender}
}

// Namespace implements JSONHandler.
func (m *Media) Namespace() string { return NamespaceMedia }

// SetDestination updates the app transport ID that Media targets.
func (m *Media) SetDestination(transportID string) {
	m.mu.Lock()
	m.destination = transportID
	m.mu.Unlock()
}

func (m *Media) dest() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destination
}

// OnStatus registers the callback fired on every MEDIA_STATUS update.
func (m *Media) OnStatus(fn func(types.CastMediaStatus)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Media) statusCallback() func(types.CastMediaStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onStatus
}

// Load requests the receiver load media with the given options.
func (m *Media) Load(media types.MediaInfo, opts types.LoadOptions, handler func(types.CastMediaStatus, error)) error {
	mediaPayload := map[string]any{
		"contentId":   media.ContentID,
		"contentType": media.ContentType,
		"streamType":  string(media.StreamType),
	}
	if media.Duration > 0 {
		mediaPayload["duration"] = media.Duration
	}
	if media.Metadata != nil {
		mediaPayload["metadata"] = map[string]any(media.Metadata)
	}
	payload := map[string]any{
		"type":        "LOAD",
		"media":       mediaPayload,
		"autoplay":    opts.Autoplay,
		"currentTime": opts.CurrentTime,
	}
	if opts.CustomData != nil {
		payload["customData"] = opts.CustomData
	}
	onStatus := m.statusResultHandler(handler)
	return m.sender.SendJSON(NamespaceMedia, m.dest(), payload, func(res dispatch.Result) {
		if res.Err == nil && getString(res.JSON, "type") == "LOAD_FAILED" {
			if handler != nil {
				handler(types.CastMediaStatus{}, fmt.Errorf("media: load %s failed", media.ContentID))
			}
			return
		}
		onStatus(res)
	})
}

// Play resumes playback of mediaSessionID.
func (m *Media) Play(mediaSessionID int, handler func(types.CastMediaStatus, error)) error {
	return m.simpleCommand("PLAY", mediaSessionID, nil, handler)
}

// Pause pauses playback of mediaSessionID.
func (m *Media) Pause(mediaSessionID int, handler func(types.CastMediaStatus, error)) error {
	return m.simpleCommand("PAUSE", mediaSessionID, nil, handler)
}

// StopSession stops playback of mediaSessionID (distinct from
// Receiver.Stop, which stops the whole app).
func (m *Media) StopSession(mediaSessionID int, handler func(types.CastMediaStatus, error)) error {
	return m.simpleCommand("STOP", mediaSessionID, nil, handler)
}

// Seek moves playback of mediaSessionID to currentTime seconds.
func (m *Media) Seek(mediaSessionID int, currentTime float64, handler func(types.CastMediaStatus, error)) error {
	return m.simpleCommand("SEEK", mediaSessionID, map[string]any{"currentTime": currentTime}, handler)
}

// SetStreamVolume sets the per-stream volume of mediaSessionID,
// distinct from the receiver's overall device volume.
func (m *Media) SetStreamVolume(mediaSessionID int, level float64, muted bool, handler func(types.CastMediaStatus, error)) error {
	return m.simpleCommand("SET_VOLUME", mediaSessionID, map[string]any{
		"volume": map[string]any{"level": level, "muted": muted},
	}, handler)
}

// GetStatus requests the current media status for the connected app.
func (m *Media) GetStatus(handler func(types.CastMediaStatus, bool, error)) error {
	return m.sender.SendJSON(NamespaceMedia, m.dest(), map[string]any{"type": "GET_STATUS"}, func(res dispatch.Result) {
		if res.Err != nil {
			handler(types.CastMediaStatus{}, false, res.Err)
			return
		}
		entries := getSlice(res.JSON, "status")
		if len(entries) == 0 {
			handler(types.CastMediaStatus{}, false, nil)
			return
		}
		entry, ok := entries[0].(map[string]any)
		if !ok {
			handler(types.CastMediaStatus{}, false, nil)
			return
		}
		status := parseMediaStatus(entry)
		status.ObservedAtUnixNano = time.Now().UnixNano()
		handler(status, true, nil)
	})
}

func (m *Media) simpleCommand(cmdType string, mediaSessionID int, extra map[string]any, handler func(types.CastMediaStatus, error)) error {
	payload := map[string]any{"type": cmdType, "mediaSessionId": mediaSessionID}
	for k, v := range extra {
		payload[k] = v
	}
	return m.sender.SendJSON(NamespaceMedia, m.dest(), payload, m.statusResultHandler(handler))
}

func (m *Media) statusResultHandler(handler func(types.CastMediaStatus, error)) dispatch.Handler {
	return func(res dispatch.Result) {
		if handler == nil {
			return
		}
		if res.Err != nil {
			handler(types.CastMediaStatus{}, res.Err)
			return
		}
		entries := getSlice(res.JSON, "status")
		if len(entries) == 0 {
			handler(types.CastMediaStatus{}, nil)
			return
		}
		entry, ok := entries[0].(map[string]any)
		if !ok {
			handler(types.CastMediaStatus{}, nil)
			return
		}
		status := parseMediaStatus(entry)
		status.ObservedAtUnixNano = time.Now().UnixNano()
		handler(status, nil)
	}
}

// HandleJSON publishes every MEDIA_STATUS broadcast to the OnStatus
// observer, stamping ObservedAtUnixNano for CurrentTime projection.
func (m *Media) HandleJSON(payload map[string]any, sourceID string) {
	if getString(payload, "type") != "MEDIA_STATUS" {
		return
	}
	cb := m.statusCallback()
	if cb == nil {
		return
	}
	for _, e := range getSlice(payload, "status") {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		status := parseMediaStatus(entry)
		status.ObservedAtUnixNano = time.Now().UnixNano()
		cb(status)
	}
}
