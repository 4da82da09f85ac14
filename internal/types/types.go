// Package types holds the wire-agnostic data model shared by the
// dispatcher, the channels, and the session store: devices, launched
// apps, and the three status kinds a receiver broadcasts.
package types

// DeviceCapability is a bitset describing what a discovered receiver
// advertises. Discovery (out of scope for this module) is expected to
// populate CastDevice.Capabilities from the same bits.
type DeviceCapability uint32

const (
	CapabilityVideoOut DeviceCapability = 1 << iota
	CapabilityVideoIn
	CapabilityAudioOut
	CapabilityAudioIn
	CapabilityMultizoneGroup
)

// CastDevice is an immutable record produced by discovery (mDNS/Bonjour)
// and consumed by Client.Connect. It is never mutated after construction.
type CastDevice struct {
	ID           string
	Name         string
	ModelName    string
	HostName     string
	Port         int
	Capabilities DeviceCapability
}

// DefaultPort is the Cast V2 control port used by virtually every
// production receiver.
const DefaultPort = 8009

// DefaultMediaAppID is the receiver-side app ID for the default media
// player.
const DefaultMediaAppID = "CC1AD845"

// CastApp describes a launched receiver application. Two instances
// are considered equal when their SessionID matches.
type CastApp struct {
	ID          string
	SessionID   string
	TransportID string
	DisplayName string
	StatusText  string
	Namespaces  []string
}

// Equal reports whether two apps refer to the same launched session.
func (a CastApp) Equal(other CastApp) bool {
	return a.SessionID == other.SessionID
}

// HasNamespace reports whether the app advertises ns.
func (a CastApp) HasNamespace(ns string) bool {
	for _, n := range a.Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}

// CastStatus is the receiver's overall device status: volume, mute, and
// the set of running applications.
type CastStatus struct {
	Volume float64
	Muted  bool
	Apps   []CastApp
}

// AppWithID returns the running app with the given appId, if any.
func (s CastStatus) AppWithID(appID string) (CastApp, bool) {
	for _, a := range s.Apps {
		if a.ID == appID {
			return a, true
		}
	}
	return CastApp{}, false
}

// PlayerState enumerates the media player's lifecycle state.
type PlayerState string

const (
	PlayerStateIdle       PlayerState = "IDLE"
	PlayerStatePlaying    PlayerState = "PLAYING"
	PlayerStatePaused     PlayerState = "PAUSED"
	PlayerStateBuffering  PlayerState = "BUFFERING"
)

// IdleReason enumerates why a PlayerStateIdle status was reached.
type IdleReason string

const (
	IdleReasonCancelled IdleReason = "CANCELLED"
	IdleReasonFinished  IdleReason = "FINISHED"
	IdleReasonError     IdleReason = "ERROR"
	IdleReasonInterrupted IdleReason = "INTERRUPTED"
)

// StreamType enumerates the kind of media being loaded.
type StreamType string

const (
	StreamTypeBuffered StreamType = "BUFFERED"
	StreamTypeLive     StreamType = "LIVE"
	StreamTypeNone     StreamType = "NONE"
)

// MediaMetadata is a free-form bag of display metadata attached to a
// loaded media item (title, subtitle, artwork), mirroring the real
// protocol's loosely-typed MetadataType.
type MediaMetadata map[string]any

// MediaInfo describes the media item passed to Client.Load.
type MediaInfo struct {
	ContentID   string
	ContentType string
	StreamType  StreamType
	Duration    float64
	Metadata    MediaMetadata
}

// LoadOptions carries the non-content parameters of a LOAD request.
type LoadOptions struct {
	Autoplay    bool
	CurrentTime float64
	CustomData  map[string]any
}

// CastMediaStatus is the receiver's media player status.
type CastMediaStatus struct {
	MediaSessionID int
	PlayerState    PlayerState
	IdleReason     IdleReason
	CurrentTime    float64
	PlaybackRate   float64
	Volume         float64
	Muted          bool
	// ObservedAtUnixNano is the wall-clock time, in Unix nanoseconds,
	// at which CurrentTime was sampled, recorded by the media channel on
	// receipt. No projection of CurrentTime to the present is computed.
	ObservedAtUnixNano int64
	Media              MediaInfo
}

// CastMultizoneDevice describes one audio endpoint within a multizone
// group.
type CastMultizoneDevice struct {
	ID           string
	Name         string
	Capabilities DeviceCapability
	Volume       float64
	Muted        bool
}

// CastMultizoneStatus is the aggregate multizone group status.
type CastMultizoneStatus struct {
	Devices []CastMultizoneDevice
}

// AppAvailability maps an appId to whether the receiver can currently
// run it, the result of Client.GetAppAvailability.
type AppAvailability map[string]bool
