package channel

import "github.com/scobuck/CastKit/internal/types"

// The receiver's JSON payloads decode into map[string]any via
// encoding/json, where every number becomes float64 and every nested
// object becomes map[string]any. These helpers extract typed values
// defensively — a missing or wrongly-typed field degrades to a zero
// value instead of panicking, since receivers are free to omit fields
// the protocol marks optional.

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func getInt(m map[string]any, key string) int {
	return int(getFloat(m, key))
}

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func getSlice(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

func parseNamespaces(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name := getString(v, "name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func parseCastApp(raw map[string]any) types.CastApp {
	return types.CastApp{
		ID:          getString(raw, "appId"),
		SessionID:   getString(raw, "sessionId"),
		TransportID: getString(raw, "transportId"),
		DisplayName: getString(raw, "displayName"),
		StatusText:  getString(raw, "statusText"),
		Namespaces:  parseNamespaces(getSlice(raw, "namespaces")),
	}
}

func parseCastStatus(raw map[string]any) types.CastStatus {
	status := types.CastStatus{}
	if vol := getMap(raw, "volume"); vol != nil {
		status.Volume = getFloat(vol, "level")
		status.Muted = getBool(vol, "muted")
	}
	for _, a := range getSlice(raw, "applications") {
		appMap, ok := a.(map[string]any)
		if !ok {
			continue
		}
		status.Apps = append(status.Apps, parseCastApp(appMap))
	}
	return status
}

func parseMediaInfo(raw map[string]any) types.MediaInfo {
	info := types.MediaInfo{
		ContentID:   getString(raw, "contentId"),
		ContentType: getString(raw, "contentType"),
		StreamType:  types.StreamType(getString(raw, "streamType")),
		Duration:    getFloat(raw, "duration"),
	}
	if md := getMap(raw, "metadata"); md != nil {
		info.Metadata = types.MediaMetadata(md)
	}
	return info
}

func parseMediaStatus(raw map[string]any) types.CastMediaStatus {
	status := types.CastMediaStatus{
		MediaSessionID: getInt(raw, "mediaSessionId"),
		PlayerState:    types.PlayerState(getString(raw, "playerState")),
		IdleReason:     types.IdleReason(getString(raw, "idleReason")),
		CurrentTime:    getFloat(raw, "currentTime"),
		PlaybackRate:   getFloat(raw, "playbackRate"),
	}
	if status.PlaybackRate == 0 {
		status.PlaybackRate = 1
	}
	if media := getMap(raw, "media"); media != nil {
		status.Media = parseMediaInfo(media)
	}
	if vol := getMap(raw, "volume"); vol != nil {
		status.Volume = getFloat(vol, "level")
		status.Muted = getBool(vol, "muted")
	}
	return status
}

func parseMultizoneDevice(raw map[string]any) types.CastMultizoneDevice {
	return types.CastMultizoneDevice{
		ID:     getString(raw, "deviceId"),
		Name:   getString(raw, "name"),
		Volume: getFloat(getMap(raw, "volume"), "level"),
		Muted:  getBool(getMap(raw, "volume"), "muted"),
	}
}
