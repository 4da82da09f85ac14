package cast

import (
	"errors"
	"fmt"

	"github.com/scobuck/CastKit/internal/dispatch"
	"github.com/scobuck/CastKit/internal/types"
)

// classify maps a timed-out request to ErrorKindRequest regardless of
// the operation that issued it, and everything else to fallback.
func classify(fallback ErrorKind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dispatch.ErrTimeout) {
		return newError(ErrorKindRequest, op, err)
	}
	return newError(fallback, op, err)
}

// Launch requests the receiver start appID, opens a virtual connection
// to the resulting app's transport, and delivers the connected CastApp.
func (c *Client) Launch(appID string, handler func(types.CastApp, error)) error {
	if err := c.requireConnected("Launch"); err != nil {
		return err
	}
	return c.receiver.Launch(appID, func(app types.CastApp, err error) {
		if err != nil {
			if handler != nil {
				handler(types.CastApp{}, classify(ErrorKindLaunch, "Launch", err))
			}
			return
		}
		if err := c.connection.Open(app.TransportID); err != nil {
			if handler != nil {
				handler(types.CastApp{}, newError(ErrorKindWrite, "Launch", err))
			}
			return
		}
		c.adoptApp(app)
		if handler != nil {
			handler(app, nil)
		}
	})
}

// Join attaches to an already-running instance of appID reported by the
// last receiver status, without issuing LAUNCH. If no such app is
// currently running, this is a no-op: the handler receives a zero
// CastApp, found=false, and no error — joining a session that isn't
// there is not a failure, just nothing to join.
func (c *Client) Join(appID string, handler func(app types.CastApp, found bool, err error)) error {
	if err := c.requireConnected("Join"); err != nil {
		return err
	}
	status, ok := c.session.Status()
	if !ok {
		if handler != nil {
			handler(types.CastApp{}, false, nil)
		}
		return nil
	}
	app, ok := status.AppWithID(appID)
	if !ok {
		if handler != nil {
			handler(types.CastApp{}, false, nil)
		}
		return nil
	}
	if err := c.connection.Open(app.TransportID); err != nil {
		if handler != nil {
			handler(types.CastApp{}, false, newError(ErrorKindWrite, "Join", err))
		}
		return nil
	}
	c.adoptApp(app)
	if handler != nil {
		handler(app, true, nil)
	}
	return nil
}

// Leave closes the virtual connection to app without stopping it on
// the receiver — the app keeps running, this sender just detaches.
func (c *Client) Leave(app types.CastApp, handler func(error)) error {
	if err := c.connection.Close(app.TransportID); err != nil {
		if handler != nil {
			handler(newError(ErrorKindWrite, "Leave", err))
		}
		return nil
	}
	if current := c.session.ConnectedApp(); current != nil && current.Equal(app) {
		c.session.SetConnectedApp(nil)
	}
	if handler != nil {
		handler(nil)
	}
	return nil
}

// StopCurrentApp stops the connected app on the receiver and clears it
// from session state. With no connected app, this is a silent no-op.
func (c *Client) StopCurrentApp(handler func(error)) error {
	app := c.session.ConnectedApp()
	if app == nil {
		if handler != nil {
			handler(nil)
		}
		return nil
	}
	return c.receiver.Stop(app.SessionID, func(err error) {
		if err != nil {
			if handler != nil {
				handler(newError(ErrorKindSession, "StopCurrentApp", err))
			}
			return
		}
		_ = c.connection.Close(app.TransportID)
		c.session.SetConnectedApp(nil)
		if handler != nil {
			handler(nil)
		}
	})
}

// adoptApp records app as the connected app and points the media
// channel at its transport, so subsequent Load/Play/Pause/Seek calls
// reach the right destination without the caller repeating it.
func (c *Client) adoptApp(app types.CastApp) {
	c.session.SetConnectedApp(&app)
	c.media.SetDestination(app.TransportID)
}

// Load loads media into the connected app. With no connected app, this
// is a silent no-op per the idempotent-user-action contract.
func (c *Client) Load(media types.MediaInfo, opts types.LoadOptions, handler func(types.CastMediaStatus, error)) error {
	if c.session.ConnectedApp() == nil {
		if handler != nil {
			handler(types.CastMediaStatus{}, nil)
		}
		return nil
	}
	return c.media.Load(media, opts, c.wrapMediaHandler("Load", handler))
}

// RequestMediaStatus asks the connected app for its current media
// status. With no connected app, this is a silent no-op.
func (c *Client) RequestMediaStatus(handler func(types.CastMediaStatus, bool, error)) error {
	if c.session.ConnectedApp() == nil {
		if handler != nil {
			handler(types.CastMediaStatus{}, false, nil)
		}
		return nil
	}
	return c.media.GetStatus(func(status types.CastMediaStatus, found bool, err error) {
		if err != nil {
			err = classify(ErrorKindSession, "RequestMediaStatus", err)
		}
		if handler != nil {
			handler(status, found, err)
		}
	})
}

// Play resumes the connected app's current media. With no connected
// app, this is a silent no-op; with no cached media session, it
// requests status first and then plays the session it finds.
func (c *Client) Play(handler func(types.CastMediaStatus, error)) error {
	return c.withMediaSession("Play", handler, c.media.Play)
}

// Pause pauses the connected app's current media, with the same
// no-op/fallback rules as Play.
func (c *Client) Pause(handler func(types.CastMediaStatus, error)) error {
	return c.withMediaSession("Pause", handler, c.media.Pause)
}

// StopMedia stops the connected app's current media session (leaving
// the app itself running), with the same no-op/fallback rules as Play.
func (c *Client) StopMedia(handler func(types.CastMediaStatus, error)) error {
	return c.withMediaSession("StopMedia", handler, c.media.StopSession)
}

// Seek moves the connected app's current media to currentTime seconds,
// with the same no-op/fallback rules as Play.
func (c *Client) Seek(currentTime float64, handler func(types.CastMediaStatus, error)) error {
	return c.withMediaSession("Seek", handler, func(id int, h func(types.CastMediaStatus, error)) error {
		return c.media.Seek(id, currentTime, h)
	})
}

// SetStreamVolume sets the per-stream volume and mute of the connected
// app's current media, with the same no-op/fallback rules as Play.
func (c *Client) SetStreamVolume(level float64, muted bool, handler func(types.CastMediaStatus, error)) error {
	return c.withMediaSession("SetStreamVolume", handler, func(id int, h func(types.CastMediaStatus, error)) error {
		return c.media.SetStreamVolume(id, level, muted, h)
	})
}

// withMediaSession implements the "require a mediaSessionId" contract
// shared by Play/Pause/StopMedia/Seek/SetStreamVolume: no connected
// app is a silent no-op; a connected app with no cached media status
// fetches one first, then issues run with the session ID it finds (and
// is itself a silent no-op if nothing is loaded).
func (c *Client) withMediaSession(op string, handler func(types.CastMediaStatus, error), run func(mediaSessionID int, handler func(types.CastMediaStatus, error)) error) error {
	if c.session.ConnectedApp() == nil {
		if handler != nil {
			handler(types.CastMediaStatus{}, nil)
		}
		return nil
	}
	wrapped := c.wrapMediaHandler(op, handler)
	if status, ok := c.session.MediaStatus(); ok {
		return run(status.MediaSessionID, wrapped)
	}
	return c.media.GetStatus(func(status types.CastMediaStatus, found bool, err error) {
		if err != nil {
			if handler != nil {
				handler(types.CastMediaStatus{}, classify(ErrorKindSession, op, err))
			}
			return
		}
		if !found {
			if handler != nil {
				handler(types.CastMediaStatus{}, nil)
			}
			return
		}
		if err := run(status.MediaSessionID, wrapped); err != nil {
			if handler != nil {
				handler(types.CastMediaStatus{}, newError(ErrorKindWrite, op, err))
			}
		}
	})
}

func (c *Client) wrapMediaHandler(op string, handler func(types.CastMediaStatus, error)) func(types.CastMediaStatus, error) {
	if handler == nil {
		return nil
	}
	return func(status types.CastMediaStatus, err error) {
		if err != nil {
			err = classify(ErrorKindLoad, op, err)
		}
		handler(status, err)
	}
}

// SetVolume sets the receiver's overall device volume in [0, 1]. It
// does not require a connected app.
func (c *Client) SetVolume(level float64, handler func(error)) error {
	return c.receiver.SetVolumeLevel(level, c.wrapSessionErr("SetVolume", handler))
}

// SetMuted sets the receiver's overall mute state. It does not require
// a connected app.
func (c *Client) SetMuted(muted bool, handler func(error)) error {
	return c.receiver.SetMuted(muted, c.wrapSessionErr("SetMuted", handler))
}

// SetZoneVolume sets the per-device volume within a multizone group.
func (c *Client) SetZoneVolume(deviceID string, level float64, handler func(error)) error {
	return c.multizone.SetVolume(deviceID, level, c.wrapSessionErr("SetZoneVolume", handler))
}

// GetAppAvailability reports, for each of appIDs, whether the receiver
// can currently launch it.
func (c *Client) GetAppAvailability(appIDs []string, handler func(types.AppAvailability, error)) error {
	return c.receiver.GetAppAvailability(appIDs, func(avail types.AppAvailability, err error) {
		if err != nil {
			err = classify(ErrorKindSession, "GetAppAvailability", err)
		}
		if handler != nil {
			handler(avail, err)
		}
	})
}

func (c *Client) wrapSessionErr(op string, handler func(error)) func(error) {
	return func(err error) {
		if handler == nil {
			return
		}
		if err != nil {
			err = classify(ErrorKindSession, op, err)
		}
		handler(err)
	}
}

func (c *Client) requireConnected(op string) error {
	if c.State() != StateConnected {
		return newError(ErrorKindConnection, op, fmt.Errorf("not connected"))
	}
	return nil
}
