package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	cast "github.com/scobuck/CastKit"
	"github.com/scobuck/CastKit/internal/config"
	"github.com/scobuck/CastKit/internal/types"
)

// resolveDevice turns the --host/--port flags (falling back to the
// last remembered device in cfg) into a CastDevice to dial.
func resolveDevice(cfg config.Config) (types.CastDevice, error) {
	host := flagHost
	port := flagPort

	if host == "" {
		for _, d := range cfg.Devices {
			if d.HostName == cfg.LastDevice || d.Name == cfg.LastDevice {
				host = d.HostName
				if port == 0 {
					port = d.Port
				}
				break
			}
		}
	}
	if host == "" {
		return types.CastDevice{}, fmt.Errorf("no --host given and no remembered device; run with --host or `castctl devices remember`")
	}
	if port == 0 {
		port = types.DefaultPort
	}

	return types.CastDevice{
		ID:       host,
		Name:     host,
		HostName: host,
		Port:     port,
	}, nil
}

// dialConnected dials device and blocks until the client reaches
// StateConnected, StateDisconnected (a failed connect), or the timeout
// elapses.
func dialConnected(device types.CastDevice) (*cast.Client, error) {
	client := cast.New(device)

	settled := make(chan error, 1)
	var obs connectObserver
	obs.settled = settled
	client.SetObserver(&obs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flagTimeout)*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	select {
	case err := <-settled:
		if err != nil {
			return nil, err
		}
		return client, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for %s:%d to reach connected state", device.HostName, device.Port)
	}
}

// connectObserver reports the first terminal state transition
// (connected or disconnected-after-failure) to settled, and logs
// everything else castctl doesn't otherwise print.
type connectObserver struct {
	cast.NopObserver
	settled chan error
	done    bool
}

func (o *connectObserver) OnStateChanged(state cast.ConnectionState) {
	log.Debug().Str("state", state.String()).Msg("connection state changed")
	if o.done {
		return
	}
	switch state {
	case cast.StateConnected:
		o.done = true
		o.settled <- nil
	case cast.StateDisconnected:
		o.done = true
		o.settled <- fmt.Errorf("connection closed before reaching connected state")
	}
}

func (o *connectObserver) OnError(err error) {
	log.Warn().Err(err).Msg("client reported an error")
}
