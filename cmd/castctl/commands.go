package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cast "github.com/scobuck/CastKit"
	"github.com/scobuck/CastKit/internal/config"
	"github.com/scobuck/CastKit/internal/types"
)

func newDevicesCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List remembered receivers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if len(cfg.Devices) == 0 {
				fmt.Println("no remembered devices")
				return
			}
			for _, d := range cfg.Devices {
				marker := " "
				if d.HostName == cfg.LastDevice {
					marker = "*"
				}
				fmt.Printf("%s %-20s %s:%d\n", marker, d.Name, d.HostName, d.Port)
			}
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "remember NAME",
		Short: "Save the --host/--port device under NAME and make it the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := resolveDevice(cfg)
			if err != nil {
				return err
			}
			cfg := config.Load()
			cfg.RememberDevice(config.DeviceEntry{Name: args[0], HostName: device.HostName, Port: device.Port})
			cfg.LastDevice = device.HostName
			return config.Save(cfg)
		},
	})
	return cmd
}

func newStatusCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect and print the receiver's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := resolveDevice(cfg)
			if err != nil {
				return err
			}
			client, err := dialConnected(device)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			statusCh := make(chan types.CastStatus, 1)
			client.SetObserver(&statusObserver{CastStatus: statusCh})

			select {
			case status := <-statusCh:
				printStatus(status)
			case <-time.After(time.Duration(flagTimeout) * time.Second):
				fmt.Println("no status received before timeout")
			}
			return nil
		},
	}
}

func printStatus(status types.CastStatus) {
	fmt.Printf("volume: %.2f  muted: %v\n", status.Volume, status.Muted)
	if len(status.Apps) == 0 {
		fmt.Println("no running apps")
		return
	}
	for _, app := range status.Apps {
		fmt.Printf("  app %-10s %-20s %s\n", app.ID, app.DisplayName, app.StatusText)
	}
}

type statusObserver struct {
	cast.NopObserver
	CastStatus chan types.CastStatus
}

func (o *statusObserver) OnStatus(status types.CastStatus) {
	select {
	case o.CastStatus <- status:
	default:
	}
}

func newLaunchCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "launch [appID]",
		Short: "Launch a receiver app (default: the default media receiver)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := cfg.DefaultAppID
			if len(args) == 1 {
				appID = args[0]
			}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.Launch(appID, func(app types.CastApp, err error) {
						if err == nil {
							fmt.Printf("launched %s (session %s)\n", app.DisplayName, app.SessionID)
						}
						done(err)
					})
				})
			})
		},
	}
}

func newJoinCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "join appID",
		Short: "Attach to an already-running app without launching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.Join(args[0], func(app types.CastApp, found bool, err error) {
						if err == nil && found {
							fmt.Printf("joined %s (session %s)\n", app.DisplayName, app.SessionID)
						} else if err == nil {
							fmt.Println("no running app with that id")
						}
						done(err)
					})
				})
			})
		},
	}
}

func newLeaveCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "leave appID sessionID transportID",
		Short: "Detach from an app's virtual connection without stopping it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := types.CastApp{ID: args[0], SessionID: args[1], TransportID: args[2]}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.Leave(app, done)
				})
			})
		},
	}
}

func newStopAppCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-app",
		Short: "Stop the connected app on the receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.StopCurrentApp(done)
				})
			})
		},
	}
}

var (
	flagContentID   string
	flagContentType string
	flagAutoplay    bool
)

func newLoadCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load media into the connected app (launches the default media app first if none is running)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagContentID == "" {
				return fmt.Errorf("--url is required")
			}
			media := types.MediaInfo{
				ContentID:   flagContentID,
				ContentType: flagContentType,
				StreamType:  types.StreamTypeBuffered,
			}
			opts := types.LoadOptions{Autoplay: flagAutoplay}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				if err := ensureMediaAppLaunched(client, cfg.DefaultAppID); err != nil {
					return err
				}
				return awaitErr(func(done func(error)) error {
					return client.Load(media, opts, func(status types.CastMediaStatus, err error) {
						if err == nil {
							fmt.Printf("loaded, player state: %s\n", status.PlayerState)
						}
						done(err)
					})
				})
			})
		},
	}
	cmd.Flags().StringVar(&flagContentID, "url", "", "content URL to load")
	cmd.Flags().StringVar(&flagContentType, "content-type", "video/mp4", "MIME type of the content")
	cmd.Flags().BoolVar(&flagAutoplay, "autoplay", true, "start playback immediately after loading")
	return cmd
}

// ensureMediaAppLaunched makes appID the connected app: it joins appID
// if the receiver reports it running and launches it otherwise, so
// `castctl load` works as a single command against an idle receiver.
func ensureMediaAppLaunched(client *cast.Client, appID string) error {
	launched := make(chan error, 1)
	needsLaunch := false
	statusCh := make(chan types.CastStatus, 1)
	client.SetObserver(&statusObserver{CastStatus: statusCh})
	select {
	case status := <-statusCh:
		if _, ok := status.AppWithID(appID); !ok {
			needsLaunch = true
		}
	case <-time.After(2 * time.Second):
		needsLaunch = true
	}
	if !needsLaunch {
		joined := make(chan error, 1)
		if err := client.Join(appID, func(_ types.CastApp, _ bool, err error) { joined <- err }); err != nil {
			return err
		}
		return <-joined
	}
	if err := client.Launch(appID, func(_ types.CastApp, err error) { launched <- err }); err != nil {
		return err
	}
	select {
	case err := <-launched:
		return err
	case <-time.After(time.Duration(flagTimeout) * time.Second):
		return fmt.Errorf("timed out launching %s", appID)
	}
}

func newPlayCmd(cfg config.Config) *cobra.Command {
	return mediaCmd(cfg, "play", "Resume the connected app's current media", func(c *cast.Client, h func(types.CastMediaStatus, error)) error {
		return c.Play(h)
	})
}

func newPauseCmd(cfg config.Config) *cobra.Command {
	return mediaCmd(cfg, "pause", "Pause the connected app's current media", func(c *cast.Client, h func(types.CastMediaStatus, error)) error {
		return c.Pause(h)
	})
}

func newStopMediaCmd(cfg config.Config) *cobra.Command {
	return mediaCmd(cfg, "stop-media", "Stop the current media session, leaving the app running", func(c *cast.Client, h func(types.CastMediaStatus, error)) error {
		return c.StopMedia(h)
	})
}

func mediaCmd(cfg config.Config, use, short string, op func(*cast.Client, func(types.CastMediaStatus, error)) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return op(client, func(status types.CastMediaStatus, err error) {
						if err == nil {
							fmt.Printf("player state: %s\n", status.PlayerState)
						}
						done(err)
					})
				})
			})
		},
	}
}

func newSeekCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seek SECONDS",
		Short: "Seek the connected app's current media to an absolute position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var seconds float64
			if _, err := fmt.Sscanf(args[0], "%f", &seconds); err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[0], err)
			}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.Seek(seconds, func(status types.CastMediaStatus, err error) {
						done(err)
					})
				})
			})
		},
	}
}

func newVolumeCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "volume LEVEL",
		Short: "Set the receiver's device volume (0.0-1.0)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var level float64
			if _, err := fmt.Sscanf(args[0], "%f", &level); err != nil {
				return fmt.Errorf("invalid level %q: %w", args[0], err)
			}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.SetVolume(level, done)
				})
			})
		},
	}
}

func newMuteCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mute [true|false]",
		Short: "Set the receiver's mute state (default: true)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			muted := true
			if len(args) == 1 {
				muted = args[0] == "true"
			}
			return withConnectedApp(cfg, func(client *cast.Client) error {
				return awaitErr(func(done func(error)) error {
					return client.SetMuted(muted, done)
				})
			})
		},
	}
	return cmd
}

// withConnectedApp dials device, runs fn against the connected client,
// and disconnects afterward regardless of fn's outcome.
func withConnectedApp(cfg config.Config, fn func(*cast.Client) error) error {
	device, err := resolveDevice(cfg)
	if err != nil {
		return err
	}
	client, err := dialConnected(device)
	if err != nil {
		return err
	}
	defer client.Disconnect()
	return fn(client)
}

// awaitErr runs issue, which must eventually call the done callback it
// receives exactly once, and blocks until it does or the command
// timeout elapses.
func awaitErr(issue func(done func(error)) error) error {
	result := make(chan error, 1)
	if err := issue(func(err error) { result <- err }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-time.After(time.Duration(flagTimeout) * time.Second):
		return fmt.Errorf("timed out waiting for response")
	}
}
