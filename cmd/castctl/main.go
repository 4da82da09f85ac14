// Command castctl is a command-line Cast V2 sender: it dials a
// receiver, drives its session lifecycle, and prints status, built on
// top of the cast package.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scobuck/CastKit/internal/config"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagHost    string
	flagPort    int
	flagName    string
	flagTimeout int
	flagLogLvl  string
)

var rootCmd = &cobra.Command{
	Use:     "castctl",
	Short:   "castctl - command-line sender for Google Cast V2 receivers",
	Long:    `castctl dials a Cast receiver over TLS and drives launch, load, playback, and volume operations from the shell.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(parseLogLevel(flagLogLvl))
		log.Logger = log.With().Str("sender", flagName).Logger()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("castctl %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "receiver host or IP (default: last remembered device)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "receiver port (default: 8009, or the remembered device's port)")
	rootCmd.PersistentFlags().StringVar(&flagName, "name", "castctl", "sender display name reported in logs")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 10, "seconds to wait for the connection to reach the connected state, and for each response")
	rootCmd.PersistentFlags().StringVar(&flagLogLvl, "log-level", "info", "trace, debug, info, warn, error, disabled")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newDevicesCmd(cfg))
	rootCmd.AddCommand(newStatusCmd(cfg))
	rootCmd.AddCommand(newLaunchCmd(cfg))
	rootCmd.AddCommand(newJoinCmd(cfg))
	rootCmd.AddCommand(newLeaveCmd(cfg))
	rootCmd.AddCommand(newStopAppCmd(cfg))
	rootCmd.AddCommand(newLoadCmd(cfg))
	rootCmd.AddCommand(newPlayCmd(cfg))
	rootCmd.AddCommand(newPauseCmd(cfg))
	rootCmd.AddCommand(newStopMediaCmd(cfg))
	rootCmd.AddCommand(newSeekCmd(cfg))
	rootCmd.AddCommand(newVolumeCmd(cfg))
	rootCmd.AddCommand(newMuteCmd(cfg))
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
