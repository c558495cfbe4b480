// Command worldlinkd runs a world-state replication link: a sync manager
// composing delta compression, rate limiting, and schema validation over a
// pluggable transport.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags:
//
//	-X main.Version=1.0.0
//	-X main.Commit=abc1234
//	-X main.Date=2026-01-30T12:00:00Z
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "worldlinkd",
	Short: "worldlinkd - world-state replication link daemon",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("worldlinkd %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("worldlinkd exiting")
		os.Exit(1)
	}
}
