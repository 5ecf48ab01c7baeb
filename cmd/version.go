package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("vistaar %s\n", Version)
		cmd.Printf("Build Time: %s\n", BuildTime)
		cmd.Printf("Git Commit: %s\n", GitCommit)

		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cmd.Println("GEMINI_API_KEY: configured")
		} else {
			cmd.Println("GEMINI_API_KEY: not set")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
