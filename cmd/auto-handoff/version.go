package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/zxyyang/claude-auto-handoff/internal/updater"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, build information, and runtime details.
With --check, probe GitHub for a newer release and refresh the cache that
the session-start hook reads.`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check for a newer release")
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("auto-handoff version %s\n", version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if !versionCheck {
		return nil
	}

	cfg, _ := loadSettings()
	checker := updater.New(version, cfg.VersionCheck.Repo, cfg.CacheDir, cfg.CheckInterval())
	res, err := checker.Check(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("version check: %w", err)
	}
	fmt.Println()
	if res.HasUpdate {
		fmt.Printf("Update available: %s (installed: %s)\n", res.RemoteVersion, res.LocalVersion)
		if res.ReleaseURL != "" {
			fmt.Printf("  %s\n", res.ReleaseURL)
		}
	} else {
		fmt.Printf("Up to date (latest release: %s)\n", res.RemoteVersion)
	}
	return nil
}
