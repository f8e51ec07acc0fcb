package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/killallgit/route-planner-api/api/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display detailed version information about the Route Planner API.

This includes the version number, git commit hash, build time,
and runtime information.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
}

func runVersion(cmd *cobra.Command, args []string) {
	info := version.Current()
	out := cmd.OutOrStdout()

	if short, _ := cmd.Flags().GetBool("short"); short {
		fmt.Fprintf(out, "v%s\n", strings.TrimPrefix(info.Version, "v"))
		return
	}

	fmt.Fprintln(out, info.Name)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "Version:      v%s\n", strings.TrimPrefix(info.Version, "v"))
	fmt.Fprintf(out, "Git Commit:   %s\n", info.Commit)
	fmt.Fprintf(out, "Build Time:   %s\n", info.BuildDate)
	fmt.Fprintf(out, "Go Version:   %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(out, strings.Repeat("-", 40))
}
