package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `
The "version" command prints the xylu build version together with the Go
toolchain and platform it was compiled with.
`,
	DisableAutoGenTag: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		if globalOptions.JSON {
			type jsonVersion struct {
				Version   string `json:"version"`
				GoVersion string `json:"go_version"`
				GoOS      string `json:"go_os"`
				GoArch    string `json:"go_arch"`
			}
			return json.NewEncoder(os.Stdout).Encode(jsonVersion{
				Version:   version,
				GoVersion: runtime.Version(),
				GoOS:      runtime.GOOS,
				GoArch:    runtime.GOARCH,
			})
		}
		fmt.Printf("xylu %s compiled with %v on %v/%v\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	cmdRoot.AddCommand(versionCmd)
}
