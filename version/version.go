// Package version carries the build metadata stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
)

// Name is the binary and host identity reported to peers.
const Name = "sessionlink"

// These variables are populated by the Go linker during the build process.
var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf(
		"%s %s\n  Commit:     %s\n  Branch:     %s\n  Built:      %s\n  Go:         %s\n  Platform:   %s",
		i.Name, i.Version, i.Commit, i.Branch, i.BuildDate, i.GoVersion, i.Platform,
	)
}
