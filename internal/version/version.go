// Package version holds build-time identity stamped into binaries via
// -ldflags, and prints it at startup (spec §6 ambient concerns).
package version

import (
	"fmt"
	"log"
)

var (
	Name    = "framework"
	Version = "v0.0.1"
	Commit  = "none"
	Date    = "nowish"
)

const GithubHomeUri = "https://github.com/olla-project/framework"

// PrintVersionInfo logs the name/version banner to vlog; extendedInfo
// additionally logs the commit and build date, mirroring the teacher's
// `--version` flag behaviour.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	vlog.Println(fmt.Sprintf("%s %s", Name, Version))
	vlog.Println(GithubHomeUri)
	if extendedInfo {
		vlog.Println(fmt.Sprintf(" Commit: %s", Commit))
		vlog.Println(fmt.Sprintf("  Built: %s", Date))
	}
}
