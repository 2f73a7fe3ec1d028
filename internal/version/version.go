package version

import "fmt"

// Version is the release version embedded in the binary.
// Override at build time via:
// go build -ldflags "-X github.com/oukeidos/transpop/internal/version.Version=0.2.0"
var Version = "0.2.0"

// Commit is the git commit hash embedded in the binary.
var Commit = "unknown"

// BuildDate is the RFC3339 build timestamp embedded in the binary.
var BuildDate = "unknown"

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("transpop %s\ncommit: %s\nbuild: %s", Version, Commit, BuildDate)
}

// UserAgent is sent with provider HTTP requests.
func UserAgent() string {
	return "transpop/" + Version
}
