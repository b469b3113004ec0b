// Package version carries build identification, set at link time via
// -ldflags "-X github.com/keyframe-systems/regiontrack/internal/version.Version=...".
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build identification on one line.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
