package version

// version is set at link time via -ldflags.
var version = "v0.3.0"

// Version returns the release version.
func Version() string {
	return version
}
