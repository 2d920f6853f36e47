package buildconfig

// Build-time variables injected via ldflags
var (
	version = "0.3.0"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// UserAgent returns the client identification sent with every API request.
func UserAgent() string {
	return "conversimple-go/" + version
}
