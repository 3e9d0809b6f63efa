package buildinfo

// Set at build time:
//
//	-X 'github.com/m3rciful/apptbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/apptbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/apptbot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the source revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)

// String renders the build identity for the version command and startup log.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
