package version

// Version is the current release version, overridable at build time with
// -ldflags "-X snatch/internal/version.Version=...".
var Version = "0.3.0"
