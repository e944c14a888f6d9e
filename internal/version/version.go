// Package version holds the reflector's name and build identity, printed by
// the -v/--version flag and logged once at startup.
package version

// Name is the reflector's program name, used in the startup banner, the
// -v/--version output and CLI error messages.
const Name = "ysfreflectord"

// Version is a semantic version string. Bumped by hand on release.
const Version = "1.0.0"

// Banner returns the one-line string printed for -v/--version.
func Banner() string {
	return Name + " v" + Version
}
