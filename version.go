// Package nosql provides the version information for nosql.
package nosql

// Version is the current version of nosql.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
