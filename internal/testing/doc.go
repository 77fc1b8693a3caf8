// Package testing contains helpers shared by package tests: a fluent configuration
// builder, file system assertions and a scripted stand-in for external tools.
package testing

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600
)
