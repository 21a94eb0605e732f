//go:build !unix

package filesystem

import "os"

// Only the in-process mutex protects the log on these platforms.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
