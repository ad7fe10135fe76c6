// Package lock provides exclusive advisory locks keyed by file path.
//
// A Locker hands out at most one Lock per path. Acquisition never blocks:
// if another holder owns the path, Acquire fails immediately with ErrLocked
// and the caller decides whether to back off and retry.
//
// FileLocker coordinates between processes using flock(2) on a sidecar
// "<path>.lock" file. MemLocker coordinates within a single process and is
// intended for tests that do not want to touch the filesystem.
package lock
