// Package lockfile guards the state directory against concurrent CampoBot
// processes. Two instances sharing one session database would interleave
// writes and corrupt conversation state, so startup takes an exclusive
// flock on a well-known file and refuses to continue when it is held.
//
// flock releases with the process, so a crash never leaves the directory
// permanently locked; only the marker file itself can go stale.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the marker file created inside the state directory.
const LockFileName = "campobot.lock"

// Lock is a held state-directory lock. Release it on shutdown.
type Lock struct {
	file *os.File
	path string
	held bool
}

// AcquireLock takes the exclusive lock for stateDir, creating the directory
// when needed. When another process holds it, the returned error is an
// *AlreadyLockedError describing the holder.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("lockfile: create state directory %s: %w", stateDir, err)
	}

	path := filepath.Join(stateDir, LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	// LOCK_NB: report the conflict instead of queueing behind the holder.
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := describeHolder(path)
		slog.Error("Lockfile.AcquireLock: state directory already locked", "path", path, "holder", holder)
		return nil, &AlreadyLockedError{Path: path, Holder: holder, Cause: err}
	}

	if _, err := fmt.Fprintf(file, "pid=%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("lockfile: write pid to %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		slog.Warn("Lockfile.AcquireLock: sync failed", "error", err, "path", path)
	}

	slog.Info("Lockfile.AcquireLock: lock acquired", "path", path, "pid", os.Getpid())
	return &Lock{file: file, path: path, held: true}, nil
}

// Release drops the lock and removes the marker file. Calling it again is a
// no-op.
func (l *Lock) Release() error {
	if !l.held || l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Lockfile.Release: unlock failed", "error", err, "path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Lockfile.Release: close failed", "error", err, "path", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		slog.Error("Lockfile.Release: remove failed", "error", err, "path", l.path)
	}

	l.held = false
	l.file = nil
	slog.Info("Lockfile.Release: lock released", "path", l.path)
	return nil
}

// AlreadyLockedError reports a state directory held by another process.
type AlreadyLockedError struct {
	Path   string
	Holder string
	Cause  error
}

func (e *AlreadyLockedError) Error() string {
	msg := "another CampoBot instance is using this state directory (lock file: " + e.Path + ")"
	if e.Holder != "" {
		msg += "\nheld by: " + e.Holder
	}
	msg += "\nif no other instance is running, remove the stale lock with: rm " + e.Path
	return msg
}

func (e *AlreadyLockedError) Unwrap() error {
	return e.Cause
}

// describeHolder reads the existing marker file and reports its owner as
// precisely as it can, for the startup error message.
func describeHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	pid := parseLockPID(string(data))
	if pid <= 0 {
		return strings.TrimSpace(string(data))
	}
	if processAlive(pid) {
		return fmt.Sprintf("PID %d (running)", pid)
	}
	return fmt.Sprintf("PID %d (not running, lock looks stale)", pid)
}

// parseLockPID extracts the pid recorded in the marker file, or 0.
func parseLockPID(content string) int {
	const prefix = "pid="
	idx := strings.Index(content, prefix)
	if idx < 0 {
		return 0
	}
	rest := content[idx+len(prefix):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	pid, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return pid
}

// processAlive checks the pid with signal 0, which tests existence without
// delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
