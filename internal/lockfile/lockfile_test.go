package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Errorf("Lock file was not created: %s", lockPath)
	}

	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	expectedContent := fmt.Sprintf("pid=%d\n", os.Getpid())
	if string(content) != expectedContent {
		t.Errorf("Lock file content mismatch. Expected: %q, Got: %q", expectedContent, string(content))
	}
}

func TestLockReleaseIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("First Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Second Release() error = %v", err)
	}

	lockPath := filepath.Join(tempDir, LockFileName)
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("Lock file still exists after release: %s", lockPath)
	}
}

func TestLockReacquireAfterRelease(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("Failed to release first lock: %v", err)
	}

	lock2, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to re-acquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestParseLockPID(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"pid=1234\n", 1234},
		{"pid=42", 42},
		{"no pid here", 0},
		{"pid=", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseLockPID(tt.content); got != tt.want {
			t.Errorf("parseLockPID(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
