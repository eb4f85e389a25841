package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, GitCommit, BuildTime = "1.2.3", "abc123", "2026-01-02T03:04:05Z"
	if got, want := String(), "1.2.3 (commit abc123, built 2026-01-02T03:04:05Z)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
