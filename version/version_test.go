package version

import (
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	GitCommit = ""
	BuildTime = ""

	info := Get()
	if info.Name != Name {
		t.Errorf("expected name %q, got %q", Name, info.Name)
	}
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
}

func TestGetRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.4.0"
	GitCommit = "abc1234"
	BuildTime = "2026-03-01T10:00:00Z"

	info := Get()
	if !info.IsRelease {
		t.Error("expected 1.4.0 to be a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected ldflags commit to win, got %q", info.GitCommit)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("expected build date %v, got %v", want, info.BuildDate)
	}
}

func TestGetDirtyVersionIsNotRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.4.0-dirty"

	if Get().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestInfoString(t *testing.T) {
	info := &Info{
		Name:      "flowgraph",
		Version:   "1.4.0",
		GitCommit: "abc1234",
		IsDirty:   true,
		BuildDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		GoVersion: "go1.26.0",
	}
	got := info.String()
	want := "flowgraph 1.4.0 (abc1234-dirty) built 2026-03-01T10:00:00Z go1.26.0"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	bare := (&Info{Name: "flowgraph", Version: "dev"}).String()
	if bare != "flowgraph dev" {
		t.Errorf("String() = %q, want %q", bare, "flowgraph dev")
	}
}

func TestShort(t *testing.T) {
	defer saveAndRestore()()
	Version = "2.0.0"
	GitCommit = "deadbee"

	if got := Short(); got != "2.0.0-deadbee" {
		t.Errorf("Short() = %q, want %q", got, "2.0.0-deadbee")
	}
	if !strings.HasPrefix(Short(), "2.0.0") {
		t.Error("expected version prefix")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit() = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit() = %q", got)
	}
}
