package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = unknown

	// BuildTime is the build timestamp.
	BuildTime = unknown
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build information.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, BuildTime)
	})
	return info
}

// String returns a formatted version string.
func String() string {
	i := Get()
	s := i.Version + " (" + shortCommit(i.Commit) + ") built at " + i.BuildTime
	if i.Modified {
		s += " (modified)"
	}
	return s
}

func resolve(version, commit, buildTime string) Info {
	i := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	if i.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == unknown {
				i.Commit = s.Value
			}
		case "vcs.time":
			if i.BuildTime == unknown {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
	return i
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
