// Package version reports churnscope build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags:
//
//	-X github.com/paveg/churnscope/internal/version.Version=v0.3.0
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// trackedModules are the dependencies whose versions change numeric
// results or output formats, listed by `churnscope version --verbose`.
var trackedModules = []string{
	"github.com/apache/arrow-go/v18",
	"gonum.org/v1/gonum",
	"gonum.org/v1/plot",
	"github.com/go-echarts/go-echarts/v2",
	"modernc.org/sqlite",
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string            `json:"version"`
	BuildDate string            `json:"build_date"`
	GitCommit string            `json:"git_commit"`
	GoVersion string            `json:"go_version"`
	Module    string            `json:"module,omitempty"`
	Dirty     bool              `json:"dirty"`
	Deps      map[string]string `json:"deps,omitempty"`
}

// Info collects build information from the ldflags variables and the
// embedded module data.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.Module = bi.Main.Path

	for _, dep := range bi.Deps {
		for _, tracked := range trackedModules {
			if dep.Path == tracked {
				if info.Deps == nil {
					info.Deps = make(map[string]string)
				}
				info.Deps[dep.Path] = dep.Version
			}
		}
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.modified" && s.Value == "true" {
			info.Dirty = true
		}
	}
	return info
}

// Short returns "churnscope <version> (<commit>)".
func (b BuildInfo) Short() string {
	if b.GitCommit == unknownValue || b.GitCommit == "" {
		return "churnscope " + b.Version
	}
	return fmt.Sprintf("churnscope %s (%s)", b.Version, shortCommit(b.GitCommit))
}

// String returns a multi-line description.
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("churnscope churn model evaluator\n")
	sb.WriteString(fmt.Sprintf("Version: %s", b.Version))
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		sb.WriteString(fmt.Sprintf("Build Date: %s\n", b.BuildDate))
	}
	if b.GitCommit != unknownValue && b.GitCommit != "" {
		sb.WriteString(fmt.Sprintf("Git Commit: %s\n", shortCommit(b.GitCommit)))
	}
	sb.WriteString(fmt.Sprintf("Go Version: %s\n", b.GoVersion))

	if len(b.Deps) > 0 {
		paths := make([]string, 0, len(b.Deps))
		for p := range b.Deps {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		sb.WriteString("Dependencies:\n")
		for _, p := range paths {
			sb.WriteString(fmt.Sprintf("  %s %s\n", p, b.Deps[p]))
		}
	}
	return sb.String()
}

func shortCommit(commit string) string {
	commit = strings.TrimSuffix(commit, "-dirty")
	if len(commit) > commitHashLength {
		return commit[:commitHashLength]
	}
	return commit
}

// IsRelease returns true for tagged builds without a pre-release suffix.
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
