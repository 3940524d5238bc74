// Package compileinfo describes how the running binary was built, so that
// every output file can be traced back to the code that produced it.
package compileinfo

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
)

type BuildInfo struct {
	Binary       string
	Module       string
	Version      string
	GoVersion    string
	Revision     string
	RevisionTime string
	Modified     bool
}

func (b BuildInfo) String() string {
	if b.Binary == "" {
		return "Build information is unavailable."
	}

	out := fmt.Sprintf("%s (%s %s) built with %s", path.Base(b.Binary), b.Module, b.Version, b.GoVersion)
	if b.Revision != "" {
		out += fmt.Sprintf(" from revision %s (%s)", b.Revision, b.RevisionTime)
	}
	if b.Modified {
		out += " with uncommitted changes"
	}

	return out + "."
}

// Get reads the build information embedded by the Go toolchain. It is empty
// when the binary was built without module support.
func Get() BuildInfo {
	out := BuildInfo{}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.Binary = info.Path
	out.Module = info.Main.Path
	out.Version = info.Main.Version
	out.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Revision = s.Value
		case "vcs.time":
			out.RevisionTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
