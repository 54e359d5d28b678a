/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports the version of this module as it is linked into the running binary.
package libinfo

import (
	"regexp"
	"runtime/debug"
	"sync"
)

// ModuleName is the path of this module.
const ModuleName = "github.com/acronis/go-crptclient"

const shortName = "go-crptclient"

const unknownVersion = "v0.0.0"

var libVersion string
var libVersionOnce sync.Once

// GetLibVersion returns the module version or v0.0.0 if it cannot be determined.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			libVersion = extractLibVersion(buildInfo, ModuleName)
		}
		if libVersion == "" {
			libVersion = unknownVersion
		}
	})
	return libVersion
}

// UserAgent returns the default User-Agent of outgoing requests, e.g. "go-crptclient/v1.2.0".
func UserAgent() string {
	return shortName + "/" + GetLibVersion()
}

// extractLibVersion finds the version of modName (or modName/vX) among the dependencies,
// or in the main module when the binary is built from this module itself.
func extractLibVersion(buildInfo *debug.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(buildInfo.Main.Path) && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
