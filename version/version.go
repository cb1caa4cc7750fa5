package version // import "github.com/johnyfernandes/shlf-sync/version"

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the semver of the current build.
const Version = "0.2.1"

// DevVersion is the dev version of current build.
const DevVersion = "0.0.0"

func GetCurrentVersion() string {
	return Version
}

// GetMinorVersion returns the minor version of the given version, e.g. "0.2.1" -> "0.2".
func GetMinorVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return DevVersion
	}
	return strings.Join(parts[:2], ".")
}

// GetSchemaVersion returns the version used for schema migrations. Patch
// releases never change the schema, so the patch component is normalized to 0.
func GetSchemaVersion(version string) string {
	return GetMinorVersion(version) + ".0"
}

func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) >= 0
}

func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > 0
}

// SortVersion sorts a version list in ascending semver order, in place.
func SortVersion(versionList []string) []string {
	sort.Slice(versionList, func(i, j int) bool {
		return semver.Compare("v"+versionList[i], "v"+versionList[j]) < 0
	})
	return versionList
}
