package kernelrelease

import (
	"regexp"
	"strconv"

	"github.com/blang/semver"
)

var (
	kernelVersionPattern = regexp.MustCompile(`(?P<fullversion>^(?P<version>0|[1-9]\d*)\.(?P<patchlevel>0|[1-9]\d*)\.(?P<sublevel>0|[1-9]\d*))(?P<fullextraversion>[-.](?P<extraversion>0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(\.(0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-_]*))*)?(\+[0-9a-zA-Z-]+(\.[0-9a-zA-Z-]+)*)?$`)
)

type Architecture string

const (
	ArchitectureAmd64 Architecture = "amd64"
	ArchitectureArm64 Architecture = "arm64"
)

// SupportedArchs maps the uname machine names to their Go architecture names.
var SupportedArchs = map[string]Architecture{
	"x86_64":  ArchitectureAmd64,
	"aarch64": ArchitectureArm64,
}

func (a Architecture) String() string {
	return string(a)
}

// KernelRelease contains all the parts of a kernel release string.
// NOTE: the architecture cannot be fetched from the release string itself
// because it is not always encoded there; callers fill it from uname.
type KernelRelease struct {
	Fullversion      string       `json:"full_version"`
	Version          int          `json:"version"`
	PatchLevel       int          `json:"patch_level"`
	Sublevel         int          `json:"sublevel"`
	Extraversion     string       `json:"extra_version"`
	FullExtraversion string       `json:"full_extra_version"`
	Architecture     Architecture `json:"architecture"`
}

// String reassembles the original release string.
func (kr KernelRelease) String() string {
	return kr.Fullversion + kr.FullExtraversion
}

// ToSemver maps the numeric release parts to a semver version.
func (kr KernelRelease) ToSemver() semver.Version {
	return semver.Version{
		Major: uint64(kr.Version),
		Minor: uint64(kr.PatchLevel),
		Patch: uint64(kr.Sublevel),
	}
}

// Compare orders two kernel releases by their numeric parts only; the
// extraversion is not considered.
func (kr KernelRelease) Compare(other KernelRelease) int {
	a := kr.ToSemver()
	b := other.ToSemver()
	return a.Compare(b)
}

// FromString extracts a KernelRelease object from string.
func FromString(kernelReleaseStr string) KernelRelease {
	kr := KernelRelease{}
	match := kernelVersionPattern.FindStringSubmatch(kernelReleaseStr)
	for i, name := range kernelVersionPattern.SubexpNames() {
		if i > 0 && i <= len(match) {
			switch name {
			case "fullversion":
				kr.Fullversion = match[i]
			case "version":
				kr.Version, _ = strconv.Atoi(match[i])
			case "patchlevel":
				kr.PatchLevel, _ = strconv.Atoi(match[i])
			case "sublevel":
				kr.Sublevel, _ = strconv.Atoi(match[i])
			case "extraversion":
				kr.Extraversion = match[i]
			case "fullextraversion":
				kr.FullExtraversion = match[i]
			}
		}
	}
	return kr
}
