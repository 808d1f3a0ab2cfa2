package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/types"
)

// BumpPolicy selects how the next version is derived from the current one.
type BumpPolicy string

const (
	// BumpAuto increments the prerelease counter of a prerelease version and
	// the patch number of a normal version.
	BumpAuto BumpPolicy = "auto"
	// BumpPatch always moves to the next patch release. A prerelease is
	// promoted to its normal version (1.2.0-rc.1 -> 1.2.0).
	BumpPatch BumpPolicy = "patch"
)

// Validate checks the policy is known. Empty means BumpAuto.
func (x BumpPolicy) Validate() error {
	switch x {
	case "", BumpAuto, BumpPatch:
		return nil
	default:
		return goerr.New("unknown bump policy", goerr.V("policy", string(x)))
	}
}

// Version is an immutable semantic version value.
type Version struct {
	v semver.Version
}

// ParseVersion parses a bare semantic version string (no "v" prefix).
// Surrounding whitespace is ignored.
func ParseVersion(s string) (Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, goerr.Wrap(types.ErrInvalidVersion, "failed to parse version",
			goerr.V("version", s),
			goerr.V("reason", err.Error()))
	}
	return Version{v: *v}, nil
}

// MustParseVersion is ParseVersion for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (x Version) String() string {
	return x.v.String()
}

// Prerelease returns the prerelease component, empty for a normal version.
func (x Version) Prerelease() string {
	return x.v.Prerelease()
}

// IsPrerelease reports whether the version carries a prerelease component.
func (x Version) IsPrerelease() bool {
	return x.v.Prerelease() != ""
}

// Next computes the following version. The receiver is not modified and build
// metadata is never carried over.
func (x Version) Next(policy BumpPolicy) (Version, error) {
	switch policy {
	case BumpPatch:
		return Version{v: x.v.IncPatch()}, nil

	case BumpAuto, "":
		if !x.IsPrerelease() {
			return Version{v: x.v.IncPatch()}, nil
		}

		pre, err := nextPrerelease(x.v.Prerelease())
		if err != nil {
			return Version{}, err
		}
		next, err := x.v.SetPrerelease(pre)
		if err != nil {
			return Version{}, goerr.Wrap(err, "failed to set prerelease", goerr.V("prerelease", pre))
		}
		next, err = next.SetMetadata("")
		if err != nil {
			return Version{}, goerr.Wrap(err, "failed to clear metadata")
		}
		return Version{v: next}, nil

	default:
		return Version{}, goerr.New("unknown bump policy", goerr.V("policy", string(policy)))
	}
}

// nextPrerelease increments the last numeric identifier, or appends ".1" when
// there is none: rc.1 -> rc.2, alpha -> alpha.1, 1.beta -> 2.beta.
func nextPrerelease(pre string) (string, error) {
	ids := strings.Split(pre, ".")
	for i := len(ids) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(ids[i], 10, 64)
		if err != nil {
			continue
		}
		if n == math.MaxUint64 {
			return "", goerr.Wrap(types.ErrInvalidVersion, "prerelease counter overflows",
				goerr.V("prerelease", pre))
		}
		ids[i] = strconv.FormatUint(n+1, 10)
		return strings.Join(ids, "."), nil
	}
	return pre + ".1", nil
}

// TagName derives the canonical tag name of a version.
func TagName(v Version) string {
	return "v" + v.String()
}
