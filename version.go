package sprintpatch

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is a four part file version: major.minor.build.revision.
type Version struct {
	Major, Minor, Build, Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ParseVersion parses "1.7.23.0". Missing trailing parts are zero.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 || parts[0] == "" {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var nums [4]uint16
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = uint16(n)
	}
	return Version{nums[0], nums[1], nums[2], nums[3]}, nil
}

// VersionFromFixed splits the two DWORDs of a VS_FIXEDFILEINFO file version.
func VersionFromFixed(ms, ls uint32) Version {
	return Version{
		Major:    uint16(ms >> 16),
		Minor:    uint16(ms),
		Build:    uint16(ls >> 16),
		Revision: uint16(ls),
	}
}

// CheckVersion returns ErrUnsupportedVersion unless actual is exactly want.
func CheckVersion(actual, want Version) error {
	if actual != want {
		return fmt.Errorf("%w: found %v, need %v", ErrUnsupportedVersion, actual, want)
	}
	return nil
}

func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseVersion(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

func (v Version) MarshalYAML() (any, error) {
	return v.String(), nil
}
