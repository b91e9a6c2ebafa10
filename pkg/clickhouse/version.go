package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// VersionInfo represents parsed ClickHouse version information
type VersionInfo struct {
	Major int    // Major version number (e.g., 24)
	Minor int    // Minor version number (e.g., 8)
	Patch int    // Patch version number (e.g., 3)
	Raw   string // Raw version string from ClickHouse
}

// String returns the version as "major.minor.patch".
func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsAtLeast checks if this version is at least major.minor.
func (v VersionInfo) IsAtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// GetVersion retrieves and parses the version of the connected server.
func (c *Client) GetVersion(ctx context.Context) (*VersionInfo, error) {
	rows, err := c.conn.Query(ctx, "SELECT version()")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query ClickHouse version")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to query ClickHouse version")
		}
		return nil, errors.New("failed to query ClickHouse version: no rows")
	}

	var raw string
	if err := rows.Scan(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to scan ClickHouse version")
	}

	version, err := parseVersion(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ClickHouse version: %s", raw)
	}

	return version, nil
}

// parseVersion accepts "24.8.3.59", "24.8.3.59-stable" and "24.8.3.59 (official build)".
func parseVersion(raw string) (*VersionInfo, error) {
	cleaned := strings.TrimSpace(raw)
	if i := strings.IndexAny(cleaned, " -"); i != -1 {
		cleaned = cleaned[:i]
	}

	m := versionPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, errors.Errorf("invalid version format: %s", raw)
	}

	// The pattern guarantees digits, so Atoi cannot fail.
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}

	return &VersionInfo{Major: major, Minor: minor, Patch: patch, Raw: raw}, nil
}
