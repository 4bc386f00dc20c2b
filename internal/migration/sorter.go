package migration

import (
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// CompareVersions orders two version strings numerically segment by segment,
// so "2" sorts before "10" and "1.1" before "1.10". Missing trailing
// segments count as zero ("1" equals "1.0"). Versions too large for int64
// keep the same numeric order; only non-numeric segments compare
// lexicographically.
func CompareVersions(a, b string) int {
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)

	if errA != nil || errB != nil {
		return compareSegments(a, b)
	}

	return va.Compare(vb)
}

// compareSegments compares dot-separated segments as arbitrary-size
// integers.
func compareSegments(a, b string) int {
	sa, sb := strings.Split(a, "."), strings.Split(b, ".")

	for i := range max(len(sa), len(sb)) {
		if c := compareSegment(segmentAt(sa, i), segmentAt(sb, i)); c != 0 {
			return c
		}
	}

	return 0
}

func segmentAt(segs []string, i int) string {
	if i < len(segs) {
		return segs[i]
	}

	return "0"
}

func compareSegment(a, b string) int {
	if !isDigits(a) || !isDigits(b) {
		return strings.Compare(a, b)
	}

	a, b = trimZeros(a), trimZeros(b)

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}

		return 1
	}

	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func trimZeros(s string) string {
	if t := strings.TrimLeft(s, "0"); t != "" {
		return t
	}

	return "0"
}

// Sort returns a new slice of migrations sorted by Version in natural order.
// The sort is stable to preserve insertion order for equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareVersions(sorted[i].Version, sorted[j].Version) < 0
	})

	return sorted
}
