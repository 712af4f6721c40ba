package tile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/slok/tilegrab/internal/model"
)

// ParseZoomSet parses a zoom selection string into a sorted, deduplicated
// set of zoom levels. Accepted forms: "12", "10,12,14", "10-14" and
// combinations like "0-3,8".
func ParseZoomSet(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("zoom set is empty: %w", model.ErrNotValid)
	}

	seen := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty zoom entry in %q: %w", s, model.ErrNotValid)
		}

		from, to, isRange := strings.Cut(part, "-")
		lo, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("invalid zoom %q: %w", part, model.ErrNotValid)
		}
		hi := lo
		if isRange {
			hi, err = strconv.Atoi(strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("invalid zoom range %q: %w", part, model.ErrNotValid)
			}
		}

		if lo < 0 || hi < lo {
			return nil, fmt.Errorf("invalid zoom range %q: %w", part, model.ErrNotValid)
		}
		for z := lo; z <= hi; z++ {
			seen[z] = true
		}
	}

	zooms := make([]int, 0, len(seen))
	for z := range seen {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)

	return zooms, nil
}

// FormatZoomSet renders a zoom set as a comma-separated list, e.g. "10,11,12".
func FormatZoomSet(zooms []int) string {
	sorted := make([]int, len(zooms))
	copy(sorted, zooms)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, z := range sorted {
		parts[i] = strconv.Itoa(z)
	}
	return strings.Join(parts, ",")
}
