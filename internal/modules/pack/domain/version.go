package domain

import (
	"strconv"
	"strings"
)

// ParseVersion splits a dotted version into integer components. Any
// component that is not a plain integer makes the whole version parse as
// [0]. Trailing zero components are dropped so "1.0.0" and "1.0" compare
// equal.
func ParseVersion(v string) []int {
	parts := strings.Split(strings.TrimSpace(v), ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return []int{0}
		}
		out = append(out, n)
	}
	for len(out) > 1 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out
}

// CompareVersions returns -1, 0 or 1 as a is lower than, equal to or
// greater than b.
func CompareVersions(a, b string) int {
	av, bv := ParseVersion(a), ParseVersion(b)
	for i := 0; i < len(av) || i < len(bv); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
