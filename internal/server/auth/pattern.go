package auth

import (
	"fmt"
	"strings"
)

const (
	anySegment  = "*"
	anyTrailing = "**"
)

// pathPattern matches request paths segment by segment. "*" matches exactly
// one segment, a final "**" matches zero or more trailing segments.
type pathPattern struct {
	raw      string
	segments []string
	trailing bool
}

func compilePattern(raw string) (pathPattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pathPattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}
	segs := splitPath(raw)
	p := pathPattern{raw: raw}
	for i, s := range segs {
		switch {
		case s == "":
			return pathPattern{}, fmt.Errorf("pattern %q has an empty segment", raw)
		case s == anyTrailing:
			if i != len(segs)-1 {
				return pathPattern{}, fmt.Errorf("pattern %q: ** is only allowed as the last segment", raw)
			}
			p.trailing = true
		case strings.Contains(s, anySegment) && s != anySegment:
			return pathPattern{}, fmt.Errorf("pattern %q: wildcards must span a whole segment", raw)
		default:
			p.segments = append(p.segments, s)
		}
	}
	return p, nil
}

func (p pathPattern) match(path string) bool {
	segs := splitPath(path)
	if len(segs) < len(p.segments) {
		return false
	}
	if !p.trailing && len(segs) != len(p.segments) {
		return false
	}
	for i, want := range p.segments {
		if want != anySegment && want != segs[i] {
			return false
		}
		if want == anySegment && segs[i] == "" {
			return false
		}
	}
	return true
}

// covers reports whether p matches every path q matches.
func (p pathPattern) covers(q pathPattern) bool {
	if p.trailing {
		if len(q.segments) < len(p.segments) {
			return false
		}
	} else if q.trailing || len(q.segments) != len(p.segments) {
		return false
	}
	for i, want := range p.segments {
		if want != anySegment && want != q.segments[i] {
			return false
		}
	}
	return true
}

// splitPath turns "/a/b/" into ["a", "b"] and "/" into nil.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
