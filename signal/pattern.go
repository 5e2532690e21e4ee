package signal

import "strings"

// Sep delimits the segments of a signal name.
const Sep = ":"

// Wildcard matches any single segment, or every signal when it is the whole
// pattern.
const Wildcard = "*"

// Match reports whether a concrete signal name matches a subscription
// pattern. A pattern equal to Wildcard matches everything. Otherwise the
// pattern and the name must have the same number of segments, and each
// pattern segment either equals the corresponding name segment or is the
// Wildcard. Partial-segment wildcards ("boo*") are not supported; such a
// segment only matches itself literally.
func Match(pattern, name string) bool {
	if pattern == name || pattern == Wildcard {
		return true
	}
	if !strings.Contains(pattern, Wildcard) {
		return false
	}

	psegs := strings.Split(pattern, Sep)
	nsegs := strings.Split(name, Sep)
	if len(psegs) != len(nsegs) {
		return false
	}
	for i, seg := range psegs {
		if seg != Wildcard && seg != nsegs[i] {
			return false
		}
	}
	return true
}
