// Package keypath handles dot-delimited addresses into the data store,
// such as "list.2.name".
package keypath

import (
	"regexp"
	"strconv"
	"strings"
)

var bracketIndex = regexp.MustCompile(`\[\s*([0-9]+)\s*\]`)

// Normalise converts a reference to its canonical dot form: "a[0].b" and
// "a.0.b" are the same keypath.
func Normalise(ref string) string {
	ref = strings.TrimSpace(ref)
	return bracketIndex.ReplaceAllString(ref, ".$1")
}

// Split returns the segments of kp. The root keypath has no segments.
func Split(kp string) []string {
	if kp == "" {
		return nil
	}
	return strings.Split(kp, ".")
}

// Join joins segments, skipping empty ones.
func Join(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// Parent returns kp without its last segment.
func Parent(kp string) string {
	i := strings.LastIndexByte(kp, '.')
	if i < 0 {
		return ""
	}
	return kp[:i]
}

// Base returns the last segment of kp.
func Base(kp string) string {
	return kp[strings.LastIndexByte(kp, '.')+1:]
}

// Head returns the first segment of kp.
func Head(kp string) string {
	if i := strings.IndexByte(kp, '.'); i >= 0 {
		return kp[:i]
	}
	return kp
}

// Depth is the number of segments in kp.
func Depth(kp string) int {
	if kp == "" {
		return 0
	}
	return strings.Count(kp, ".") + 1
}

// IsDescendant reports whether kp lies strictly below ancestor.
func IsDescendant(kp, ancestor string) bool {
	if ancestor == "" {
		return kp != ""
	}
	return len(kp) > len(ancestor) && kp[len(ancestor)] == '.' && strings.HasPrefix(kp, ancestor)
}

// Rebase moves kp from under oldPrefix to under newPrefix. The second
// result is false when kp is not oldPrefix or one of its descendants.
func Rebase(kp, oldPrefix, newPrefix string) (string, bool) {
	if kp == oldPrefix {
		return newPrefix, true
	}
	if !IsDescendant(kp, oldPrefix) {
		return kp, false
	}
	if oldPrefix == "" {
		return Join(newPrefix, kp), true
	}
	return Join(newPrefix, kp[len(oldPrefix)+1:]), true
}

// Index parses seg as an array index.
func Index(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Child returns the keypath of index i below kp.
func Child(kp string, i int) string {
	return Join(kp, strconv.Itoa(i))
}

// IndexBelow returns the array index directly below prefix in kp, if kp is
// a descendant of prefix and that segment is numeric.
func IndexBelow(kp, prefix string) (int, bool) {
	if !IsDescendant(kp, prefix) {
		return 0, false
	}
	rest := kp
	if prefix != "" {
		rest = kp[len(prefix)+1:]
	}
	return Index(Head(rest))
}
