package graph

import "strings"

// Identity is a (name, version) pair. It uniquely keys one store entry.
type Identity struct {
	Name    string
	Version string
}

// NameVersion returns "name@version", the deduplication key used throughout
// an install run.
func (id Identity) NameVersion() string {
	return id.Name + "@" + id.Version
}

// String implements fmt.Stringer.
func (id Identity) String() string { return id.NameVersion() }

// Scoped reports whether the name is a scoped name ("@scope/name").
func (id Identity) Scoped() bool {
	return strings.HasPrefix(id.Name, "@") && strings.Count(id.Name, "/") == 1
}

// ParseNameVersion splits "name@version" on its last "@". The leading "@" of
// a scoped name is never taken as the separator.
func ParseNameVersion(s string) (Identity, bool) {
	i := strings.LastIndex(s, "@")
	if i <= 0 {
		return Identity{Name: s}, false
	}
	return Identity{Name: s[:i], Version: s[i+1:]}, true
}
