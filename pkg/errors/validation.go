package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLen is the registry's limit on package name length.
const maxNameLen = 214

// unsafeSeqs never appear in a name that stays inside node_modules.
var unsafeSeqs = []string{"..", "//", "\\", "\x00"}

// ValidatePackageName rejects names that cannot safely become a directory
// below node_modules: empty or overlong names, control characters and path
// traversal sequences.
func ValidatePackageName(name string) error {
	switch {
	case name == "":
		return New(ErrCodeInvalidManifest, "empty package name")
	case len(name) > maxNameLen:
		return New(ErrCodeInvalidManifest, "package name longer than %d bytes: %q", maxNameLen, name)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return New(ErrCodeInvalidManifest, "package name %q contains control characters", name)
	}
	for _, seq := range unsafeSeqs {
		if strings.Contains(name, seq) {
			return New(ErrCodeInvalidManifest, "package name %q contains %q", name, seq)
		}
	}
	return nil
}

// npmName accepts "name" and "@scope/name". Mixed case is allowed for legacy
// registry packages.
var npmName = regexp.MustCompile(`^(@[A-Za-z0-9~-][A-Za-z0-9._~-]*/)?[A-Za-z0-9~-][A-Za-z0-9._~-]*$`)

// ValidateNpmPackageName applies ValidatePackageName and then the npm naming
// grammar.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !npmName.MatchString(name) {
		return New(ErrCodeInvalidManifest, "%q is not a valid npm package name", name)
	}
	return nil
}

// ValidateBinName checks a "bin" entry, which becomes a file name directly
// under node_modules/.bin.
func ValidateBinName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return New(ErrCodeInvalidManifest, "invalid bin name %q", name)
	}
	return nil
}
