package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "lodash", false},
		{"scoped", "@types/node", false},
		{"empty", "", true},
		{"traversal", "../etc", true},
		{"double slash", "a//b", true},
		{"backslash", `a\b`, true},
		{"control char", "a\nb", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", maxNameLen+1), true},
		{"at limit", strings.Repeat("a", maxNameLen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidManifest) {
				t.Errorf("error code = %v, want %v", CodeOf(err), ErrCodeInvalidManifest)
			}
		})
	}
}

func TestValidateNpmPackageName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"express", false},
		{"@sveltejs/kit", false},
		{"JSONStream", false},
		{"lodash.merge", false},
		{"@scope/", true},
		{"has space", true},
		{"@a/b/c", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNpmPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNpmPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBinName(t *testing.T) {
	valid := []string{"tsc", "eslint", "node-gyp"}
	for _, name := range valid {
		if err := ValidateBinName(name); err != nil {
			t.Errorf("ValidateBinName(%q) = %v", name, err)
		}
	}
	invalid := []string{"", ".", "..", "a/b", `a\b`}
	for _, name := range invalid {
		if err := ValidateBinName(name); err == nil {
			t.Errorf("ValidateBinName(%q) = nil, want error", name)
		}
	}
}
