// Package manifest reads the parts of a package.json the installer acts on:
// identity, lifecycle scripts, declared executables and dependency lists.
//
// Documents are read with gjson so object members keep their document order,
// which is the order dependencies are installed in.
package manifest

import (
	"os"
	"path"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/nodestore/pkg/errors"
)

// FileName is the manifest file inside every package directory.
const FileName = "package.json"

// Dependency is one entry of a dependency list: a package name and the
// version range or locator it was declared with.
type Dependency struct {
	Name string
	Spec string
}

// Manifest is a parsed package.json.
type Manifest struct {
	Name    string
	Version string

	// Scripts maps lifecycle event names to shell commands.
	Scripts map[string]string

	// Bin maps executable names to package-relative files. A string "bin"
	// field is expanded to a single entry named after the unscoped package.
	Bin map[string]string

	Dependencies         []Dependency
	DevDependencies      []Dependency
	OptionalDependencies []Dependency
}

// Script returns the command for a lifecycle event, if declared.
func (m *Manifest) Script(event string) (string, bool) {
	s, ok := m.Scripts[event]
	return s, ok && s != ""
}

// Read parses dir/package.json. A missing file is reported with an error
// that satisfies errors.Is(err, fs.ErrNotExist).
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", filepath.Join(dir, FileName))
	}
	return m, nil
}

// Parse parses package.json contents.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest is not a JSON object")
	}

	m := &Manifest{
		Name:    doc.Get("name").String(),
		Version: doc.Get("version").String(),
		Scripts: stringMap(doc.Get("scripts")),
	}

	bin := doc.Get("bin")
	switch {
	case bin.Type == gjson.String && bin.String() != "":
		if m.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "string \"bin\" requires a package name")
		}
		m.Bin = map[string]string{path.Base(m.Name): bin.String()}
	case bin.IsObject():
		m.Bin = stringMap(bin)
	}

	m.Dependencies = Dependencies(doc.Get("dependencies"))
	m.DevDependencies = Dependencies(doc.Get("devDependencies"))
	m.OptionalDependencies = Dependencies(doc.Get("optionalDependencies"))
	return m, nil
}

// Dependencies lists the string members of a JSON object in document order.
func Dependencies(obj gjson.Result) []Dependency {
	if !obj.IsObject() {
		return nil
	}
	var deps []Dependency
	obj.ForEach(func(key, value gjson.Result) bool {
		deps = append(deps, Dependency{Name: key.String(), Spec: value.String()})
		return true
	})
	return deps
}

func stringMap(obj gjson.Result) map[string]string {
	if !obj.IsObject() {
		return nil
	}
	m := make(map[string]string)
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			m[key.String()] = value.String()
		}
		return true
	})
	return m
}
