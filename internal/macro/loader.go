// Package macro loads Starlark helper modules that cfg predicates can call.
// Each .star file in the macros directory becomes a module named after the
// file: helpers in board.star are called as board.name(...).
package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Loader scans a directory for .star files and loads them as Starlark modules.
type Loader struct {
	dir string
	// predeclared are the globals macro files run against
	predeclared starlark.StringDict
}

// NewLoader creates a loader for dir. Macro files see predeclared as their
// globals, so helpers can read the build configuration.
func NewLoader(dir string, predeclared starlark.StringDict) *Loader {
	return &Loader{dir: dir, predeclared: predeclared}
}

// LoadedModule represents a loaded macro file.
type LoadedModule struct {
	// Namespace is derived from filename (e.g., "board" from "board.star")
	Namespace string

	// Path is the path to the .star file
	Path string

	// Exports contains all exported values (names not starting with _)
	Exports starlark.StringDict
}

// Load scans the macro directory and loads all .star files in name order.
// A missing directory yields no modules.
func (l *Loader) Load() ([]*LoadedModule, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access macros directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("macros path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan macros directory: %w", err)
	}
	sort.Strings(files)

	modules := make([]*LoadedModule, 0, len(files))
	for _, file := range files {
		module, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func (l *Loader) loadFile(path string) (*LoadedModule, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the macros directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if err := validateNamespace(namespace); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	if _, reserved := l.predeclared[namespace]; reserved {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("namespace %q shadows a predicate global", namespace)}
	}

	thread := &starlark.Thread{
		Name:  "load:" + namespace,
		Print: func(_ *starlark.Thread, _ string) {},
	}

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, path, content, l.predeclared)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	exports := make(starlark.StringDict)
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = value
		}
	}

	return &LoadedModule{Namespace: namespace, Path: path, Exports: exports}, nil
}

// Globals returns predeclared extended with one module value per loaded
// macro file. predeclared is not modified.
func Globals(predeclared starlark.StringDict, modules []*LoadedModule) starlark.StringDict {
	out := make(starlark.StringDict, len(predeclared)+len(modules))
	for k, v := range predeclared {
		out[k] = v
	}
	for _, m := range modules {
		mod := &starlarkstruct.Module{Name: m.Namespace, Members: m.Exports}
		mod.Freeze()
		out[m.Namespace] = mod
	}
	return out
}

// validateNamespace checks that a file name is a valid Starlark identifier.
func validateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("namespace must start with letter or underscore: %s", name)
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("namespace contains invalid character: %s", name)
		}
	}

	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a macro file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macros/%s: %s", filepath.Base(e.File), e.Message)
}
