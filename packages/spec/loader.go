package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/restflow/restflow/packages/scope"
)

// Load reads one suite document from a YAML file. Templates in request
// fields are parsed during decoding; body trees are compiled afterwards
// so every string leaf becomes a template.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	suite, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	suite.Path = path
	return suite, nil
}

// LoadBytes decodes a suite document from memory.
func LoadBytes(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}

	for _, c := range suite.Cases {
		if c.Request.Body != nil {
			compiled, err := scope.Compile(c.Request.Body)
			if err != nil {
				return nil, fmt.Errorf("case %q: %w", c.Name, err)
			}
			c.Request.Body = compiled
		}
		for _, rule := range c.Validate {
			compiled, err := compileExpected(rule.Expected)
			if err != nil {
				return nil, fmt.Errorf("case %q: %w", c.Name, err)
			}
			rule.Expected = compiled
		}
	}
	return &suite, nil
}

// compileExpected turns token-bearing strings inside an expected value
// into templates so assertions can reference variables (including values
// extracted earlier in the same case). Plain values stay as-is so the
// definition checks can still inspect them.
func compileExpected(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "${") {
			return val, nil
		}
		return scope.Parse(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			compiled, err := compileExpected(item)
			if err != nil {
				return nil, err
			}
			out[k] = compiled
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			compiled, err := compileExpected(item)
			if err != nil {
				return nil, err
			}
			out[i] = compiled
		}
		return out, nil
	default:
		return v, nil
	}
}

// Discover finds suite files under a path. A file path returns itself; a
// directory is walked for .yaml/.yml files, sorted for a stable order.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no suite files found in %s", path)
	}
	return files, nil
}

// LoadAll loads every suite reachable from path in a stable order.
func LoadAll(path string) ([]*Suite, error) {
	files, err := Discover(path)
	if err != nil {
		return nil, err
	}
	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		suite, err := Load(f)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	return suites, nil
}
