package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"
)

// setVar sets a parameter from a name=val argument, val in yaml.
func setVar(vars map[string]any, a string) error {
	name, val, ok := strings.Cut(a, "=")
	if !ok || name == "" {
		return fmt.Errorf("%w: argument %q expected name=val", cli.ErrUsage, a)
	}
	var v any
	if err := yaml.Unmarshal([]byte(val), &v); err != nil {
		return fmt.Errorf("error decoding %s: %w", name, err)
	}
	vars[name] = normalize(v)
	return nil
}

// loadVars adds the top level entries of a yaml or json file to vars.
// Parameters already set are kept.
func loadVars(vars map[string]any, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", file, err)
	}
	m, err := decodeVars(filepath.Ext(file), data)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", file, err)
	}
	for k, v := range m {
		if _, ok := vars[k]; ok {
			continue
		}
		vars[k] = v
	}
	return nil
}

func decodeVars(ext string, data []byte) (map[string]any, error) {
	var m map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown file type %q, want .yaml or .json", cli.ErrUsage, ext)
	}
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m, nil
}

// normalize maps decoded numbers onto int and float64, recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int64:
		if x >= math.MinInt && x <= math.MaxInt {
			return int(x)
		}
	case uint64:
		if x <= math.MaxInt {
			return int(x)
		}
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
	}
	return v
}
