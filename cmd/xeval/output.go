package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
)

// formatValue renders a result: scalars inline, composites as yaml.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return color.MagentaString("nil")
	case string:
		return color.GreenString("%q", x)
	case bool:
		return color.YellowString("%t", x)
	case fmt.Stringer:
		return color.CyanString("%s", x.String())
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return color.CyanString("%v", v)
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if d, err := yaml.Marshal(v); err == nil {
			return strings.TrimRight(string(d), "\n")
		}
	}
	return fmt.Sprint(v)
}

func formatError(err error) string {
	return color.RedString("%v", err)
}
