package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Registry bool
	Bind     bool
	Compile  bool
	Run      bool
}

var d *debug

func init() {
	d = &debug{}
	d.Registry = boolEnv("XEVAL_DEBUG_REGISTRY")
	d.Bind = boolEnv("XEVAL_DEBUG_BIND")
	d.Compile = boolEnv("XEVAL_DEBUG_COMPILE")
	d.Run = boolEnv("XEVAL_DEBUG_RUN")
	if boolEnv("XEVAL_DEBUG") {
		d.Registry, d.Bind, d.Compile, d.Run = true, true, true, true
	}
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Registry reports whether type descriptor construction and merges are logged.
func Registry() bool {
	return d.Registry
}

// Bind reports whether overload and conversion resolution is logged.
func Bind() bool {
	return d.Bind
}
func Compile() bool {
	return d.Compile
}
func Run() bool {
	return d.Run
}

// Enable turns on every debug flag. The cli uses it for -debug.
func Enable() {
	d.Registry, d.Bind, d.Compile, d.Run = true, true, true, true
}
