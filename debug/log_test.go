package debug

import (
	"bytes"
	"reflect"
	"testing"
)

func TestLogf(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	tests := []struct {
		msg  string
		args []any
		want string
	}{
		{"%s=%d\n", []any{"n", 3}, "n=3\n"},
		{"type %s\n", []any{reflect.TypeFor[[]int]()}, "type []int\n"},
		{"%s\n", []any{[]any{1, "a"}}, "[\n   |  1,\n   |  \"a\"\n   |]\n"},
	}
	for _, tc := range tests {
		buf.Reset()
		Logf(tc.msg, tc.args...)
		if got := buf.String(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestEnable(t *testing.T) {
	saved := *d
	defer func() { *d = saved }()
	Enable()
	if !Registry() || !Bind() || !Compile() || !Run() {
		t.Error("expected every flag on")
	}
}
