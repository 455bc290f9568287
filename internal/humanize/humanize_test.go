package humanize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0m"},
		{29_999, "0m"},
		{30_000, "1m"},
		{45_000, "1m"},
		{60_000, "1m"},
		{2_700_000, "45m"},
		{3_600_000, "1h"},
		{5_430_000, "1h 31m"},
		{5_400_000, "1h 30m"},
		{3_599_999, "1h"},
		{36_000_000, "10h"},
		{-5, "0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.ms), "Format(%d)", tt.ms)
	}
}

var formatShape = regexp.MustCompile(`^(\d+h \d+m|\d+h|\d+m)$`)

func TestFormat_Shape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(0, 1_000*60*60*24*365).Draw(t, "ms")
		got := Format(ms)

		if !formatShape.MatchString(got) {
			t.Fatalf("Format(%d) = %q has unexpected shape", ms, got)
		}
		if strings.Count(got, "h") > 1 || strings.Count(got, "m") > 1 {
			t.Fatalf("Format(%d) = %q repeats a unit", ms, got)
		}
	})
}

func TestFormat_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, 1_000_000_000).Draw(t, "a")
		b := rapid.Int64Range(a, 1_000_000_001).Draw(t, "b")

		if minutesOf(Format(a)) > minutesOf(Format(b)) {
			t.Fatalf("Format(%d)=%q exceeds Format(%d)=%q", a, Format(a), b, Format(b))
		}
	})
}

func minutesOf(s string) int {
	var h, m int
	for _, part := range strings.Fields(s) {
		n := 0
		for _, r := range part[:len(part)-1] {
			n = n*10 + int(r-'0')
		}
		if strings.HasSuffix(part, "h") {
			h = n
		} else {
			m = n
		}
	}
	return h*60 + m
}
