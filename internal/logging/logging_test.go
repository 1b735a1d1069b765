package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelFromName(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"WARNING": zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"OFF":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for name, want := range cases {
		if got := levelFromName(name); got != want {
			t.Errorf("levelFromName(%q) = %v, want %v", name, got, want)
		}
	}
}
