package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/seenimoa/indexdash/internal/config"
)

func TestOptionalSources(t *testing.T) {
	tests := []struct {
		name       string
		liveQuote  bool
		headlines  bool
		wantQuotes bool
		wantNews   bool
	}{
		{"both enabled", true, true, true, true},
		{"quote only", true, false, true, false},
		{"none", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			c.Dashboard.LiveQuote = tt.liveQuote
			c.Dashboard.Headlines = tt.headlines

			quotes, news := optionalSources(c, newAggregator(c))
			if (quotes != nil) != tt.wantQuotes {
				t.Errorf("quotes = %v, want enabled %v", quotes, tt.wantQuotes)
			}
			if (news != nil) != tt.wantNews {
				t.Errorf("news = %v, want enabled %v", news, tt.wantNews)
			}
		})
	}
}

func TestConfigCommand(t *testing.T) {
	cfg = config.Default()
	var buf bytes.Buffer
	configCmd.SetOut(&buf)

	if err := configCmd.RunE(configCmd, nil); err != nil {
		t.Fatalf("config: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# no config file found", "default_index: sp500", "strict_line_items: false", "port: 8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
