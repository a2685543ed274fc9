package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/config"
)

func TestMockConsoleRunsSimulatedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Driver.Module = "sim"
	cfg.Driver.IntervalMs = 5
	cfg.Logging.Level = "error"

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := runMockConsole(ctx, cfg, &out); err != nil {
		t.Fatalf("runMockConsole: %v", err)
	}

	text := out.String()
	for _, want := range []string{"[STAT] acquiring", "[SATS]", "[STAT] available", "[POS ]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
