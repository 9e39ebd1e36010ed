package color

import (
	"strings"
	"testing"
)

func TestMarkersDisabled(t *testing.T) {
	Disable()
	defer Enable()

	if got := OK("loaded"); got != "[OK] loaded" {
		t.Errorf("OK = %q", got)
	}
	if got := Failf("tile %s", "CLB"); got != "[FAIL] tile CLB" {
		t.Errorf("Failf = %q", got)
	}
	if got := Warn("unused"); got != "[WARN] unused" {
		t.Errorf("Warn = %q", got)
	}
	if got := Header("Fabric"); got != "--- Fabric ---" {
		t.Errorf("Header = %q", got)
	}
}

func TestMarkersEnabled(t *testing.T) {
	Enable()
	defer Disable()

	got := OK("loaded")
	if !strings.HasPrefix(got, "\033[32m") || !strings.HasSuffix(got, "\033[0m") {
		t.Errorf("colored OK = %q", got)
	}
}
