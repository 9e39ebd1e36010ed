package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirPrecedence(t *testing.T) {
	t.Setenv("FABGEN_CONFIG_DIR", "/etc/fabgen")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if d, err := Dir(); err != nil || d != "/etc/fabgen" {
		t.Errorf("Dir() = %q, %v", d, err)
	}

	t.Setenv("FABGEN_CONFIG_DIR", "")
	if d, err := Dir(); err != nil || d != filepath.Join("/xdg", "fabgen") {
		t.Errorf("Dir() = %q, %v", d, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("FABGEN_CONFIG_DIR", t.TempDir())
	c := Load()
	if c.PipDelay != DefaultPipDelay {
		t.Errorf("default pip delay = %v, want %v", c.PipDelay, DefaultPipDelay)
	}
	if c.FabricCSV != "" || c.PnrCommand != "" {
		t.Errorf("missing file should give zero defaults, got %+v", c)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FABGEN_CONFIG_DIR", dir)
	content := "fabric: fabric.csv\noutput: out\npnr_command: nextpnr-generic\npip_delay: 2.5\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c := Load()
	if c.FabricCSV != "fabric.csv" || c.OutputDir != "out" ||
		c.PnrCommand != "nextpnr-generic" || c.PipDelay != 2.5 {
		t.Errorf("loaded config = %+v", c)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FABGEN_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("{ fabric: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if c := Load(); c.PipDelay != DefaultPipDelay {
		t.Errorf("broken file should fall back to defaults, got %+v", c)
	}
}
