// Package pnr locates and runs the external place-and-route tool that
// consumes the exported routing model.
package pnr

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/util"
)

// DefaultNames are the binaries probed on PATH when no command is
// configured.
var DefaultNames = []string{"nextpnr-generic", "nextpnr"}

// Tool is a resolved place-and-route executable.
type Tool struct {
	Path string // absolute path to the binary
	Name string
}

// Find resolves the place-and-route tool. If command is given it is
// looked up directly, otherwise the default names are probed in order.
func Find(command string) (*Tool, error) {
	if command != "" {
		return lookup(command)
	}
	for _, name := range DefaultNames {
		if t, err := lookup(name); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no place-and-route tool found on PATH; install nextpnr or configure the pnr command")
}

func lookup(command string) (*Tool, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("place-and-route tool %q not found: %w", command, err)
	}
	return &Tool{Path: path, Name: filepath.Base(command)}, nil
}

// Run executes the tool with the given arguments in workDir, streaming
// its output through. extraEnv entries are appended to the current
// environment in key order.
func (t *Tool) Run(args []string, workDir string, extraEnv map[string]string) error {
	cmd := exec.Command(t.Path, args...)
	cmd.Dir = workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	env := os.Environ()
	for _, k := range util.OrderedKeys(extraEnv) {
		env = append(env, k+"="+extraEnv[k])
	}
	cmd.Env = env

	log.Infof("running %s in %s", strings.Join(cmd.Args, " "), workDir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", t.Name, err)
	}
	return nil
}
