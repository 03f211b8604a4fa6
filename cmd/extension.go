package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Environment passed to extensions.
const (
	EnvConfigPath = "XMF_CONFIG_PATH"
	EnvCacheType  = "XMF_CACHE"
	EnvRefresh    = "XMF_REFRESH"
	EnvVerbose    = "XMF_VERBOSE"
)

// IsCommand reports whether name is a built-in subcommand.
func IsCommand(name string) bool {
	for _, c := range Commands {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// RunExtension attempts to find and execute an external xmf-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
//
// Global flags are passed to the extension as XMF_* environment variables.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "xmf-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		slog.Debug("external command not found", "name", name, "err", err)
		return false, 0
	}

	config, err := configFile()
	if err != nil {
		slog.Debug("no configuration for the external command", "name", name, "err", err)
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		EnvConfigPath+"="+config,
		EnvCacheType+"="+*cacheBackend,
		EnvRefresh+"="+strconv.FormatBool(*refresh),
		EnvVerbose+"="+strconv.FormatBool(*Verbose),
	)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
