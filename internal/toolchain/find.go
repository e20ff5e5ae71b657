package toolchain

import (
	"os"
	"os/exec"
)

var (
	commonCompilers = []string{"erlc"}
	commonRuntimes  = []string{"erl", "erl.exe"}
)

// FindCompiler returns $ERLC, or the first Erlang compiler found on PATH, or "erlc"
func FindCompiler() string {
	return findTool("ERLC", commonCompilers)
}

// FindRuntime returns $ERL, or the first Erlang runtime found on PATH, or "erl"
func FindRuntime() string {
	return findTool("ERL", commonRuntimes)
}

func findTool(envVar string, candidates []string) string {
	if tool := os.Getenv(envVar); tool != "" {
		return tool
	}

	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err == nil {
			return path
		}
	}

	// let the failed invocation report the missing binary
	return candidates[0]
}
