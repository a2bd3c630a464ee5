package testkit

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// cobra writes annotation maps while rendering help, so parallel tests share
// one execution at a time.
var executeMu sync.Mutex

func ExecuteCommandForTest(command *cobra.Command, stdin string, args ...string) (string, error) {
	stdout, _, err := ExecuteCommandForTestWithStreams(command, stdin, args...)
	return stdout, err
}

func ExecuteCommandForTestWithStreams(command *cobra.Command, stdin string, args ...string) (string, string, error) {
	executeMu.Lock()
	defer executeMu.Unlock()

	var stdout, stderr bytes.Buffer
	command.SetOut(&stdout)
	command.SetErr(&stderr)
	command.SetIn(strings.NewReader(stdin))
	command.SetArgs(args)

	err := command.Execute()
	return stdout.String(), stderr.String(), err
}

// CommandPaths lists every registered subcommand path below command, space
// separated and sorted. Help and hidden completion commands are skipped.
func CommandPaths(command *cobra.Command) []string {
	var paths []string
	var walk func(*cobra.Command, []string)
	walk = func(parent *cobra.Command, prefix []string) {
		for _, child := range parent.Commands() {
			name := child.Name()
			if name == "help" || strings.HasPrefix(name, "__") {
				continue
			}
			current := append(append([]string{}, prefix...), name)
			paths = append(paths, strings.Join(current, " "))
			walk(child, current)
		}
	}
	walk(command, nil)
	sort.Strings(paths)
	return paths
}

// WritePlan writes a sync plan into a fresh temp dir and returns its path.
func WritePlan(t testing.TB, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}
	return path
}
