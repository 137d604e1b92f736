package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"ARBOR_BACKEND", "ARBOR_DATA_DIR", "ARBOR_POSTGRES_DSN", "ARBOR_SYNC_STRATEGY", "ARBOR_LOG_LEVEL", "ARBOR_CONFIG_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	root := t.TempDir()
	return &testEnv{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes arbor with args against the test directories and returns
// stdout.
func (e *testEnv) run(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(args...)
	require.NoError(t, err, "arbor %s", strings.Join(args, " "))
	return out
}

// column returns field i of every tab-separated output line.
func column(out string, i int) []string {
	var vals []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		vals = append(vals, strings.Split(line, "\t")[i])
	}
	return vals
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "arbor v")
	assert.Contains(t, out, "github.com/mesh-intelligence/arbor")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "init")
	assert.Contains(t, out, "arbor initialized")

	data, err := os.ReadFile(filepath.Join(env.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.FileExists(t, filepath.Join(env.dataDir, "nodes.jsonl"))

	env.mustRun(t, "init")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("backend: mysql\n"), 0o644))

	_, err := env.run("roots")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestInvalidLogLevel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("--log-level", "loud", "roots")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestHierarchyCommands(t *testing.T) {
	env := newTestEnv(t)
	root := strings.TrimSpace(env.mustRun(t, "add", "root"))
	child := strings.TrimSpace(env.mustRun(t, "add", "child", "--parent", root))
	leaf := strings.TrimSpace(env.mustRun(t, "add", "leaf", "--parent", child))

	t.Run("ancestors", func(t *testing.T) {
		assert.Equal(t, []string{root, child}, column(env.mustRun(t, "ancestors", leaf), 0))
		assert.Equal(t, []string{root, child, leaf}, column(env.mustRun(t, "self-and-ancestors", leaf), 0))
		assert.Empty(t, column(env.mustRun(t, "ancestors", root), 0))
	})

	t.Run("descendants", func(t *testing.T) {
		assert.Equal(t, []string{child, leaf}, column(env.mustRun(t, "descendants", root), 0))
		assert.Equal(t, []string{child, leaf}, column(env.mustRun(t, "self-and-descendants", child), 0))
	})

	t.Run("roots and list", func(t *testing.T) {
		assert.Equal(t, []string{root}, column(env.mustRun(t, "roots"), 0))
		assert.Equal(t, []string{root}, column(env.mustRun(t, "list", "--parent", ""), 0))
		assert.Equal(t, []string{leaf}, column(env.mustRun(t, "list", "--parent", child), 0))
		assert.Equal(t, []string{"child"}, column(env.mustRun(t, "list", "--name", "child"), 1))
		assert.Len(t, column(env.mustRun(t, "list"), 0), 3)
	})

	t.Run("tree", func(t *testing.T) {
		out := env.mustRun(t, "tree", root)
		want := "root\t" + root + "\n  child\t" + child + "\n    leaf\t" + leaf + "\n"
		assert.Equal(t, want, out)
	})

	t.Run("contains", func(t *testing.T) {
		assert.Equal(t, "true\n", env.mustRun(t, "contains", "ancestors-contains", leaf, root))
		assert.Equal(t, "false\n", env.mustRun(t, "contains", "descendantsContains", leaf, root))
		assert.Equal(t, "true\n", env.mustRun(t, "contains", "self_and_descendents_include?", root, root))

		_, err := env.run("contains", "siblings_contains", leaf, root)
		assert.ErrorIs(t, err, tree.ErrUnsupportedOperation)
		assert.Equal(t, exitUserError, exitCode(err))
	})

	t.Run("get", func(t *testing.T) {
		out := env.mustRun(t, "get", child)
		assert.Contains(t, out, "name\tchild\n")
		assert.Contains(t, out, "parent\t"+root+"\n")

		_, err := env.run("get", "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, exitUserError, exitCode(err))
	})

	t.Run("json", func(t *testing.T) {
		out := env.mustRun(t, "--json", "self-and-ancestors", leaf)
		var got []types.Node
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 3)
		assert.Equal(t, "root", got[0].Name)
		assert.Equal(t, "leaf", got[2].Name)

		out = env.mustRun(t, "--json", "contains", "ancestors_contains", leaf, child)
		var res map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, true, res["result"])
	})

	t.Run("move refuses cycles", func(t *testing.T) {
		_, err := env.run("move", root, "--parent", leaf)
		assert.ErrorIs(t, err, errCycle)
		assert.Equal(t, exitUserError, exitCode(err))

		_, err = env.run("move", root, "--parent", root)
		assert.ErrorIs(t, err, errCycle)
	})

	t.Run("move and delete", func(t *testing.T) {
		env.mustRun(t, "move", leaf)
		assert.ElementsMatch(t, []string{root, leaf}, column(env.mustRun(t, "roots"), 0))

		env.mustRun(t, "move", leaf, "--parent", root)
		assert.ElementsMatch(t, []string{child, leaf}, column(env.mustRun(t, "descendants", root), 0))

		env.mustRun(t, "delete", child)
		assert.Equal(t, []string{leaf}, column(env.mustRun(t, "descendants", root), 0))

		_, err := env.run("delete", child)
		assert.Equal(t, exitUserError, exitCode(err))
	})
}

func TestAddRejectsMissingParent(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("add", "orphan", "--parent", "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(errors.New("accepts 1 arg(s), received 0")))
	assert.Equal(t, exitSysError, exitCode(sysError(errors.New("disk full"))))
	assert.Equal(t, exitSysError, exitCode(&tree.StorageError{Op: "query ids", Err: errors.New("closed")}))
	assert.Equal(t, exitUserError, exitCode(tableErr("get", types.ErrNotFound)))
	assert.Equal(t, exitSysError, exitCode(tableErr("get", errors.New("database is locked"))))
}

func TestDepths(t *testing.T) {
	members := []*types.Node{
		{NodeID: "r", ParentID: "x"},
		{NodeID: "a", ParentID: "r"},
		{NodeID: "a1", ParentID: "a"},
		{NodeID: "b", ParentID: "r"},
	}
	var got []int
	for _, d := range depths(members) {
		got = append(got, d.depth)
	}
	assert.Equal(t, []int{0, 1, 2, 1}, got)
}
