package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/internal/cli"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "orapgsync v")
}

func TestUnknownCommandFails(t *testing.T) {
	_, err := runRoot(t, "frobnicate")
	assert.Error(t, err)
}

func TestTransformCommandWritesOutput(t *testing.T) {
	t.Chdir(t.TempDir())

	src := "SELECT NVL(ename, 'x') FROM emp"
	require.NoError(t, os.WriteFile("query.ora", []byte(src), 0o644))

	out, err := runRoot(t, "transform", "query.ora")
	require.NoError(t, err, out)

	generated, err := os.ReadFile(filepath.Join("out", "query.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT COALESCE(ename, 'x') FROM emp\n", string(generated))
}

func TestTransformCommandFailsOnErrorDiagnostics(t *testing.T) {
	t.Chdir(t.TempDir())

	src := "SELECT REGEXP_INSTR(ename, 'a') FROM emp"
	require.NoError(t, os.WriteFile("bad.ora", []byte(src), 0o644))

	_, err := runRoot(t, "transform", "bad.ora")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to transform")

	_, statErr := os.Stat(filepath.Join("out", "bad.sql"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTransformCommandRequiresArgs(t *testing.T) {
	_, err := runRoot(t, "transform")
	assert.Error(t, err)
}
