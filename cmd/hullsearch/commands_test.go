package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, opts := newRootCmd()
	defer opts.close()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSearch_RecordsInCatalog(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	out, err := execute(t, "cg", "toy16", "--rounds", "2", "--limit-exp", "12", "--out", dir, "--silent", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[+] toy16, 2 rounds, cg")
	assert.FileExists(t, filepath.Join(dir, "toy16_r2_lim4096_modediff.bdd"))

	out, err = execute(t, "runs", "toy16", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, "toy16/cg")
	assert.Contains(t, out, "lim 4096")
}

func TestSearch_FlagErrors(t *testing.T) {
	_, err := execute(t, "differential", "toy16", "--out", t.TempDir(), "--silent")
	assert.ErrorContains(t, err, "rounds")

	_, err = execute(t, "linear", "toy16", "--rounds", "1", "--out", t.TempDir(), "--silent")
	assert.ErrorContains(t, err, "at least 2")

	_, err = execute(t, "linear", "toy16", "--rounds", "2", "--limit", "0", "--out", t.TempDir(), "--silent")
	assert.ErrorContains(t, err, "soft_limit")

	_, err = execute(t, "cg")
	assert.Error(t, err)
}

func TestCiphers(t *testing.T) {
	out, err := execute(t, "ciphers")
	require.NoError(t, err)
	for _, name := range []string{"gift64", "present", "toy16"} {
		assert.Contains(t, out, name)
	}
}
