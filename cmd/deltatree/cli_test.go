package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DELTATREE_VAULT_MASTERKEY", strings.TrimSpace(run(t, "keygen")))
	common := []string{"--user", "u-1", "--data-dir", dir, "--log-level", "error"}
	with := func(args ...string) []string { return append(args, common...) }

	out := run(t, with("init", "p-1", "--name", "Alex Doe")...)
	assert.Contains(t, out, "Created participant p-1")

	actionFile := filepath.Join(dir, "add.yaml")
	require.NoError(t, os.WriteFile(actionFile, []byte("kind: addDocument\nnewDocument:\n  documentId: intake\n  name: Intake\n"), 0o600))
	out = run(t, with("apply", "p-1", actionFile)...)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	assert.Equal(t, "addDocument", fields[0])
	docID := fields[1]

	var delta map[string]any
	require.NoError(t, json.Unmarshal([]byte(run(t, with("delta", "p-1")...)), &delta))
	assert.Contains(t, delta["documents"], docID)

	out = run(t, with("save", "p-1")...)
	assert.Contains(t, out, "Saved p-1: 1 documents")

	htmlFile := filepath.Join(dir, "p-1.html")
	run(t, with("export", "p-1", "-o", htmlFile)...)
	page, err := os.ReadFile(htmlFile)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h2>Intake</h2>")

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(run(t, with("show", "p-1")...)), &snapshot))
	assert.Equal(t, "Alex Doe", snapshot["saveFileName"])
	assert.Contains(t, snapshot["documents"], docID)
}
