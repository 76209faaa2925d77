// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScenario = `
name: smoke
controllers:
  - id: ap-1
    children: [cam-1]
devices:
  - id: cam-1
    class: camera
    position: {x: 5}
    controllers: [ap-1]
events:
  - breach:
      target: cam-1
      context: access_point
      success: true
      at: 100
      position: {x: 5}
      directives: [unlock:camera]
  - check:
      entity: cam-1
      at: 110
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o600))
	return path
}

func TestReplayCommand_RunsScenario(t *testing.T) {
	configFile = ""

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"replay", "--scenario", writeScenario(t), "--log_format", "text"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "STEP")
	assert.Contains(t, output, "breach")
	assert.Contains(t, output, "unlock:camera")
	assert.Contains(t, output, "accessible")
}

func TestReplayCommand_SavePersistsState(t *testing.T) {
	configFile = ""
	storePath := filepath.Join(t.TempDir(), "session.db")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		"replay",
		"--scenario", writeScenario(t),
		"--save",
		"--store_path", storePath,
	})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Session state saved")
	assert.FileExists(t, storePath)

	// status reads the same database back.
	statusCmd := NewRootCmd()
	statusBuf := new(bytes.Buffer)
	statusCmd.SetOut(statusBuf)
	statusCmd.SetErr(new(bytes.Buffer))
	statusCmd.SetArgs([]string{"status", "--store_path", storePath})

	require.NoError(t, statusCmd.Execute())
	output := statusBuf.String()
	assert.Contains(t, output, "cam-1")
	assert.Contains(t, output, "camera")
	assert.Contains(t, output, "Breach records: 1")
}

func TestReplayCommand_MissingScenarioFlag(t *testing.T) {
	configFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"replay"})

	require.Error(t, cmd.Execute())
}

func TestReplayCommand_MissingScenarioFile(t *testing.T) {
	configFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"replay", "--scenario", filepath.Join(t.TempDir(), "missing.yaml")})

	require.Error(t, cmd.Execute())
}

func TestStatusCommand_MissingDatabaseLoadsEmpty(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "fresh.db")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"status", "--store_path", storePath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No capability grants")
}
