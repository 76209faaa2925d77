// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package errutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestLogErrorPlain(t *testing.T) {
	logger, buf := captureLogger()

	LogError(logger, "operation failed", errors.New("boom"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
	assert.NotContains(t, record, "code")
}

func TestLogErrorOops(t *testing.T) {
	logger, buf := captureLogger()

	err := oops.Code("STORE_WRITE_FAILED").With("entity", "cam-1").Errorf("write failed")
	LogError(logger, "persist failed", err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "STORE_WRITE_FAILED", record["code"])

	ctx, ok := record["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cam-1", ctx["entity"])
}
