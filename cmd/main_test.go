//go:build !windows
// +build !windows

/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes procctl with an isolated configuration
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	dir := t.TempDir()
	base := []string{"--config", filepath.Join(dir, "procctl.yaml"), "--log-level", "error"}
	// subcommand first, then the shared flags
	full := append([]string{args[0]}, append(base, args[1:]...)...)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	code := execute(context.Background(), []string{"version"}, &out, &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "procctl")
	assert.Contains(t, out.String(), "Version:    dev")
}

func TestRunCommandOutputAndExitCode(t *testing.T) {
	code, stdout, _ := runCLI(t, "run", "--", "echo", "hello")
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", stdout)

	code, _, stderr := runCLI(t, "run", "--shell", "--", "echo oops >&2; exit 3")
	assert.Equal(t, 3, code)
	assert.Equal(t, "oops\n", stderr)
}

func TestRunCommandTimeoutKill(t *testing.T) {
	code, _, _ := runCLI(t, "run", "--timeout", "100ms", "--action", "kill", "--", "sleep", "10")
	assert.Equal(t, 137, code)
}

func TestRunCommandJSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "run", "-o", "json", "--stdin", "from stdin", "--", "cat")
	require.Equal(t, 0, code)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.NotNil(t, report.ReturnCode)
	assert.Equal(t, 0, *report.ReturnCode)
	assert.Equal(t, "from stdin", report.Stdout)
	assert.Positive(t, report.PID)
}

func TestRunCommandInvalidTimeout(t *testing.T) {
	code, _, stderr := runCLI(t, "run", "--timeout", "later", "--", "true")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestSplitAndJoinCommands(t *testing.T) {
	code, stdout, _ := runCLI(t, "split", `one "two three" four`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "one\ntwo three\nfour\n", stdout)

	code, stdout, _ = runCLI(t, "join", "--", "one", "two three")
	assert.Equal(t, 0, code)
	assert.Equal(t, "one 'two three'\n", stdout)
}

func TestBatchWithHistory(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
processes:
  - alias: greeter
    command: echo hi
    shell: true
  - alias: failing
    command: "false"
`), 0644))
	dbPath := filepath.Join(dir, "history.db")
	cfgPath := filepath.Join(dir, "procctl.yaml")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{
		"batch", manifest, "--config", cfgPath, "--log-level", "error", "--history", "--history-path", dbPath,
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "name: greeter")
	assert.Contains(t, stdout.String(), "stdout: hi")

	stdout.Reset()
	code = execute(context.Background(), []string{
		"history", "--config", cfgPath, "--log-level", "error", "--history-path", dbPath, "--alias", "greeter",
	}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	out := stdout.String()
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "echo hi")
	assert.NotContains(t, out, "failing")
}
