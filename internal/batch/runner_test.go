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

package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/seatunnel/procctl/internal/process"
)

func newTestRunner(t *testing.T) (*Runner, *process.Controller) {
	t.Helper()
	log := zaptest.NewLogger(t)
	controller := process.NewController(
		process.WithLogger(log),
		process.WithTerminateTimeout(2*time.Second),
		process.WithKillTimeout(2*time.Second),
		process.WithDrainTimeout(time.Second),
	)
	return NewRunner(controller, process.TimeoutTerminate, log), controller
}

func TestRunCollectsOutcomes(t *testing.T) {
	runner, controller := newTestRunner(t)
	m := &Manifest{Processes: []Entry{
		{Alias: "first", Command: "echo one", Shell: true},
		{Alias: "second", Command: "sh", Args: []string{"-c", "echo two >&2; exit 3"}},
	}}

	outcomes, err := runner.Run(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "first", outcomes[0].Name)
	assert.Equal(t, 1, outcomes[0].Index)
	assert.True(t, outcomes[0].Finished)
	assert.Equal(t, 0, outcomes[0].ReturnCode)
	assert.Equal(t, "one", outcomes[0].Stdout)

	assert.Equal(t, 2, outcomes[1].Index)
	assert.Equal(t, 3, outcomes[1].ReturnCode)
	assert.Equal(t, "two", outcomes[1].Stderr)

	assert.Zero(t, controller.Registry().Len())
}

func TestRunTimeoutActions(t *testing.T) {
	runner, _ := newTestRunner(t)
	m := &Manifest{Processes: []Entry{
		{Alias: "killed", Command: "sleep", Args: []string{"30"}, Timeout: "200ms", OnTimeout: "kill"},
		{Alias: "left", Command: "sleep", Args: []string{"30"}, Timeout: "100ms", OnTimeout: "continue"},
	}}

	outcomes, err := runner.Run(context.Background(), m)
	require.NoError(t, err)

	assert.True(t, outcomes[0].TimedOut)
	assert.True(t, outcomes[0].Finished)
	assert.Equal(t, -9, outcomes[0].ReturnCode)

	// left running after its timeout, then terminated at the end
	assert.True(t, outcomes[1].TimedOut)
	assert.True(t, outcomes[1].Finished)
	assert.Equal(t, -15, outcomes[1].ReturnCode)
}

func TestRunStopsOnStartFailure(t *testing.T) {
	runner, controller := newTestRunner(t)
	m := &Manifest{Processes: []Entry{
		{Alias: "ok", Command: "sleep", Args: []string{"30"}},
		{Alias: "broken", Command: "/definitely/not/a/command"},
		{Alias: "never", Command: "true"},
	}}

	outcomes, err := runner.Run(context.Background(), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrStartFailed)
	require.Len(t, outcomes, 2)
	assert.NotEmpty(t, outcomes[1].Error)

	// the first process is terminated instead of waited for
	assert.True(t, outcomes[0].Finished)
	assert.Equal(t, -15, outcomes[0].ReturnCode)
	assert.Zero(t, controller.Registry().Len())
}

func TestRunLargeOutput(t *testing.T) {
	runner, _ := newTestRunner(t)
	m := &Manifest{Processes: []Entry{
		{Alias: "chatty", Command: "head -c 300000 /dev/zero | tr '\\0' a", Shell: true},
		{Alias: "quiet", Command: "true"},
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcomes, err := runner.Run(ctx, m)
	require.NoError(t, err)
	assert.True(t, outcomes[0].Finished)
	assert.False(t, outcomes[0].TimedOut)
	assert.Equal(t, 0, outcomes[0].ReturnCode)
	assert.Len(t, outcomes[0].Stdout, 300000)
	assert.True(t, outcomes[1].Finished)
}
