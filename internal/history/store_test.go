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

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int { return &v }

func TestStoreSaveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		{ExecutionID: "a", Event: "started", ProcessIndex: 1, Alias: "web", Command: "server", PID: 10, StartedAt: base, OccurredAt: base},
		{ExecutionID: "a", Event: "completed", ProcessIndex: 1, Alias: "web", Command: "server", PID: 10, ReturnCode: intPtr(0), StartedAt: base, OccurredAt: base.Add(time.Second)},
		{ExecutionID: "b", Event: "killed", ProcessIndex: 2, Command: "sleep 60", PID: 11, ReturnCode: intPtr(-9), StartedAt: base, OccurredAt: base.Add(2 * time.Second)},
	}
	require.NoError(t, store.Save(ctx, records))
	require.NoError(t, store.Save(ctx, nil))

	all, err := store.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "killed", all[0].Event)
	require.NotNil(t, all[0].ReturnCode)
	assert.Equal(t, -9, *all[0].ReturnCode)
	assert.Nil(t, all[2].ReturnCode)

	byAlias, err := store.List(ctx, Query{Alias: "web"})
	require.NoError(t, err)
	assert.Len(t, byAlias, 2)

	byExecution, err := store.List(ctx, Query{ExecutionID: "a", Event: "completed"})
	require.NoError(t, err)
	require.Len(t, byExecution, 1)
	assert.Equal(t, 0, *byExecution[0].ReturnCode)

	limited, err := store.List(ctx, Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	recent, err := store.List(ctx, Query{Since: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestStorePurge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, []*Record{
		{ExecutionID: "old", Event: "started", OccurredAt: base},
		{ExecutionID: "new", Event: "started", OccurredAt: base.Add(time.Hour)},
	}))

	removed, err := store.Purge(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := store.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].ExecutionID)
}
