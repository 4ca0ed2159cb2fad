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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/seatunnel/procctl/internal/process"
)

func TestHandleEventBuildsRecord(t *testing.T) {
	var got []*Record
	reporter := NewReporter(func(_ context.Context, records []*Record) error {
		got = append(got, records...)
		return nil
	}, nil)

	started := time.Now()
	reporter.HandleEvent(process.EventStarted, &process.EventInfo{
		ID: "id-1", Index: 1, Alias: "web", Command: "server", PID: 42, StartedAt: started, Time: started,
	})
	reporter.HandleEvent(process.EventTimedOut, &process.EventInfo{
		ID: "id-1", Index: 1, Alias: "web", Command: "server", PID: 42, Time: started, Timeout: 1500 * time.Millisecond,
	})
	reporter.HandleEvent(process.EventKilled, &process.EventInfo{
		ID: "id-1", Index: 1, PID: 42, ReturnCode: -9, Finished: true, Time: started,
	})
	require.NoError(t, reporter.FlushEvents(context.Background()))

	require.Len(t, got, 3)
	assert.Equal(t, "started", got[0].Event)
	assert.Nil(t, got[0].ReturnCode)
	assert.Equal(t, "web", got[0].Alias)
	assert.Equal(t, int64(1500), got[1].TimeoutMs)
	require.NotNil(t, got[2].ReturnCode)
	assert.Equal(t, -9, *got[2].ReturnCode)
	assert.Zero(t, reporter.CachedEventCount())
}

func TestFlushFailureKeepsEvents(t *testing.T) {
	fail := true
	reporter := NewReporter(func(_ context.Context, _ []*Record) error {
		if fail {
			return errors.New("database locked")
		}
		return nil
	}, nil)

	reporter.ReportEvent(&Record{Event: "started"})
	reporter.ReportEvent(&Record{Event: "completed"})
	require.Error(t, reporter.FlushEvents(context.Background()))
	assert.Equal(t, 2, reporter.CachedEventCount())

	fail = false
	require.NoError(t, reporter.FlushEvents(context.Background()))
	assert.Zero(t, reporter.CachedEventCount())
}

func TestCacheDropsOldest(t *testing.T) {
	var got []*Record
	reporter := NewReporter(func(_ context.Context, records []*Record) error {
		got = append(got, records...)
		return nil
	}, nil)
	reporter.SetCacheSize(2)

	reporter.ReportEvent(&Record{ExecutionID: "1"})
	reporter.ReportEvent(&Record{ExecutionID: "2"})
	reporter.ReportEvent(&Record{ExecutionID: "3"})
	require.NoError(t, reporter.FlushEvents(context.Background()))

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ExecutionID)
	assert.Equal(t, "3", got[1].ExecutionID)
}

func TestBackgroundFlushAndStop(t *testing.T) {
	var mu sync.Mutex
	var got []*Record
	reporter := NewReporter(func(_ context.Context, records []*Record) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, records...)
		return nil
	}, nil)
	reporter.SetBatchSize(2)
	reporter.SetFlushInterval(time.Hour)
	reporter.Start()

	reporter.ReportEvent(&Record{ExecutionID: "1"})
	reporter.ReportEvent(&Record{ExecutionID: "2"})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	reporter.ReportEvent(&Record{ExecutionID: "3"})
	require.NoError(t, reporter.Stop(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 3)
}

func TestReporterWritesToStore(t *testing.T) {
	store := openTestStore(t)
	reporter := NewReporter(store.Save, nil)
	now := time.Now()

	reporter.HandleEvent(process.EventStarted, &process.EventInfo{ID: "x", Index: 1, Command: "true", PID: 7, StartedAt: now, Time: now})
	reporter.HandleEvent(process.EventCompleted, &process.EventInfo{ID: "x", Index: 1, Command: "true", PID: 7, StartedAt: now, Time: now.Add(time.Millisecond), Finished: true})
	require.NoError(t, reporter.Stop(context.Background()))

	records, err := store.List(context.Background(), Query{ExecutionID: "x"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "completed", records[0].Event)
	require.NotNil(t, records[0].ReturnCode)
	assert.Equal(t, 0, *records[0].ReturnCode)
}

// Every cached event is written exactly once, in order, and no batch is
// larger than the configured batch size.
// 每个缓存的事件按顺序恰好写入一次，且每批不超过配置的批量大小。
func TestProperty_FlushPreservesOrderAndBatchSize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		eventCount := rapid.IntRange(0, 60).Draw(t, "eventCount")
		batchSize := rapid.IntRange(1, 10).Draw(t, "batchSize")

		var written []*Record
		reporter := NewReporter(func(_ context.Context, records []*Record) error {
			if len(records) > batchSize {
				t.Fatalf("batch of %d exceeds %d", len(records), batchSize)
			}
			written = append(written, records...)
			return nil
		}, nil)
		reporter.SetBatchSize(batchSize)

		expected := make([]*Record, 0, eventCount)
		for i := 0; i < eventCount; i++ {
			record := &Record{
				ProcessIndex: i,
				PID:          rapid.IntRange(1000, 65535).Draw(t, "pid"),
			}
			expected = append(expected, record)
			reporter.ReportEvent(record)
		}
		if err := reporter.FlushEvents(context.Background()); err != nil {
			t.Fatalf("flush failed: %v", err)
		}

		if len(written) != len(expected) {
			t.Fatalf("expected %d records, got %d", len(expected), len(written))
		}
		for i := range expected {
			if written[i] != expected[i] {
				t.Fatalf("record %d out of order", i)
			}
		}
	})
}
