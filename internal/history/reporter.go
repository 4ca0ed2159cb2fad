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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seatunnel/procctl/internal/process"
)

// DefaultEventCacheSize is the default size of the event cache
// DefaultEventCacheSize 是事件缓存的默认大小
const DefaultEventCacheSize = 1000

// DefaultBatchSize is the default batch size for event reporting
// DefaultBatchSize 是事件上报的默认批量大小
const DefaultBatchSize = 50

// DefaultFlushInterval is the default period of background flushes
// DefaultFlushInterval 是后台刷新的默认周期
const DefaultFlushInterval = 5 * time.Second

// ReportFunc stores one batch of records
// ReportFunc 保存一批记录
type ReportFunc func(ctx context.Context, records []*Record) error

// Reporter caches lifecycle events and writes them in batches
// Reporter 缓存生命周期事件并批量写入
type Reporter struct {
	cache         []*Record
	cacheSize     int
	batchSize     int
	flushInterval time.Duration
	reportFunc    ReportFunc
	log           *zap.Logger

	mu      sync.Mutex
	flushCh chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewReporter creates a new Reporter instance
// NewReporter 创建一个新的 Reporter 实例
func NewReporter(reportFunc ReportFunc, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{
		cache:         make([]*Record, 0, DefaultBatchSize),
		cacheSize:     DefaultEventCacheSize,
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		reportFunc:    reportFunc,
		log:           log,
		flushCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// SetCacheSize sets the maximum cache size
// SetCacheSize 设置最大缓存大小
func (r *Reporter) SetCacheSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.cacheSize = size
	}
}

// SetBatchSize sets the batch size for reporting
// SetBatchSize 设置上报的批量大小
func (r *Reporter) SetBatchSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.batchSize = size
	}
}

// SetFlushInterval sets the background flush period
// SetFlushInterval 设置后台刷新周期
func (r *Reporter) SetFlushInterval(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interval > 0 {
		r.flushInterval = interval
	}
}

// Start starts the periodic flush goroutine
// Start 启动定期刷新 goroutine
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.flushLoop(r.flushInterval)
}

// Stop stops the flush goroutine and writes what is left in the cache
// Stop 停止刷新 goroutine 并写入缓存中剩余的事件
func (r *Reporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	started := r.started
	r.started = false
	r.mu.Unlock()
	if started {
		close(r.stopCh)
		r.wg.Wait()
	}
	return r.FlushEvents(ctx)
}

// flushLoop periodically flushes events
// flushLoop 定期刷新事件
func (r *Reporter) flushLoop(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
		case <-r.flushCh:
		}
		if err := r.FlushEvents(context.Background()); err != nil {
			r.log.Warn("Failed to write history events", zap.Error(err))
		}
	}
}

// HandleEvent converts a process event to a record and caches it. It
// matches process.EventHandler.
// HandleEvent 将进程事件转换为记录并缓存，签名与 process.EventHandler 一致。
func (r *Reporter) HandleEvent(event process.Event, info *process.EventInfo) {
	record := &Record{
		ExecutionID:  info.ID,
		Event:        string(event),
		ProcessIndex: info.Index,
		Alias:        info.Alias,
		Command:      info.Command,
		PID:          info.PID,
		TimeoutMs:    info.Timeout.Milliseconds(),
		StartedAt:    info.StartedAt,
		OccurredAt:   info.Time,
	}
	if info.Finished {
		rc := info.ReturnCode
		record.ReturnCode = &rc
	}
	r.ReportEvent(record)
}

// ReportEvent adds a record to the cache and wakes the flusher once a
// batch is complete
// ReportEvent 将记录添加到缓存，攒满一批时唤醒刷新协程
func (r *Reporter) ReportEvent(record *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Add to cache / 添加到缓存
	if len(r.cache) >= r.cacheSize {
		// Remove oldest event if cache is full / 如果缓存已满则移除最旧的事件
		r.cache = r.cache[1:]
	}
	r.cache = append(r.cache, record)
	r.log.Debug("History event cached", zap.String("event", record.Event), zap.Int("pid", record.PID))

	if r.started && len(r.cache) >= r.batchSize {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
}

// FlushEvents writes all cached records in batches. Records of a failed
// batch stay cached for the next attempt.
// FlushEvents 批量写入所有缓存的记录，失败的批次保留在缓存中等待重试。
func (r *Reporter) FlushEvents(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.cache) > 0 {
		batchEnd := min(r.batchSize, len(r.cache))
		batch := r.cache[:batchEnd]
		if err := r.reportFunc(ctx, batch); err != nil {
			// Keep events in cache for retry / 保留事件在缓存中以便重试
			return err
		}
		// Remove reported events from cache / 从缓存中移除已上报的事件
		r.cache = r.cache[batchEnd:]
		r.log.Debug("History events written", zap.Int("count", batchEnd), zap.Int("remaining", len(r.cache)))
	}
	return nil
}

// CachedEventCount returns the number of cached events
// CachedEventCount 返回缓存的事件数量
func (r *Reporter) CachedEventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
