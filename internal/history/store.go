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

// Package history records process lifecycle events in SQLite.
// history 包将进程生命周期事件记录到 SQLite。
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Record is one stored lifecycle event
// Record 是一条已存储的生命周期事件
type Record struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ExecutionID  string    `gorm:"size:36;index" json:"execution_id"`
	Event        string    `gorm:"size:16;index" json:"event"`
	ProcessIndex int       `json:"process_index"`
	Alias        string    `gorm:"size:255;index" json:"alias,omitempty"`
	Command      string    `gorm:"type:text" json:"command"`
	PID          int       `json:"pid"`
	ReturnCode   *int      `json:"return_code,omitempty"`
	TimeoutMs    int64     `json:"timeout_ms,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	OccurredAt   time.Time `gorm:"index" json:"occurred_at"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "process_events"
}

// Query filters stored records. Zero values match everything.
// Query 过滤已存储的记录，零值匹配全部。
type Query struct {
	ExecutionID string
	Alias       string
	Event       string
	Since       time.Time
	Limit       int
}

// Store persists records with gorm
// Store 使用 gorm 持久化记录
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the SQLite history database
// Open 打开并迁移 SQLite 历史数据库
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	// 确保目录存在
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	// 注入 OpenTelemetry 追踪
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Warn("Failed to init history tracing plugin", zap.Error(err))
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	log.Debug("History database opened", zap.String("path", path))
	return &Store{db: db}, nil
}

// Save stores records in one transaction
// Save 在一个事务中保存记录
func (s *Store) Save(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("failed to save %d history records: %w", len(records), err)
	}
	return nil
}

// List returns matching records, newest first
// List 返回匹配的记录，最新的在前
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	tx := s.db.WithContext(ctx).Model(&Record{})
	if q.ExecutionID != "" {
		tx = tx.Where("execution_id = ?", q.ExecutionID)
	}
	if q.Alias != "" {
		tx = tx.Where("alias = ?", q.Alias)
	}
	if q.Event != "" {
		tx = tx.Where("event = ?", q.Event)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("occurred_at >= ?", q.Since)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var records []Record
	if err := tx.Order("occurred_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	return records, nil
}

// Purge deletes records older than the given time
// Purge 删除早于给定时间的记录
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("occurred_at < ?", before).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge history records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close closes the database connection
// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying connection: %w", err)
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
