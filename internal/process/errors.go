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

package process

import (
	"errors"
	"fmt"
)

// Common errors for process management
// 进程管理的常见错误
var (
	// ErrConfiguration indicates an invalid launch configuration
	// ErrConfiguration 表示无效的启动配置
	ErrConfiguration = errors.New("invalid process configuration")

	// ErrDuplicateAlias indicates the alias is already used by a tracked process
	// ErrDuplicateAlias 表示别名已被某个已跟踪的进程使用
	ErrDuplicateAlias = fmt.Errorf("%w: alias already in use", ErrConfiguration)

	// ErrProcessNotFound indicates the handle, index or alias is unknown
	// ErrProcessNotFound 表示句柄、索引或别名未知
	ErrProcessNotFound = errors.New("process not found")

	// ErrNoActiveProcess indicates nothing has been started yet
	// ErrNoActiveProcess 表示尚未启动任何进程
	ErrNoActiveProcess = errors.New("no active process")

	// ErrUnsupported indicates the operation is not available on this platform
	// ErrUnsupported 表示该操作在当前平台上不可用
	ErrUnsupported = errors.New("unsupported on this platform")

	// ErrSignalDelivery indicates the OS refused to deliver a signal
	// ErrSignalDelivery 表示操作系统拒绝投递信号
	ErrSignalDelivery = errors.New("failed to deliver signal")

	// ErrKillFailed indicates the process survived a forceful kill
	// ErrKillFailed 表示进程在强制终止后仍然存活
	ErrKillFailed = errors.New("failed to kill process")

	// ErrNotFinished indicates results were requested before the process ended
	// ErrNotFinished 表示在进程结束前请求了结果
	ErrNotFinished = errors.New("getting results of unfinished processes is not supported")

	// ErrStartFailed indicates the OS could not spawn the process
	// ErrStartFailed 表示操作系统无法创建进程
	ErrStartFailed = errors.New("process failed to start")

	// ErrWaitCancelled indicates the caller's context ended while waiting
	// ErrWaitCancelled 表示等待期间调用方的上下文已结束
	ErrWaitCancelled = errors.New("timeout exceeded while waiting for process")
)

// cancelled wraps the context error so callers can match both
// ErrWaitCancelled and context.DeadlineExceeded / context.Canceled.
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrWaitCancelled, err)
}
