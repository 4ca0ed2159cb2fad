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

import "time"

// Event represents a process lifecycle event
// Event 表示进程生命周期事件
type Event string

const (
	// EventStarted indicates the process has started
	// EventStarted 表示进程已启动
	EventStarted Event = "started"

	// EventCompleted indicates the process exited on its own
	// EventCompleted 表示进程自行退出
	EventCompleted Event = "completed"

	// EventTimedOut indicates a wait timed out while the process was running
	// EventTimedOut 表示等待超时而进程仍在运行
	EventTimedOut Event = "timed_out"

	// EventTerminated indicates the process was stopped gracefully
	// EventTerminated 表示进程已被优雅停止
	EventTerminated Event = "terminated"

	// EventKilled indicates the process was killed forcefully
	// EventKilled 表示进程已被强制终止
	EventKilled Event = "killed"
)

// EventInfo describes the process an event refers to
// EventInfo 描述事件所对应的进程
type EventInfo struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Alias     string    `json:"alias,omitempty"`
	Command   string    `json:"command"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Time      time.Time `json:"time"`

	// ReturnCode is only meaningful when Finished is true
	// ReturnCode 仅在 Finished 为 true 时有意义
	ReturnCode int  `json:"return_code"`
	Finished   bool `json:"finished"`

	// Timeout is set for timed_out events
	// Timeout 仅在 timed_out 事件中设置
	Timeout time.Duration `json:"timeout,omitempty"`
}

// EventHandler is a callback for process events. It is called synchronously
// and must not call back into the controller.
// EventHandler 是进程事件的回调，同步调用且不得回调控制器。
type EventHandler func(event Event, info *EventInfo)
