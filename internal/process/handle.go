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
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// Handle is a reference to one started process
// Handle 是对一个已启动进程的引用
type Handle struct {
	// ID uniquely identifies the execution, also across registry resets
	// ID 唯一标识一次执行，注册表重置后依然唯一
	ID string

	// Index is the 1-based position in the registry
	// Index 是在注册表中从 1 开始的位置
	Index int

	// Alias is the optional name given at start
	// Alias 是启动时指定的可选名称
	Alias string

	// Command is the command line as logged
	// Command 是记录在日志中的命令行
	Command string

	// StartedAt is when the process was spawned
	// StartedAt 是进程创建的时间
	StartedAt time.Time

	cmd    *exec.Cmd
	config *Configuration
	result *ExecutionResult
	stdin  *pipeWriter

	// done is closed by the reaper once the process has been waited for
	done    chan struct{}
	state   *os.ProcessState
	waitErr error
}

// reap waits for the OS process and publishes its state
func (h *Handle) reap() {
	h.waitErr = h.cmd.Wait()
	h.state = h.cmd.ProcessState
	close(h.done)
}

// PID returns the OS process ID
// PID 返回操作系统进程 ID
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Process returns the underlying OS process
func (h *Handle) Process() *os.Process {
	return h.cmd.Process
}

// Running reports whether the process has not exited yet
// Running 报告进程是否仍在运行
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done is closed when the process has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the execution result. It is finalized only after the
// process was waited for or terminated.
// Result 返回执行结果，仅在进程被等待或终止后才会完成。
func (h *Handle) Result() *ExecutionResult {
	return h.result
}

// Configuration returns the resolved launch configuration
func (h *Handle) Configuration() *Configuration {
	return h.config
}

// Stdin returns the writable end of the stdin pipe, or nil when stdin
// was not started as PIPE. Closing it sends EOF to the process.
// Stdin 返回 stdin 管道的可写端，未使用 PIPE 时返回 nil。
func (h *Handle) Stdin() io.WriteCloser {
	if h.stdin == nil {
		return nil
	}
	return h.stdin
}

// StdoutPipe detaches the stdout pipe so that it can be used as the
// stdin of another process. The caller owns the returned file and the
// result's stdout is empty afterwards.
// StdoutPipe 分离 stdout 管道以便作为另一个进程的 stdin。
func (h *Handle) StdoutPipe() (*os.File, error) {
	return h.result.detachStdout()
}

// exitCode returns the return code of an exited process
func (h *Handle) exitCode(p platform) int {
	if h.state == nil {
		return -1
	}
	return p.exitCode(h.state)
}

func (h *Handle) eventInfo() *EventInfo {
	info := &EventInfo{
		ID:        h.ID,
		Index:     h.Index,
		Alias:     h.Alias,
		Command:   h.Command,
		PID:       h.PID(),
		StartedAt: h.StartedAt,
		Time:      time.Now(),
	}
	info.ReturnCode, info.Finished = h.result.ReturnCode()
	return info
}

// String renders the handle like "#1 (alias) pid 1234"
func (h *Handle) String() string {
	if h.Alias != "" {
		return fmt.Sprintf("#%d (%s) pid %d", h.Index, h.Alias, h.PID())
	}
	return fmt.Sprintf("#%d pid %d", h.Index, h.PID())
}
