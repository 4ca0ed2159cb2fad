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

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/seatunnel/procctl/internal/cmdline"
)

// posixPlatform runs each process in a new process group so that signals
// reach the whole tree started by a shell.
// posixPlatform 在新进程组中运行每个进程，使信号能到达 shell 启动的整个进程树。
type posixPlatform struct{}

func currentPlatform() platform {
	return posixPlatform{}
}

func (posixPlatform) name() string {
	return "posix"
}

func (posixPlatform) command(l LaunchCommand) *exec.Cmd {
	if len(l.Argv) == 0 {
		return exec.Command("/bin/sh", "-c", l.Line)
	}
	return exec.Command(l.Argv[0], l.Argv[1:]...)
}

// prepare sets process group attributes
// prepare 设置进程组属性
func (posixPlatform) prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true // Create new process group / 创建新进程组
}

func (p posixPlatform) terminate(proc *os.Process) error {
	return p.signal(proc, unix.SIGTERM, true)
}

func (p posixPlatform) kill(proc *os.Process) error {
	return p.signal(proc, unix.SIGKILL, true)
}

// signal delivers sig to the process, or to its group via the negative pid
// signal 向进程发送信号，group 为 true 时通过负 PID 发送给进程组
func (posixPlatform) signal(proc *os.Process, sig syscall.Signal, group bool) error {
	pid := proc.Pid
	if group {
		pid = -pid
	}
	if err := unix.Kill(pid, sig); err != nil {
		if group && errors.Is(err, unix.ESRCH) {
			// The group may be gone while the leader is still being reaped.
			if err = unix.Kill(proc.Pid, sig); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: %s to pid %d: %v", ErrSignalDelivery, unix.SignalName(sig), proc.Pid, err)
	}
	return nil
}

func (posixPlatform) parseSignal(s string) (syscall.Signal, error) {
	if sig, ok := parseSignalNumber(s); ok {
		return sig, nil
	}
	if sig := unix.SignalNum(normalizeSignalName(s)); sig != 0 {
		return sig, nil
	}
	return 0, fmt.Errorf("%w: Unsupported signal '%s'.", ErrConfiguration, s)
}

func (posixPlatform) signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}

// exitCode returns the exit status, or the negated signal number when the
// process was killed by a signal.
func (posixPlatform) exitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}

func (posixPlatform) caseInsensitiveEnv() bool {
	return false
}

func (posixPlatform) joinCommandLine(argv []string) string {
	return cmdline.Join(argv...)
}
