//go:build windows
// +build windows

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
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/seatunnel/procctl/internal/cmdline"
)

// windowsPlatform starts processes in a new process group so that a
// CTRL_BREAK event can be targeted at them.
// windowsPlatform 在新进程组中启动进程，以便向其发送 CTRL_BREAK 事件。
type windowsPlatform struct{}

func currentPlatform() platform {
	return windowsPlatform{}
}

func (windowsPlatform) name() string {
	return "windows"
}

func (windowsPlatform) command(l LaunchCommand) *exec.Cmd {
	if len(l.Argv) > 0 {
		return exec.Command(l.Argv[0], l.Argv[1:]...)
	}
	shell := os.Getenv("COMSPEC")
	if shell == "" {
		shell = "cmd.exe"
	}
	cmd := exec.Command(shell)
	// cmd.exe does its own parsing, so the line is passed verbatim.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: fmt.Sprintf(`%s /c "%s"`, cmdline.JoinWindows(shell), l.Line),
	}
	return cmd
}

func (windowsPlatform) prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// terminate sends CTRL_BREAK to the process group
// terminate 向进程组发送 CTRL_BREAK
func (windowsPlatform) terminate(p *os.Process) error {
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid)); err != nil {
		return fmt.Errorf("%w: CTRL_BREAK to pid %d: %v", ErrSignalDelivery, p.Pid, err)
	}
	return nil
}

func (windowsPlatform) kill(p *os.Process) error {
	if err := p.Kill(); err != nil {
		return fmt.Errorf("%w: kill pid %d: %v", ErrSignalDelivery, p.Pid, err)
	}
	return nil
}

func (windowsPlatform) signal(*os.Process, syscall.Signal, bool) error {
	return fmt.Errorf("%w: sending signals is not supported on Windows", ErrUnsupported)
}

func (windowsPlatform) parseSignal(s string) (syscall.Signal, error) {
	return 0, fmt.Errorf("%w: sending signals is not supported on Windows", ErrUnsupported)
}

func (windowsPlatform) signalName(sig syscall.Signal) string {
	return fmt.Sprintf("signal %d", int(sig))
}

func (windowsPlatform) exitCode(ps *os.ProcessState) int {
	return ps.ExitCode()
}

func (windowsPlatform) caseInsensitiveEnv() bool {
	return true
}

func (windowsPlatform) joinCommandLine(argv []string) string {
	return cmdline.JoinWindows(argv...)
}
