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
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// platform isolates the operating system specific parts of process control
// platform 隔离进程控制中与操作系统相关的部分
type platform interface {
	// name identifies the platform in logs
	name() string

	// command builds an unstarted command
	command(l LaunchCommand) *exec.Cmd

	// prepare puts the process in its own group before start
	prepare(cmd *exec.Cmd)

	// terminate asks the process to stop gracefully
	terminate(p *os.Process) error

	// kill stops the process and its group forcefully
	kill(p *os.Process) error

	// signal sends a signal to the process or its whole group
	signal(p *os.Process, sig syscall.Signal, group bool) error

	// parseSignal resolves a signal name or number
	parseSignal(s string) (syscall.Signal, error)

	// signalName returns the conventional name of a signal
	signalName(sig syscall.Signal) string

	// exitCode maps a finished process state to a return code
	exitCode(ps *os.ProcessState) int

	// caseInsensitiveEnv reports whether env var names ignore case
	caseInsensitiveEnv() bool

	// joinCommandLine quotes argv into a single shell line
	joinCommandLine(argv []string) string
}

// parseSignalNumber accepts a plain positive integer
func parseSignalNumber(s string) (syscall.Signal, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return syscall.Signal(n), true
}

// normalizeSignalName upper-cases a name and adds the SIG prefix
func normalizeSignalName(s string) string {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	return name
}
