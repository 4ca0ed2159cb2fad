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

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seatunnel/procctl/internal/process"
)

// runOptions holds the flags of the run command
// runOptions 保存 run 命令的参数
type runOptions struct {
	process.Options
	timeout   string
	onTimeout string
	format    string
}

// runReport is the structured output of the run command
// runReport 是 run 命令的结构化输出
type runReport struct {
	ReturnCode *int   `json:"rc" yaml:"rc"`
	PID        int    `json:"pid" yaml:"pid"`
	Stdout     string `json:"stdout" yaml:"stdout"`
	Stderr     string `json:"stderr" yaml:"stderr"`
	StdoutPath string `json:"stdout_path,omitempty" yaml:"stdout_path,omitempty"`
	StderrPath string `json:"stderr_path,omitempty" yaml:"stderr_path,omitempty"`
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a process and wait for it / 运行进程并等待其结束",
		Long: `Run starts a process, waits for it to complete and prints its output.
The exit status of procctl is the return code of the process, or 128+N
when the process was ended by signal N.
run 启动进程并等待其结束，然后打印其输出。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, flags, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Shell, "shell", false, "run the command through the system shell")
	f.StringVar(&opts.Cwd, "cwd", "", "working directory")
	f.StringVar(&opts.Stdout, "stdout", "", "stdout destination: PIPE, DEVNULL or a file path")
	f.StringVar(&opts.Stderr, "stderr", "", "stderr destination: PIPE, DEVNULL, STDOUT or a file path")
	f.StringVar(&opts.Stdin, "stdin", "", "stdin: NONE, a file path or literal input text")
	f.StringVar(&opts.Alias, "alias", "", "alias of the process")
	f.StringVar(&opts.OutputEncoding, "encoding", "", "output encoding of this process")
	f.StringToStringVar(&opts.Env, "env", nil, "replace the environment with KEY=VALUE pairs")
	f.StringToStringVar(&opts.Extra, "extra-env", nil, "add KEY=VALUE pairs to the environment")
	f.StringVar(&opts.timeout, "timeout", "", "wait timeout, e.g. \"1 minute 30 seconds\" or 90s")
	f.StringVar(&opts.onTimeout, "action", "", "action on timeout: continue, terminate or kill (default from config)")
	f.StringVarP(&opts.format, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func runProcess(cmd *cobra.Command, flags *globalFlags, opts *runOptions, args []string) (err error) {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	timeout, err := process.ParseTimeout(opts.timeout)
	if err != nil {
		return err
	}
	action, err := a.defaultAction()
	if err != nil {
		return err
	}
	if opts.onTimeout != "" {
		if action, err = process.ParseTimeoutAction(opts.onTimeout); err != nil {
			return err
		}
	}

	h, err := a.controller.Start(cmd.Context(), args[0], args[1:], opts.Options)
	if err != nil {
		return err
	}
	result, err := a.controller.WaitHandle(cmd.Context(), h, timeout, action)
	if err != nil {
		return err
	}

	report := runReport{PID: h.PID()}
	if result != nil {
		rc, _ := result.ReturnCode()
		report.ReturnCode = &rc
		report.Stdout = result.Stdout()
		report.Stderr = result.Stderr()
		report.StdoutPath = result.StdoutPath()
		report.StderrPath = result.StderrPath()
	}
	if err := writeRunReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.format, report); err != nil {
		return err
	}

	if report.ReturnCode == nil {
		return nil
	}
	if code := exitStatus(*report.ReturnCode); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// exitStatus maps a return code to a shell style exit status
// exitStatus 将返回码映射为 shell 风格的退出码
func exitStatus(rc int) int {
	if rc < 0 {
		return 128 - rc
	}
	return rc
}

func writeRunReport(stdout, stderr io.Writer, format string, report runReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		if report.ReturnCode == nil {
			fmt.Fprintf(stderr, "Process %d left running.\n", report.PID)
			return nil
		}
		if report.Stdout != "" {
			fmt.Fprintln(stdout, report.Stdout)
		}
		if report.Stderr != "" {
			fmt.Fprintln(stderr, report.Stderr)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format '%s', expected text, json or yaml", format)
	}
}
