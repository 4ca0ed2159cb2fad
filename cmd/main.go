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

// Package main is the entry point of the procctl command line tool.
// main 包是 procctl 命令行工具的入口点。
//
// procctl starts processes, waits for them with timeouts, terminates them
// and reports their results:
// procctl 负责启动进程、带超时等待、终止进程并报告结果：
// - run: run one process / 运行单个进程
// - batch: run processes described by a YAML manifest / 运行 YAML 清单描述的多个进程
// - split, join: command line quoting helpers / 命令行引号处理工具
// - history: query recorded lifecycle events / 查询已记录的生命周期事件
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// exitCodeError carries the exit status of the command
// exitCodeError 携带命令的退出码
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// globalFlags holds flags shared by all subcommands
// globalFlags 保存所有子命令共享的参数
type globalFlags struct {
	configFile string
}

// newRootCmd builds the command tree
// newRootCmd 构建命令树
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "procctl",
		Short: "procctl - start, wait for and terminate processes",
		Long: `procctl starts processes, waits for them with timeouts, terminates
them gracefully or forcefully and reports their exit code and output.
procctl 启动进程、带超时等待、优雅或强制终止进程，并报告其退出码和输出。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "config file path (default: $PROCCTL_CONFIG_PATH or ./procctl.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "also write JSON logs to this file")
	pf.Duration("terminate-timeout", 0, "grace period before a terminated process is killed")
	pf.Duration("kill-timeout", 0, "time a killed process may take to exit")
	pf.Duration("drain-timeout", 0, "time allowed to read output after a process exited")
	pf.String("output-encoding", "", "default output encoding (CONSOLE, SYSTEM, latin-1, ...)")
	pf.String("on-timeout", "", "default action on wait timeout: continue, terminate or kill")
	pf.Bool("history", false, "record lifecycle events to the history database")
	pf.String("history-path", "", "history database file")
	pf.Bool("telemetry", false, "export traces over OTLP/gRPC")
	pf.String("otlp-endpoint", "", "OTLP collector address")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newBatchCmd(flags),
		newSplitCmd(),
		newJoinCmd(),
		newHistoryCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

// newVersionCmd shows version information
// newVersionCmd 显示版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information / 打印版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "procctl\n")
	fmt.Fprintf(w, "  Version:    %s\n", Version)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// execute runs the command tree and returns the process exit status
// execute 运行命令树并返回进程退出码
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func main() {
	// Cancelling the context kills running processes / 取消上下文会强制终止运行中的进程
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
