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
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
)

// Stream markers accepted by Options
// Options 接受的流标记
const (
	// StreamPipe captures the stream in memory (the default)
	// StreamPipe 在内存中捕获流（默认）
	StreamPipe = "PIPE"

	// StreamDevNull discards the stream
	// StreamDevNull 丢弃流
	StreamDevNull = "DEVNULL"

	// StreamStdout redirects stderr onto stdout
	// StreamStdout 将 stderr 重定向到 stdout
	StreamStdout = "STDOUT"

	// StdinNone gives the process no standard input
	// StdinNone 不为进程提供标准输入
	StdinNone = "NONE"
)

// Options contains user supplied parameters for launching one process
// Options 包含启动单个进程的用户参数
type Options struct {
	// Cwd is the working directory (defaults to the caller's cwd)
	// Cwd 是工作目录（默认为调用方当前目录）
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty"`

	// Shell runs the command through the system shell
	// Shell 表示通过系统 shell 运行命令
	Shell bool `json:"shell,omitempty" yaml:"shell,omitempty"`

	// Stdout is empty/PIPE, DEVNULL or a file path relative to Cwd
	// Stdout 为空/PIPE、DEVNULL 或相对于 Cwd 的文件路径
	Stdout string `json:"stdout,omitempty" yaml:"stdout,omitempty"`

	// Stderr is like Stdout, plus STDOUT (or the same value as Stdout) to merge
	// Stderr 与 Stdout 相同，另外 STDOUT（或与 Stdout 相同的值）表示合并
	Stderr string `json:"stderr,omitempty" yaml:"stderr,omitempty"`

	// Stdin is NONE, PIPE, a path to an existing file or literal input text
	// Stdin 为 NONE、PIPE、已存在文件的路径或字面输入文本
	Stdin string `json:"stdin,omitempty" yaml:"stdin,omitempty"`

	// StdinReader is passed through unchanged and takes precedence over Stdin,
	// e.g. the output pipe of another process for pipeline chaining
	// StdinReader 原样传递并优先于 Stdin，例如用于管道串联的另一个进程输出
	StdinReader io.Reader `json:"-" yaml:"-"`

	// OutputEncoding is CONSOLE, SYSTEM or an encoding name such as latin-1
	// OutputEncoding 为 CONSOLE、SYSTEM 或编码名称（如 latin-1）
	OutputEncoding string `json:"output_encoding,omitempty" yaml:"output_encoding,omitempty"`

	// Alias is an optional unique name for the process
	// Alias 是进程的可选唯一名称
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`

	// Env replaces the inherited environment entirely when not empty
	// Env 非空时完全替换继承的环境变量
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Extra holds "env:NAME" overrides layered on top of the environment
	// Extra 保存叠加在环境变量之上的 "env:NAME" 覆盖项
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

type destinationKind int

const (
	destinationPipe destinationKind = iota
	destinationDevNull
	destinationFile
	destinationStdout
)

// destination is a resolved stdout/stderr target
type destination struct {
	kind destinationKind
	path string
	file *os.File
}

func (d destination) String() string {
	switch d.kind {
	case destinationPipe:
		return StreamPipe
	case destinationStdout:
		return StreamStdout
	default:
		return d.path
	}
}

type stdinKind int

const (
	stdinNone stdinKind = iota
	stdinPipe
	stdinFile
	stdinText
	stdinReader
)

// stdinSource is a resolved stdin
type stdinSource struct {
	kind   stdinKind
	file   *os.File
	reader io.Reader
}

func (s stdinSource) String() string {
	switch s.kind {
	case stdinPipe:
		return StreamPipe
	case stdinFile, stdinText:
		return s.file.Name()
	case stdinReader:
		if f, ok := s.reader.(*os.File); ok {
			return f.Name()
		}
		return fmt.Sprintf("%T", s.reader)
	default:
		return "None"
	}
}

// Configuration is the resolved launch configuration of one process
// Configuration 是单个进程解析后的启动配置
type Configuration struct {
	Cwd            string
	Shell          bool
	Alias          string
	OutputEncoding string
	// Env is nil when the parent environment is inherited unchanged
	// Env 为 nil 表示原样继承父进程环境
	Env []string

	encoding encoding.Encoding
	stdout   destination
	stderr   destination
	stdin    stdinSource
	platform platform
}

// NewConfiguration resolves options for the current platform. Files opened
// for redirection belong to the configuration until a process is started.
// NewConfiguration 为当前平台解析启动参数。
func NewConfiguration(opts Options) (*Configuration, error) {
	return newConfiguration(opts, currentPlatform())
}

func newConfiguration(opts Options, p platform) (_ *Configuration, err error) {
	cwd := opts.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	if cwd, err = filepath.Abs(cwd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	outputEncoding := opts.OutputEncoding
	if outputEncoding == "" {
		outputEncoding = EncodingConsole
	}
	enc, err := resolveEncoding(outputEncoding)
	if err != nil {
		return nil, err
	}

	c := &Configuration{
		Cwd:            cwd,
		Shell:          opts.Shell,
		Alias:          opts.Alias,
		OutputEncoding: outputEncoding,
		encoding:       enc,
		platform:       p,
	}
	defer func() {
		if err != nil {
			_ = c.close()
		}
	}()

	if c.stdout, err = c.newDestination(opts.Stdout); err != nil {
		return nil, err
	}
	if c.stderr, err = c.stderrDestination(opts.Stderr, opts.Stdout); err != nil {
		return nil, err
	}
	if c.stdin, err = c.stdinSource(opts); err != nil {
		return nil, err
	}
	if c.Env, err = constructEnv(opts.Env, opts.Extra, os.Environ(), p.caseInsensitiveEnv()); err != nil {
		return nil, err
	}
	return c, nil
}

// newDestination resolves a stdout/stderr name
func (c *Configuration) newDestination(name string) (destination, error) {
	switch name {
	case "", StreamPipe:
		return destination{kind: destinationPipe}, nil
	case StreamDevNull:
		f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return destination{}, fmt.Errorf("%w: opening %s: %v", ErrConfiguration, os.DevNull, err)
		}
		return destination{kind: destinationDevNull, path: os.DevNull, file: f}, nil
	}
	path := c.resolvePath(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return destination{}, fmt.Errorf("%w: cannot open output file '%s': %v", ErrConfiguration, path, err)
	}
	return destination{kind: destinationFile, path: path, file: f}, nil
}

// stderrDestination aliases stderr to stdout when requested
func (c *Configuration) stderrDestination(stderr, stdout string) (destination, error) {
	if stderr != "" && (stderr == StreamStdout || stderr == stdout) {
		if c.stdout.kind == destinationPipe {
			return destination{kind: destinationStdout}, nil
		}
		return c.stdout, nil
	}
	return c.newDestination(stderr)
}

// stdinSource classifies the stdin option
func (c *Configuration) stdinSource(opts Options) (stdinSource, error) {
	if opts.StdinReader != nil {
		return stdinSource{kind: stdinReader, reader: opts.StdinReader}, nil
	}
	value := opts.Stdin
	if value == "" || strings.EqualFold(value, StdinNone) {
		return stdinSource{kind: stdinNone}, nil
	}
	if value == StreamPipe {
		return stdinSource{kind: stdinPipe}, nil
	}

	path := c.resolvePath(value)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return stdinSource{}, fmt.Errorf("%w: cannot open stdin file '%s': %v", ErrConfiguration, path, err)
		}
		return stdinSource{kind: stdinFile, file: f}, nil
	}

	data, err := encodeInput(c.encoding, value)
	if err != nil {
		return stdinSource{}, fmt.Errorf("%w: encoding stdin with %s: %v", ErrConfiguration, c.OutputEncoding, err)
	}
	f, err := os.CreateTemp("", "procctl-stdin-*")
	if err != nil {
		return stdinSource{}, fmt.Errorf("%w: creating stdin file: %v", ErrConfiguration, err)
	}
	if _, err := f.Write(data); err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return stdinSource{}, fmt.Errorf("%w: writing stdin file: %v", ErrConfiguration, err)
	}
	return stdinSource{kind: stdinText, file: f}, nil
}

// resolvePath joins a redirect target with the working directory
func (c *Configuration) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(c.Cwd, name)
}

// Command builds the command line. Without shell mode the arguments are
// used as-is; in shell mode several arguments are joined into one quoted
// string and a single argument is handed to the shell untouched.
// Command 构建命令行。
func (c *Configuration) Command(command string, args []string) LaunchCommand {
	argv := append([]string{command}, args...)
	if !c.Shell {
		return LaunchCommand{Argv: argv}
	}
	if len(args) > 0 {
		return LaunchCommand{Line: c.platform.joinCommandLine(argv)}
	}
	return LaunchCommand{Line: command}
}

// StdoutPath returns the file stdout is redirected to, or "" for a pipe
func (c *Configuration) StdoutPath() string {
	return c.stdout.path
}

// StderrPath returns the file stderr is redirected to, or "" for a pipe
func (c *Configuration) StderrPath() string {
	return c.stderr.path
}

// ownedStreams returns the redirect files in the order stdout, stderr, stdin
// without duplicates. Passthrough readers are never owned.
func (c *Configuration) ownedStreams() []*ownedStream {
	var streams []*ownedStream
	seen := map[*os.File]bool{}
	add := func(f *os.File, remove bool) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		streams = append(streams, newOwnedStream(f, remove))
	}
	add(c.stdout.file, false)
	add(c.stderr.file, false)
	add(c.stdin.file, c.stdin.kind == stdinText)
	return streams
}

// close releases files when the process never starts
func (c *Configuration) close() error {
	streams := c.ownedStreams()
	closers := make([]io.Closer, len(streams))
	for i, s := range streams {
		closers[i] = s
	}
	return closeAll(closers...)
}

// String renders the configuration for debug logging
func (c *Configuration) String() string {
	env := "None"
	if c.Env != nil {
		env = fmt.Sprintf("%d variables", len(c.Env))
	}
	return fmt.Sprintf("cwd:      %s\nshell:    %t\nstdout:   %s\nstderr:   %s\nstdin:    %s\nalias:    %s\nencoding: %s\nenv:      %s",
		c.Cwd, c.Shell, c.stdout, c.stderr, c.stdin, orNone(c.Alias), c.OutputEncoding, env)
}

// LaunchCommand is either an argument vector or, in shell mode, one line
// LaunchCommand 为参数列表，或在 shell 模式下为单行命令
type LaunchCommand struct {
	Argv []string
	Line string
}

// String returns the command as it would be typed
func (l LaunchCommand) String() string {
	if l.Line != "" || len(l.Argv) == 0 {
		return l.Line
	}
	return currentPlatform().joinCommandLine(l.Argv)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
