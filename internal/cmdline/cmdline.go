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

// Package cmdline splits command line strings into arguments and joins
// arguments back into a single, properly quoted command line.
// cmdline 包负责命令行字符串与参数列表之间的拆分与拼接。
package cmdline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnclosedQuote is returned by Split when a quoted section never ends
// ErrUnclosedQuote 表示引号未闭合
var ErrUnclosedQuote = errors.New("no closing quotation")

// Split splits a command line into arguments using POSIX shell quoting rules.
// Single quotes preserve everything literally. When escaping is true, a
// backslash escapes the following character outside single quotes; when it
// is false backslashes are ordinary characters, which keeps Windows paths
// such as C:\temp intact.
// Split 按 POSIX shell 引号规则拆分命令行。
func Split(line string, escaping bool) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			if quote == '"' && c != '"' && c != '\\' && c != '$' && c != '`' && c != '\n' {
				current.WriteRune('\\')
			}
			if c != '\n' {
				current.WriteRune(c)
			}
			escaped = false
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case quote == '"':
			switch {
			case c == '"':
				quote = 0
			case c == '\\' && escaping:
				escaped = true
			default:
				current.WriteRune(c)
			}
		case c == '\\' && escaping:
			escaped = true
			inArg = true
		case c == '\'' || c == '"':
			quote = c
			inArg = true
		case isSpace(c):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(c)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("parsing '%s' failed: %w", line, ErrUnclosedQuote)
	}
	if escaped {
		return nil, fmt.Errorf("parsing '%s' failed: no escaped character", line)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// Join joins arguments into one command line that a POSIX shell (and Split)
// parses back into the same arguments.
// Join 将参数拼接为 POSIX shell 可正确解析的命令行。
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// Quote quotes a single argument only when needed.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if strings.IndexFunc(arg, needsQuoting) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// JoinWindows joins arguments using the MS C runtime conventions that
// CreateProcess and cmd.exe understand.
// JoinWindows 按 MS C 运行时约定拼接参数，供 Windows 使用。
func JoinWindows(args ...string) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		needQuote := arg == "" || strings.ContainsAny(arg, " \t")
		if needQuote {
			sb.WriteByte('"')
		}
		backslashes := 0
		for _, c := range arg {
			switch c {
			case '\\':
				backslashes++
			case '"':
				sb.WriteString(strings.Repeat(`\`, backslashes*2))
				sb.WriteString(`\"`)
				backslashes = 0
			default:
				sb.WriteString(strings.Repeat(`\`, backslashes))
				backslashes = 0
				sb.WriteRune(c)
			}
		}
		sb.WriteString(strings.Repeat(`\`, backslashes))
		if needQuote {
			sb.WriteString(strings.Repeat(`\`, backslashes))
			sb.WriteByte('"')
		}
	}
	return sb.String()
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func needsQuoting(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	}
	return !strings.ContainsRune("@%+=:,./-_", c)
}
