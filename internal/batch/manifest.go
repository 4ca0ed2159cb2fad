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

// Package batch runs several processes described by a YAML manifest.
// batch 包运行由 YAML 清单描述的多个进程。
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/seatunnel/procctl/internal/process"
)

// ErrInvalidManifest is returned for manifests that fail validation
// ErrInvalidManifest 表示清单校验失败
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest lists the processes to run
// Manifest 列出要运行的进程
type Manifest struct {
	Processes []Entry `yaml:"processes"`
}

// Entry describes one process of a manifest
// Entry 描述清单中的一个进程
type Entry struct {
	Alias          string            `yaml:"alias,omitempty"`
	Command        string            `yaml:"command"`
	Args           []string          `yaml:"args,omitempty"`
	Cwd            string            `yaml:"cwd,omitempty"`
	Shell          bool              `yaml:"shell,omitempty"`
	Stdout         string            `yaml:"stdout,omitempty"`
	Stderr         string            `yaml:"stderr,omitempty"`
	Stdin          string            `yaml:"stdin,omitempty"`
	OutputEncoding string            `yaml:"output_encoding,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	Extra          map[string]string `yaml:"extra,omitempty"`

	// Timeout is an interval string such as "1 minute 30 seconds"
	// Timeout 是时间间隔字符串，例如 "1 minute 30 seconds"
	Timeout   string `yaml:"timeout,omitempty"`
	OnTimeout string `yaml:"on_timeout,omitempty"`
}

// Options converts the entry to process options
// Options 将条目转换为进程选项
func (e Entry) Options() process.Options {
	return process.Options{
		Cwd:            e.Cwd,
		Shell:          e.Shell,
		Stdout:         e.Stdout,
		Stderr:         e.Stderr,
		Stdin:          e.Stdin,
		OutputEncoding: e.OutputEncoding,
		Alias:          e.Alias,
		Env:            e.Env,
		Extra:          e.Extra,
	}
}

// Name returns the alias, or the command when there is none
func (e Entry) Name() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Command
}

// Load reads a manifest file
// Load 读取清单文件
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
// Parse 解码并校验清单，拒绝未知字段。
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks commands, aliases, timeouts and timeout actions.
// All problems are reported together.
// Validate 校验命令、别名、超时和超时动作，一次性报告所有问题。
func (m *Manifest) Validate() error {
	if len(m.Processes) == 0 {
		return fmt.Errorf("%w: no processes defined", ErrInvalidManifest)
	}

	var errs error
	aliases := map[string]int{}
	for i, e := range m.Processes {
		pos := i + 1
		if strings.TrimSpace(e.Command) == "" {
			errs = multierr.Append(errs, fmt.Errorf("process %d: command is required", pos))
		}
		if e.Alias != "" {
			key := strings.ToLower(strings.Join(strings.Fields(e.Alias), ""))
			if prev, ok := aliases[key]; ok {
				errs = multierr.Append(errs, fmt.Errorf("process %d: alias '%s' already used by process %d", pos, e.Alias, prev))
			} else {
				aliases[key] = pos
			}
		}
		if _, err := process.ParseTimeout(e.Timeout); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("process %d: %w", pos, err))
		}
		if e.OnTimeout != "" {
			if _, err := process.ParseTimeoutAction(e.OnTimeout); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("process %d: %w", pos, err))
			}
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, errs)
	}
	return nil
}

// timeout returns the parsed timeout and action of an entry. Validate has
// already accepted both values.
func (e Entry) timeout(defaultAction process.TimeoutAction) (time.Duration, process.TimeoutAction) {
	d, _ := process.ParseTimeout(e.Timeout)
	if e.OnTimeout == "" {
		return d, defaultAction
	}
	action, _ := process.ParseTimeoutAction(e.OnTimeout)
	return d, action
}
