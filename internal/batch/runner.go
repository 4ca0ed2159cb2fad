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

package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seatunnel/procctl/internal/process"
)

// Outcome is the result of one manifest entry
// Outcome 是清单中一个条目的执行结果
type Outcome struct {
	Name       string `json:"name" yaml:"name"`
	Index      int    `json:"index" yaml:"index"`
	PID        int    `json:"pid" yaml:"pid"`
	ReturnCode int    `json:"rc" yaml:"rc"`
	Finished   bool   `json:"finished" yaml:"finished"`
	TimedOut   bool   `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	Stdout     string `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`

	handle *process.Handle
}

// Runner runs manifests on a controller
// Runner 在控制器上运行清单
type Runner struct {
	controller    *process.Controller
	defaultAction process.TimeoutAction
	log           *zap.Logger
}

// NewRunner creates a runner. defaultAction applies to entries without
// on_timeout.
// NewRunner 创建运行器，defaultAction 用于未设置 on_timeout 的条目。
func NewRunner(controller *process.Controller, defaultAction process.TimeoutAction, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{controller: controller, defaultAction: defaultAction, log: log}
}

// Run starts every entry in order, then waits for each in order with its
// own timeout. Processes still running at the end are terminated. When a
// start fails, the processes already started are terminated and no
// further entries are started.
// Run 按顺序启动所有条目，再按顺序等待。结束时仍在运行的进程会被终止。
func (r *Runner) Run(ctx context.Context, m *Manifest) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(m.Processes))
	var errs error

	for _, e := range m.Processes {
		o := &Outcome{Name: e.Name()}
		outcomes = append(outcomes, o)
		h, err := r.controller.Start(ctx, e.Command, e.Args, e.Options())
		if err != nil {
			o.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("start %s: %w", o.Name, err))
			break
		}
		o.handle = h
		o.Index = h.Index
		o.PID = h.PID()
		r.log.Info("Batch process started", zap.String("name", o.Name), zap.Int("index", h.Index), zap.Int("pid", o.PID))
	}

	if errs == nil {
		for i, e := range m.Processes {
			o := outcomes[i]
			timeout, action := e.timeout(r.defaultAction)
			started := time.Now()
			result, err := r.controller.WaitHandle(ctx, o.handle, timeout, action)
			if err != nil {
				o.Error = err.Error()
				errs = multierr.Append(errs, fmt.Errorf("wait %s: %w", o.Name, err))
				continue
			}
			if result == nil {
				o.TimedOut = true
				r.log.Warn("Batch process left running after timeout", zap.String("name", o.Name))
				continue
			}
			o.TimedOut = timeout > 0 && time.Since(started) >= timeout
			o.fill(result)
		}
	}

	if err := r.controller.TerminateAll(ctx, false); err != nil {
		errs = multierr.Append(errs, err)
	}
	for _, o := range outcomes {
		if o.handle != nil && !o.Finished {
			o.fill(o.handle.Result())
		}
	}
	return outcomes, errs
}

func (o *Outcome) fill(result *process.ExecutionResult) {
	rc, finished := result.ReturnCode()
	if !finished {
		return
	}
	o.ReturnCode = rc
	o.Finished = true
	o.Stdout = result.Stdout()
	o.Stderr = result.Stderr()
}
