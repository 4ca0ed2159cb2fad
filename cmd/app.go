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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seatunnel/procctl/internal/config"
	"github.com/seatunnel/procctl/internal/history"
	"github.com/seatunnel/procctl/internal/logger"
	"github.com/seatunnel/procctl/internal/process"
	"github.com/seatunnel/procctl/internal/telemetry"
)

// shutdownTimeout bounds flushing history and exporting spans on exit
const shutdownTimeout = 5 * time.Second

// app wires configuration, logging, tracing and history into a controller
// app 将配置、日志、追踪和执行历史组装到控制器中
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	telemetry  *telemetry.Provider
	store      *history.Store
	reporter   *history.Reporter
	controller *process.Controller
}

// newApp loads the configuration and builds all components
// newApp 加载配置并构建所有组件
func newApp(cmd *cobra.Command, flags *globalFlags) (_ *app, err error) {
	cfg, err := config.Load(flags.configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.telemetry = telemetry.Init(cmd.Context(), cfg.Telemetry, log)

	opts := []process.Option{
		process.WithLogger(log),
		process.WithTracer(a.telemetry.Tracer()),
		process.WithTerminateTimeout(cfg.Process.TerminateTimeout),
		process.WithKillTimeout(cfg.Process.KillTimeout),
		process.WithDrainTimeout(cfg.Process.DrainTimeout),
		process.WithOutputEncoding(cfg.Process.OutputEncoding),
	}

	if cfg.History.Enabled {
		a.store, err = history.Open(cfg.History.Path, log)
		if err != nil {
			return nil, err
		}
		a.reporter = history.NewReporter(a.store.Save, log)
		a.reporter.SetBatchSize(cfg.History.BatchSize)
		a.reporter.SetFlushInterval(cfg.History.FlushInterval)
		a.reporter.Start()
		opts = append(opts, process.WithEventHandler(a.reporter.HandleEvent))
	}

	a.controller = process.NewController(opts...)
	return a, nil
}

// defaultAction returns the configured on_timeout action
func (a *app) defaultAction() (process.TimeoutAction, error) {
	return process.ParseTimeoutAction(a.cfg.Process.OnTimeout)
}

// close flushes history, shuts tracing down and syncs the logger
// close 刷新执行历史、关闭追踪并同步日志
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if a.reporter != nil {
		errs = multierr.Append(errs, a.reporter.Stop(ctx))
	}
	if a.store != nil {
		errs = multierr.Append(errs, a.store.Close())
	}
	if a.telemetry != nil {
		errs = multierr.Append(errs, a.telemetry.Shutdown(ctx))
	}
	// Sync fails on terminals, ignore it / 终端上 Sync 会失败，忽略
	_ = a.log.Sync()
	return errs
}
