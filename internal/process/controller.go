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

// Package process provides process lifecycle management.
// process 包提供进程生命周期管理功能。
//
// This package provides:
// 此包提供：
// - Start, Wait, Terminate and Run methods / 启动、等待、终止和运行方法
// - Stream redirection to pipes, files or the null device / 将流重定向到管道、文件或空设备
// - Timeouts with a continue, terminate or kill policy / 带 continue、terminate 或 kill 策略的超时
// - Graceful shutdown with escalation to kill / 带升级为强制终止的优雅关闭
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seatunnel/procctl/internal/timestr"
)

// Default configuration values
// 默认配置值
const (
	// DefaultTerminateTimeout is the grace period after a graceful stop request (30 seconds)
	// DefaultTerminateTimeout 是优雅停止请求后的宽限期（30秒）
	DefaultTerminateTimeout = 30 * time.Second

	// DefaultKillTimeout is how long a killed process may take to disappear (10 seconds)
	// DefaultKillTimeout 是被强制终止的进程消失所允许的时间（10秒）
	DefaultKillTimeout = 10 * time.Second
)

const tracerName = "github.com/seatunnel/procctl/internal/process"

// TimeoutAction decides what happens when a wait times out
// TimeoutAction 决定等待超时后的处理方式
type TimeoutAction int

const (
	// TimeoutContinue leaves the process running
	// TimeoutContinue 保留进程继续运行
	TimeoutContinue TimeoutAction = iota

	// TimeoutTerminate stops the process gracefully, killing it if needed
	// TimeoutTerminate 优雅停止进程，必要时强制终止
	TimeoutTerminate

	// TimeoutKill kills the process immediately
	// TimeoutKill 立即强制终止进程
	TimeoutKill
)

func (a TimeoutAction) String() string {
	switch a {
	case TimeoutContinue:
		return "continue"
	case TimeoutTerminate:
		return "terminate"
	case TimeoutKill:
		return "kill"
	default:
		return fmt.Sprintf("TimeoutAction(%d)", int(a))
	}
}

// ParseTimeoutAction parses continue, terminate or kill in any case
// ParseTimeoutAction 解析 continue、terminate 或 kill（不区分大小写）
func ParseTimeoutAction(s string) (TimeoutAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continue":
		return TimeoutContinue, nil
	case "", "terminate":
		return TimeoutTerminate, nil
	case "kill":
		return TimeoutKill, nil
	}
	return 0, fmt.Errorf("%w: invalid on_timeout value '%s', expected continue, terminate or kill", ErrConfiguration, s)
}

// ParseTimeout parses a human readable timeout. NONE, empty, zero and
// negative values mean no timeout and are returned as 0.
// ParseTimeout 解析人类可读的超时，NONE、空、零和负值表示不超时。
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NONE") {
		return 0, nil
	}
	d, err := timestr.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Attribute selects one value of a finished result
// Attribute 选择已完成结果中的一个值
type Attribute int

const (
	AttrRC Attribute = iota
	AttrStdout
	AttrStderr
	AttrStdoutPath
	AttrStderrPath
)

// Option configures a Controller
// Option 配置 Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry shares an existing registry
func WithRegistry(registry *Registry) Option {
	return func(c *Controller) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// WithTerminateTimeout sets the grace period before escalating to kill
func WithTerminateTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.terminateTimeout = timeout
		}
	}
}

// WithKillTimeout sets how long to wait for a killed process
func WithKillTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.killTimeout = timeout
		}
	}
}

// WithDrainTimeout bounds output draining after the process exited
func WithDrainTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.drainTimeout = timeout
		}
	}
}

// WithEventHandler sets the lifecycle event callback
func WithEventHandler(handler EventHandler) Option {
	return func(c *Controller) {
		c.eventHandler = handler
	}
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithOutputEncoding sets the encoding used when Options leaves it empty
func WithOutputEncoding(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.outputEncoding = name
		}
	}
}

// Controller starts, waits for and stops processes tracked in a Registry
// Controller 启动、等待并停止注册表中跟踪的进程
type Controller struct {
	// mu serializes registration and terminate-all
	// mu 串行化注册和全部终止操作
	mu sync.Mutex

	registry *Registry
	logger   *zap.Logger
	tracer   trace.Tracer
	platform platform

	terminateTimeout time.Duration
	killTimeout      time.Duration
	drainTimeout     time.Duration
	outputEncoding   string

	eventHandler EventHandler
}

// NewController creates a new Controller instance
// NewController 创建一个新的 Controller 实例
func NewController(opts ...Option) *Controller {
	c := &Controller{
		registry:         NewRegistry(),
		logger:           zap.NewNop(),
		tracer:           otel.Tracer(tracerName),
		platform:         currentPlatform(),
		terminateTimeout: DefaultTerminateTimeout,
		killTimeout:      DefaultKillTimeout,
		drainTimeout:     DefaultDrainTimeout,
		outputEncoding:   EncodingConsole,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry of tracked processes
func (c *Controller) Registry() *Registry {
	return c.registry
}

// notifyEvent notifies the event handler of a process event
// notifyEvent 通知事件处理程序进程事件
func (c *Controller) notifyEvent(event Event, h *Handle, timeout time.Duration) {
	if c.eventHandler == nil {
		return
	}
	info := h.eventInfo()
	info.Timeout = timeout
	c.eventHandler(event, info)
}

func (c *Controller) handleLogger(h *Handle) *zap.Logger {
	fields := []zap.Field{zap.Int("index", h.Index), zap.Int("pid", h.PID())}
	if h.Alias != "" {
		fields = append(fields, zap.String("alias", h.Alias))
	}
	return c.logger.With(fields...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Start spawns a process in its own process group, registers it as the
// current process and returns its handle. It does not wait for the
// process.
// Start 在独立进程组中创建进程，将其注册为当前进程并返回句柄，不会等待进程结束。
func (c *Controller) Start(ctx context.Context, command string, args []string, opts Options) (_ *Handle, err error) {
	_, span := c.tracer.Start(ctx, "process.start", trace.WithAttributes(
		attribute.String("process.command", command),
		attribute.String("process.alias", opts.Alias),
		attribute.String("process.platform", c.platform.name()),
	))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.CheckAlias(opts.Alias); err != nil {
		return nil, err
	}
	if opts.OutputEncoding == "" {
		opts.OutputEncoding = c.outputEncoding
	}
	cfg, err := newConfiguration(opts, c.platform)
	if err != nil {
		return nil, err
	}

	launch := cfg.Command(command, args)
	c.logger.Info("Starting process", zap.String("command", launch.String()), zap.String("platform", c.platform.name()))
	c.logger.Debug("Process configuration:\n" + cfg.String())

	h, err := c.spawn(cfg, launch)
	if err != nil {
		return nil, err
	}
	if _, err := c.registry.Register(h, opts.Alias); err != nil {
		// CheckAlias ran under c.mu, only a registry shared with another
		// controller can get here.
		_ = c.platform.kill(h.cmd.Process)
		<-h.done
		_ = h.result.CloseStreams()
		return nil, err
	}

	span.SetAttributes(attribute.Int("process.pid", h.PID()), attribute.Int("process.index", h.Index))
	c.handleLogger(h).Debug("Process started")
	c.notifyEvent(EventStarted, h, 0)
	return h, nil
}

// spawn wires the streams and starts the OS process
func (c *Controller) spawn(cfg *Configuration, launch LaunchCommand) (_ *Handle, err error) {
	cmd := c.platform.command(launch)
	cmd.Dir = cfg.Cwd
	cmd.Env = cfg.Env
	cmd.WaitDelay = c.drainTimeout
	c.platform.prepare(cmd)

	var (
		childEnds   []*os.File
		parentEnds  []*os.File
		stdoutRead  *os.File
		stderrRead  *os.File
		stdinWriter *pipeWriter
	)
	defer func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
		if err != nil {
			for _, f := range parentEnds {
				_ = f.Close()
			}
			_ = cfg.close()
		}
	}()
	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: creating pipe: %v", ErrStartFailed, err)
		}
		return r, w, nil
	}

	var stdoutWrite *os.File
	switch cfg.stdout.kind {
	case destinationPipe:
		r, w, err := pipe()
		if err != nil {
			return nil, err
		}
		stdoutRead, stdoutWrite = r, w
		parentEnds = append(parentEnds, r)
		childEnds = append(childEnds, w)
		cmd.Stdout = w
	default:
		cmd.Stdout = cfg.stdout.file
	}

	switch cfg.stderr.kind {
	case destinationStdout:
		cmd.Stderr = stdoutWrite
	case destinationPipe:
		r, w, err := pipe()
		if err != nil {
			return nil, err
		}
		stderrRead = r
		parentEnds = append(parentEnds, r)
		childEnds = append(childEnds, w)
		cmd.Stderr = w
	default:
		cmd.Stderr = cfg.stderr.file
	}

	switch cfg.stdin.kind {
	case stdinPipe:
		r, w, err := pipe()
		if err != nil {
			return nil, err
		}
		parentEnds = append(parentEnds, w)
		childEnds = append(childEnds, r)
		cmd.Stdin = r
		stdinWriter = newPipeWriter(w)
	case stdinFile, stdinText:
		cmd.Stdin = cfg.stdin.file
	case stdinReader:
		cmd.Stdin = cfg.stdin.reader
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	h := &Handle{
		ID:        uuid.NewString(),
		Command:   launch.String(),
		StartedAt: time.Now(),
		cmd:       cmd,
		config:    cfg,
		stdin:     stdinWriter,
		done:      make(chan struct{}),
	}
	h.result = newExecutionResult(cfg, stdoutRead, stderrRead, stdinWriter, c.drainTimeout)
	go h.reap()
	return h, nil
}

// Wait waits for the process to complete. A positive timeout bounds the
// wait; when it expires the action decides whether the process is left
// running (nil result), terminated or killed. Cancelling ctx kills the
// process group and returns an error matching ErrWaitCancelled.
// Wait 等待进程结束，超时后根据 action 决定保留、终止或强制终止进程。
func (c *Controller) Wait(ctx context.Context, ref string, timeout time.Duration, action TimeoutAction) (*ExecutionResult, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return nil, err
	}
	return c.wait(ctx, h, timeout, action)
}

// WaitHandle is Wait for a handle returned by Start
// WaitHandle 等待由 Start 返回的句柄
func (c *Controller) WaitHandle(ctx context.Context, h *Handle, timeout time.Duration, action TimeoutAction) (*ExecutionResult, error) {
	return c.wait(ctx, h, timeout, action)
}

func (c *Controller) wait(ctx context.Context, h *Handle, timeout time.Duration, action TimeoutAction) (_ *ExecutionResult, err error) {
	ctx, span := c.tracer.Start(ctx, "process.wait", trace.WithAttributes(
		attribute.Int("process.index", h.Index),
		attribute.Int("process.pid", h.PID()),
		attribute.String("process.timeout", timeout.String()),
		attribute.String("process.on_timeout", action.String()),
	))
	defer func() { endSpan(span, err) }()

	log := c.handleLogger(h)
	log.Info("Waiting for process to complete.")
	// A child blocks on a full pipe, read while waiting.
	h.result.startDrains()
	exited, err := c.waitExit(ctx, h, timeout)
	if err != nil {
		return nil, c.cancel(h, err)
	}
	if exited {
		return c.finish(ctx, h, EventCompleted)
	}

	log.Info(fmt.Sprintf("Process did not complete in %s.", timestr.Format(timeout)))
	c.notifyEvent(EventTimedOut, h, timeout)
	switch action {
	case TimeoutTerminate:
		return c.terminate(ctx, h, false)
	case TimeoutKill:
		return c.terminate(ctx, h, true)
	default:
		log.Info("Leaving process intact.")
		return nil, nil
	}
}

// waitExit blocks until the process exits, the timeout expires or ctx is
// done. A non-positive timeout waits forever.
func (c *Controller) waitExit(ctx context.Context, h *Handle, timeout time.Duration) (bool, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-h.done:
		return true, nil
	case <-expired:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// cancel kills the process group before the cancellation propagates.
// Partial output is discarded and the result stays unfinished.
func (c *Controller) cancel(h *Handle, cause error) error {
	log := c.handleLogger(h)
	log.Info("Timeout exceeded.")
	if h.Running() {
		if err := c.platform.kill(h.cmd.Process); err != nil {
			log.Warn("Killing process after cancellation failed", zap.Error(err))
		}
		timer := time.NewTimer(c.killTimeout)
		defer timer.Stop()
		select {
		case <-h.done:
		case <-timer.C:
			log.Warn("Process still running after kill")
		}
	}
	h.result.closePipes()
	return cancelled(cause)
}

// finish drains the output and finalizes the result of an exited process
func (c *Controller) finish(ctx context.Context, h *Handle, event Event) (*ExecutionResult, error) {
	if _, finished := h.result.ReturnCode(); finished {
		return h.result, nil
	}
	log := c.handleLogger(h)
	if err := h.result.awaitDrains(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, c.cancel(h, ctxErr)
		}
		log.Warn("Reading process output failed", zap.Error(err))
	}
	rc := h.exitCode(c.platform)
	if err := h.result.finalize(rc); err != nil {
		log.Warn("Closing process streams failed", zap.Error(err))
	}
	log.Info("Process completed.", zap.Int("rc", rc))
	c.notifyEvent(event, h, 0)
	return h.result, nil
}

// Terminate stops the process and returns its result. By default the
// process group is asked to stop gracefully and killed if it is still
// running after the terminate timeout. With kill the graceful attempt is
// skipped.
// Terminate 停止进程并返回结果，默认先优雅停止，超时后强制终止。
func (c *Controller) Terminate(ctx context.Context, ref string, kill bool) (*ExecutionResult, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return nil, err
	}
	return c.terminate(ctx, h, kill)
}

func (c *Controller) terminate(ctx context.Context, h *Handle, kill bool) (_ *ExecutionResult, err error) {
	ctx, span := c.tracer.Start(ctx, "process.terminate", trace.WithAttributes(
		attribute.Int("process.index", h.Index),
		attribute.Int("process.pid", h.PID()),
		attribute.Bool("process.kill", kill),
	))
	defer func() { endSpan(span, err) }()

	if !h.Running() {
		return c.finish(ctx, h, EventCompleted)
	}
	// Keep the pipes flowing so a chatty process can react to signals.
	h.result.startDrains()

	log := c.handleLogger(h)
	if !kill {
		log.Info("Gracefully terminating process.")
		stopped, err := c.signalAndWait(ctx, h, c.platform.terminate, c.terminateTimeout)
		if err != nil {
			return nil, err
		}
		if stopped {
			return c.finish(ctx, h, EventTerminated)
		}
		log.Info("Graceful termination failed.")
	}

	log.Info("Forcefully killing process.")
	stopped, err := c.signalAndWait(ctx, h, c.platform.kill, c.killTimeout)
	if err != nil {
		return nil, err
	}
	if !stopped {
		return nil, fmt.Errorf("%w: pid %d still running after %s", ErrKillFailed, h.PID(), timestr.Format(c.killTimeout))
	}
	return c.finish(ctx, h, EventKilled)
}

// signalAndWait delivers a stop signal and waits for the process to exit.
// A delivery error is ignored when the process still stops within the
// kill timeout.
func (c *Controller) signalAndWait(ctx context.Context, h *Handle, send func(*os.Process) error, timeout time.Duration) (bool, error) {
	if sendErr := send(h.cmd.Process); sendErr != nil {
		stopped, err := c.waitExit(ctx, h, c.killTimeout)
		if err != nil {
			return false, c.cancel(h, err)
		}
		if !stopped {
			return false, sendErr
		}
		c.handleLogger(h).Debug("Ignored signal error because process was stopped.", zap.NamedError("signal_error", sendErr))
		return true, nil
	}
	stopped, err := c.waitExit(ctx, h, timeout)
	if err != nil {
		return false, c.cancel(h, err)
	}
	return stopped, nil
}

// TerminateAll terminates every running process and resets the registry.
// Errors are aggregated; the registry is reset even when some fail.
// TerminateAll 终止所有正在运行的进程并重置注册表。
func (c *Controller) TerminateAll(ctx context.Context, kill bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.registry.Reset()

	var errs error
	for _, h := range c.registry.Handles() {
		var err error
		if h.Running() {
			_, err = c.terminate(ctx, h, kill)
		} else {
			_, err = c.finish(ctx, h, EventCompleted)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("process %s: %w", h, err))
		}
	}
	return errs
}

// SendSignal sends a signal to the process, or to its whole process group
// when group is true. Signals are given by name (TERM, SIGTERM) or number.
// SendSignal 向进程或其整个进程组发送信号。
func (c *Controller) SendSignal(ref string, sig string, group bool) error {
	h, err := c.registry.Get(ref)
	if err != nil {
		return err
	}
	signum, err := c.platform.parseSignal(sig)
	if err != nil {
		return err
	}
	c.handleLogger(h).Info(fmt.Sprintf("Sending signal %s (%d).", c.platform.signalName(signum), int(signum)),
		zap.Bool("group", group))
	return c.platform.signal(h.cmd.Process, signum, group)
}

// Result returns the finalized result of a finished process
// Result 返回已结束进程的最终结果
func (c *Controller) Result(ref string) (*ExecutionResult, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return nil, err
	}
	if _, finished := h.result.ReturnCode(); !finished {
		return nil, ErrNotFinished
	}
	return h.result, nil
}

// ResultAttributes returns selected values of a finished result. Values
// are returned in the order rc, stdout, stderr, stdout path, stderr path
// regardless of the order they were requested in.
// ResultAttributes 按固定顺序返回已完成结果的指定属性。
func (c *Controller) ResultAttributes(ref string, attrs ...Attribute) ([]any, error) {
	result, err := c.Result(ref)
	if err != nil {
		return nil, err
	}
	wanted := map[Attribute]bool{}
	for _, a := range attrs {
		wanted[a] = true
	}
	rc, _ := result.ReturnCode()
	ordered := []struct {
		attr  Attribute
		value func() any
	}{
		{AttrRC, func() any { return rc }},
		{AttrStdout, func() any { return result.Stdout() }},
		{AttrStderr, func() any { return result.Stderr() }},
		{AttrStdoutPath, func() any { return result.StdoutPath() }},
		{AttrStderrPath, func() any { return result.StderrPath() }},
	}
	var values []any
	for _, o := range ordered {
		if wanted[o.attr] {
			values = append(values, o.value())
		}
	}
	return values, nil
}

// Switch makes the referenced process current
// Switch 将引用的进程设为当前进程
func (c *Controller) Switch(ref string) (*Handle, error) {
	return c.registry.Switch(ref)
}

// Handle resolves a reference to a handle
func (c *Controller) Handle(ref string) (*Handle, error) {
	return c.registry.Get(ref)
}

// IsRunning checks if a process is running
// IsRunning 检查进程是否正在运行
func (c *Controller) IsRunning(ref string) (bool, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return false, err
	}
	return h.Running(), nil
}

// PID returns the OS process ID
func (c *Controller) PID(ref string) (int, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return 0, err
	}
	return h.PID(), nil
}

// Process returns the underlying OS process
func (c *Controller) Process(ref string) (*os.Process, error) {
	h, err := c.registry.Get(ref)
	if err != nil {
		return nil, err
	}
	return h.Process(), nil
}

// Run starts a process and waits for it. The current process is restored
// afterwards, also when the run fails. When there was none, there is none
// after the run either.
// Run 启动进程并等待其结束，之后恢复之前的当前进程（包括无当前进程的情况）。
func (c *Controller) Run(ctx context.Context, command string, args []string, opts Options, timeout time.Duration, action TimeoutAction) (*ExecutionResult, error) {
	defer c.registry.setCurrentIndex(c.registry.CurrentIndex())

	h, err := c.Start(ctx, command, args, opts)
	if err != nil {
		return nil, err
	}
	return c.wait(ctx, h, timeout, action)
}
