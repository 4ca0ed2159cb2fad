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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
)

// DefaultDrainTimeout bounds how long pipes are drained after the process
// exited. Background children that inherited a pipe would otherwise keep it
// open forever.
// DefaultDrainTimeout 限制进程退出后读取管道的时长
const DefaultDrainTimeout = 2 * time.Second

// capture accumulates one output pipe in memory
type capture struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	reader *os.File
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *capture) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.buf.Bytes())
}

// drain copies the pipe until EOF or until the read end is closed
func (c *capture) drain() error {
	_, err := io.Copy(c, c.reader)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// ExecutionResult is the outcome of one process execution. Output is read
// lazily from the pipe or file each stream was bound to; once the result
// is finalized the values are cached.
// ExecutionResult 是一次进程执行的结果，输出按需读取，结果完成后会被缓存。
type ExecutionResult struct {
	mu sync.Mutex

	rc         int
	finished   bool
	stdoutPath string
	stderrPath string
	stdout     string
	stderr     string
	encoding   encoding.Encoding

	stdoutCapture *capture
	stderrCapture *capture
	detached      bool

	drainOnce    sync.Once
	drains       errgroup.Group
	drainTimeout time.Duration

	streams []io.Closer
	closed  bool
}

// newExecutionResult binds a result to the resolved configuration. The
// stdout/stderr readers are the parent ends of in-memory pipes, if any.
func newExecutionResult(cfg *Configuration, stdoutReader, stderrReader *os.File, stdin *pipeWriter, drainTimeout time.Duration) *ExecutionResult {
	r := &ExecutionResult{
		stdoutPath:   cfg.stdout.path,
		stderrPath:   cfg.stderr.path,
		encoding:     cfg.encoding,
		drainTimeout: drainTimeout,
	}
	if r.drainTimeout <= 0 {
		r.drainTimeout = DefaultDrainTimeout
	}
	if stdoutReader != nil {
		r.stdoutCapture = &capture{reader: stdoutReader}
		r.streams = append(r.streams, newOwnedStream(stdoutReader, false))
	}
	if stderrReader != nil {
		r.stderrCapture = &capture{reader: stderrReader}
		r.streams = append(r.streams, newOwnedStream(stderrReader, false))
	}
	if stdin != nil {
		r.streams = append(r.streams, stdin)
	}
	for _, s := range cfg.ownedStreams() {
		r.streams = append(r.streams, s)
	}
	return r
}

// ReturnCode returns the exit code and whether the process has finished.
// A process killed by a signal reports the negated signal number.
// ReturnCode 返回退出码以及进程是否已结束。
func (r *ExecutionResult) ReturnCode() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rc, r.finished
}

// Stdout returns the normalized standard output
// Stdout 返回规范化后的标准输出
func (r *ExecutionResult) Stdout() string {
	return r.output(true)
}

// Stderr returns the normalized standard error
// Stderr 返回规范化后的标准错误
func (r *ExecutionResult) Stderr() string {
	return r.output(false)
}

// StdoutPath is the file stdout was redirected to, or "" for a pipe
func (r *ExecutionResult) StdoutPath() string {
	return r.stdoutPath
}

// StderrPath is the file stderr was redirected to, or "" for a pipe
func (r *ExecutionResult) StderrPath() string {
	return r.stderrPath
}

func (r *ExecutionResult) output(stdout bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		if stdout {
			return r.stdout
		}
		return r.stderr
	}
	r.startDrainsLocked()
	if stdout {
		return r.read(r.stdoutPath, r.stdoutCapture)
	}
	return r.read(r.stderrPath, r.stderrCapture)
}

// read returns the current content of a file or pipe destination
func (r *ExecutionResult) read(path string, c *capture) string {
	var raw []byte
	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		raw = data
	case c != nil && !(c == r.stdoutCapture && r.detached):
		raw = c.bytes()
	}
	return normalizeOutput(decodeOutput(r.encoding, raw))
}

// startDrains begins copying the pipes in the background. Callers must
// hold r.mu.
func (r *ExecutionResult) startDrainsLocked() {
	r.drainOnce.Do(func() {
		if r.stdoutCapture != nil && !r.detached {
			r.drains.Go(r.stdoutCapture.drain)
		}
		if r.stderrCapture != nil {
			r.drains.Go(r.stderrCapture.drain)
		}
	})
}

func (r *ExecutionResult) startDrains() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startDrainsLocked()
}

// detachStdout hands the stdout pipe to the caller, e.g. as the stdin of
// another process. It fails once draining has begun.
func (r *ExecutionResult) detachStdout() (*os.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stdoutCapture == nil {
		return nil, fmt.Errorf("%w: stdout is not a pipe", ErrConfiguration)
	}
	if r.detached {
		return nil, fmt.Errorf("%w: stdout pipe is already detached", ErrConfiguration)
	}
	started := true
	r.drainOnce.Do(func() { started = false })
	if started {
		return nil, fmt.Errorf("%w: stdout is already being read", ErrConfiguration)
	}
	// Consuming the once above means later drains skip both pipes, so
	// stderr is started here explicitly.
	if r.stderrCapture != nil {
		r.drains.Go(r.stderrCapture.drain)
	}
	r.detached = true
	return r.stdoutCapture.reader, nil
}

// awaitDrains waits until both pipes reach EOF. When the drain timeout
// expires the read ends are closed, which unblocks the copies with the
// output read so far. Cancelling ctx returns the context error.
func (r *ExecutionResult) awaitDrains(ctx context.Context) error {
	r.startDrains()
	done := make(chan error, 1)
	go func() { done <- r.drains.Wait() }()

	timer := time.NewTimer(r.drainTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		r.closePipes()
		return <-done
	case <-ctx.Done():
		r.closePipes()
		<-done
		return ctx.Err()
	}
}

// closePipes closes the read ends of the in-memory pipes
func (r *ExecutionResult) closePipes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range []*capture{r.stdoutCapture, r.stderrCapture} {
		if c != nil && !(c == r.stdoutCapture && r.detached) {
			_ = c.reader.Close()
		}
	}
}

// finalize records the return code, caches the output and closes every
// owned stream. It runs once; later calls are no-ops.
func (r *ExecutionResult) finalize(rc int) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return nil
	}
	r.stdout = r.read(r.stdoutPath, r.stdoutCapture)
	r.stderr = r.read(r.stderrPath, r.stderrCapture)
	r.rc = rc
	r.finished = true
	r.mu.Unlock()
	return r.CloseStreams()
}

// CloseStreams closes every stream owned by the result exactly once.
// Calling it again is a no-op.
// CloseStreams 关闭结果持有的所有流，重复调用无副作用。
func (r *ExecutionResult) CloseStreams() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	streams := r.streams
	detached := r.detached
	r.mu.Unlock()

	var keep []io.Closer
	for _, s := range streams {
		// A detached stdout pipe belongs to the caller.
		if detached {
			if o, ok := s.(*ownedStream); ok && o.file == r.stdoutCapture.reader {
				continue
			}
		}
		keep = append(keep, s)
	}
	return closeAll(keep...)
}

// String renders the result like "<result rc=0>"
func (r *ExecutionResult) String() string {
	rc, finished := r.ReturnCode()
	if !finished {
		return "<result rc=None>"
	}
	return fmt.Sprintf("<result rc=%d>", rc)
}
