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
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/multierr"
)

// ownedStream wraps a file owned by one execution result. Close is
// idempotent: the first call closes (and, for temporary stdin files,
// removes) the file, later calls are no-ops.
// ownedStream 包装归属于某个执行结果的文件，Close 可重复调用。
type ownedStream struct {
	file   *os.File
	remove bool
	once   sync.Once
}

func newOwnedStream(f *os.File, remove bool) *ownedStream {
	return &ownedStream{file: f, remove: remove}
}

// Close closes the underlying file once
func (s *ownedStream) Close() error {
	var err error
	s.once.Do(func() {
		if cerr := s.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			err = cerr
		}
		if s.remove {
			if rerr := os.Remove(s.file.Name()); rerr != nil && !os.IsNotExist(rerr) {
				err = multierr.Append(err, rerr)
			}
		}
	})
	return err
}

// pipeWriter is the parent's end of a stdin pipe. Callers may close it to
// signal EOF; the result closes it again during finalization without error.
// pipeWriter 是 stdin 管道的父进程端。
type pipeWriter struct {
	*ownedStream
	mu     sync.Mutex
	closed bool
}

func newPipeWriter(f *os.File) *pipeWriter {
	return &pipeWriter{ownedStream: newOwnedStream(f, false)}
}

// Write writes to the child's stdin
func (w *pipeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return 0, os.ErrClosed
	}
	return w.file.Write(p)
}

// Close closes the child's stdin
func (w *pipeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.ownedStream.Close()
}

var _ io.WriteCloser = (*pipeWriter)(nil)

// closeAll closes every closer and aggregates the errors
func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close())
	}
	return err
}
