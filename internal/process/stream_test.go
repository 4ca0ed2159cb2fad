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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOwnedStreamCloseTwice tests that closing twice is a no-op
// TestOwnedStreamCloseTwice 测试重复关闭无副作用
func TestOwnedStreamCloseTwice(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)

	s := newOwnedStream(f, false)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.FileExists(t, f.Name())
}

// TestOwnedStreamRemovesTemporaryFile tests removal of temporary stdin files
// TestOwnedStreamRemovesTemporaryFile 测试删除临时 stdin 文件
func TestOwnedStreamRemovesTemporaryFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin-*")
	require.NoError(t, err)

	// Already closed elsewhere / 已在别处关闭
	require.NoError(t, f.Close())

	s := newOwnedStream(f, true)
	assert.NoError(t, s.Close())
	assert.NoFileExists(t, f.Name())
}

// TestPipeWriter tests writes before and after close
// TestPipeWriter 测试关闭前后的写入
func TestPipeWriter(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	pw := newPipeWriter(w)
	n, err := pw.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, pw.Close())
	assert.NoError(t, pw.Close())

	_, err = pw.Write([]byte("again"))
	assert.ErrorIs(t, err, os.ErrClosed)

	buf := make([]byte, 8)
	n, _ = r.Read(buf)
	assert.Equal(t, "hi", string(buf[:n]))
}

// TestCloseAll tests error aggregation and nil closers
// TestCloseAll 测试错误聚合与空关闭器
func TestCloseAll(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "a"))
	require.NoError(t, err)
	assert.NoError(t, closeAll(nil, newOwnedStream(f, false)))
}
