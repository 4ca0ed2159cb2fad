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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveEncoding tests encoding name resolution
// TestResolveEncoding 测试编码名称解析
func TestResolveEncoding(t *testing.T) {
	for _, name := range []string{"", "CONSOLE", "console", "SYSTEM", "UTF-8", "utf8", "latin-1", "ISO-8859-1", "windows-1252", "UTF-16LE", "cp1252"} {
		enc, err := resolveEncoding(name)
		require.NoError(t, err, name)
		assert.NotNil(t, enc, name)
	}

	_, err := resolveEncoding("klingon")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "unknown output encoding 'klingon'")
}

// TestDecodeOutput tests decoding raw output
// TestDecodeOutput 测试解码原始输出
func TestDecodeOutput(t *testing.T) {
	latin, err := resolveEncoding("latin-1")
	require.NoError(t, err)
	assert.Equal(t, "café", decodeOutput(latin, []byte{'c', 'a', 'f', 0xe9}))

	utf8, err := resolveEncoding(EncodingConsole)
	require.NoError(t, err)
	assert.Equal(t, "", decodeOutput(utf8, nil))
	assert.Equal(t, "café", decodeOutput(utf8, []byte("café")))
	assert.Equal(t, "a\uFFFDb", decodeOutput(utf8, []byte{'a', 0xff, 'b'}))
}

// TestNormalizeOutput tests newline normalization
// TestNormalizeOutput 测试换行符规范化
func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"hello", "hello"},
		{"hello\n", "hello"},
		{"hello\n\n", "hello\n"},
		{"a\r\nb\r\n", "a\nb"},
		{"\n", ""},
		{"a\rb", "a\rb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeOutput(tt.input), "%q", tt.input)
	}
}
