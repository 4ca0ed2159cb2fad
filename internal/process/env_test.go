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

// TestConstructEnv tests environment construction
// TestConstructEnv 测试环境变量构建
func TestConstructEnv(t *testing.T) {
	base := []string{"PATH=/bin", "HOME=/root", "=C:=C:\\"}

	tests := []struct {
		name     string
		env      map[string]string
		extra    map[string]string
		foldCase bool
		expected []string
	}{
		{
			name:     "inherit unchanged",
			expected: nil,
		},
		{
			name:     "explicit env replaces base",
			env:      map[string]string{"ONLY": "this"},
			expected: []string{"ONLY=this"},
		},
		{
			name:     "extras layered on base",
			extra:    map[string]string{"env:HOME": "/tmp", "env:NEW": "x"},
			expected: []string{"HOME=/tmp", "NEW=x", "PATH=/bin"},
		},
		{
			name:     "extras layered on explicit env",
			env:      map[string]string{"A": "1"},
			extra:    map[string]string{"env:A": "2", "env:B": "3"},
			expected: []string{"A=2", "B=3"},
		},
		{
			name:     "case folded keys",
			env:      map[string]string{"Path": "x"},
			extra:    map[string]string{"env:path": "y"},
			foldCase: true,
			expected: []string{"PATH=y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := constructEnv(tt.env, tt.extra, base, tt.foldCase)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, env)
		})
	}
}

// TestConstructEnvRejectsUnknownKeys tests extras without the env: prefix
// TestConstructEnvRejectsUnknownKeys 测试不带 env: 前缀的额外参数
func TestConstructEnvRejectsUnknownKeys(t *testing.T) {
	_, err := constructEnv(nil, map[string]string{"timeout": "1"}, nil, false)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "keyword argument 'timeout' is not supported")
}
