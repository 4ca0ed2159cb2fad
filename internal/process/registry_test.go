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

// TestRegistryEmpty tests lookups on an empty registry
// TestRegistryEmpty 测试空注册表的查找
func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoActiveProcess)

	_, err = r.Get("1")
	assert.ErrorIs(t, err, ErrProcessNotFound)
	assert.Contains(t, err.Error(), "Non-existing index or alias '1'.")
	assert.Equal(t, 0, r.CurrentIndex())
}

// TestRegistryIndexAndAlias tests registration order and alias lookups
// TestRegistryIndexAndAlias 测试注册顺序和别名查找
func TestRegistryIndexAndAlias(t *testing.T) {
	r := NewRegistry()
	first, second := &Handle{}, &Handle{}

	index, err := r.Register(first, "My Job")
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	index, err = r.Register(second, "")
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	// The last registered handle is current / 最后注册的句柄为当前句柄
	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, second, current)

	for _, ref := range []string{"My Job", "myjob", "MY  JOB", "1"} {
		h, err := r.Get(ref)
		require.NoError(t, err, ref)
		assert.Same(t, first, h, ref)
	}
	assert.Equal(t, "My Job", first.Alias)
	assert.Equal(t, 1, first.Index)

	for _, ref := range []string{"0", "3", "-1", "other"} {
		_, err := r.Get(ref)
		assert.ErrorIs(t, err, ErrProcessNotFound, ref)
	}
}

// TestRegistryAliasWinsOverIndex tests that a numeric alias shadows the index
// TestRegistryAliasWinsOverIndex 测试数字别名优先于索引
func TestRegistryAliasWinsOverIndex(t *testing.T) {
	r := NewRegistry()
	first, second := &Handle{}, &Handle{}
	_, err := r.Register(first, "2")
	require.NoError(t, err)
	_, err = r.Register(second, "")
	require.NoError(t, err)

	h, err := r.Get("2")
	require.NoError(t, err)
	assert.Same(t, first, h)
}

// TestRegistryDuplicateAlias tests alias uniqueness
// TestRegistryDuplicateAlias 测试别名唯一性
func TestRegistryDuplicateAlias(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(&Handle{}, "server")
	require.NoError(t, err)

	assert.ErrorIs(t, r.CheckAlias("Ser ver"), ErrDuplicateAlias)
	assert.ErrorIs(t, r.CheckAlias("SERVER"), ErrConfiguration)
	assert.NoError(t, r.CheckAlias("client"))
	assert.NoError(t, r.CheckAlias(""))

	_, err = r.Register(&Handle{}, "SERVER")
	assert.ErrorIs(t, err, ErrDuplicateAlias)
	assert.Equal(t, 1, r.Len())
}

// TestRegistrySwitchAndReset tests switching the current handle and resetting
// TestRegistrySwitchAndReset 测试切换当前句柄和重置
func TestRegistrySwitchAndReset(t *testing.T) {
	r := NewRegistry()
	first, second := &Handle{}, &Handle{}
	_, _ = r.Register(first, "a")
	_, _ = r.Register(second, "b")

	h, err := r.Switch("a")
	require.NoError(t, err)
	assert.Same(t, first, h)
	assert.Equal(t, 1, r.CurrentIndex())

	_, err = r.Switch("missing")
	assert.ErrorIs(t, err, ErrProcessNotFound)
	assert.Equal(t, 1, r.CurrentIndex())

	r.setCurrentIndex(2)
	assert.Equal(t, 2, r.CurrentIndex())
	r.setCurrentIndex(5)
	assert.Equal(t, 2, r.CurrentIndex())

	assert.Equal(t, []*Handle{first, second}, r.Handles())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoActiveProcess)

	// Indices and aliases start over / 索引和别名重新开始
	index, err := r.Register(&Handle{}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, index)
}
