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
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Registry tracks started processes by 1-based index and optional alias.
// The most recently registered or switched-to handle is the current one.
// Registry 按从 1 开始的索引和可选别名跟踪已启动的进程。
type Registry struct {
	mu      sync.RWMutex
	handles []*Handle
	aliases map[string]int
	current int
}

// NewRegistry creates an empty registry
// NewRegistry 创建一个空的注册表
func NewRegistry() *Registry {
	return &Registry{aliases: make(map[string]int)}
}

// normalizeAlias lower-cases an alias and drops all whitespace
func normalizeAlias(alias string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, alias)
}

// CheckAlias fails when alias is already bound to another handle
// CheckAlias 在别名已被占用时返回错误
func (r *Registry) CheckAlias(alias string) error {
	if alias == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.aliases[normalizeAlias(alias)]; ok {
		return fmt.Errorf("%w: '%s'", ErrDuplicateAlias, alias)
	}
	return nil
}

// Register adds a handle, assigns its index and makes it current
// Register 添加句柄、分配索引并设为当前句柄
func (r *Registry) Register(h *Handle, alias string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeAlias(alias)
	if alias != "" {
		if _, ok := r.aliases[key]; ok {
			return 0, fmt.Errorf("%w: '%s'", ErrDuplicateAlias, alias)
		}
	}
	r.handles = append(r.handles, h)
	index := len(r.handles)
	if alias != "" {
		r.aliases[key] = index
	}
	h.Index = index
	h.Alias = alias
	r.current = index
	return index, nil
}

// Get resolves a reference to a handle. An empty reference means the
// current handle. Aliases win over numeric indices.
// Get 将引用解析为句柄，空引用表示当前句柄，别名优先于数字索引。
func (r *Registry) Get(ref string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index, err := r.resolveLocked(ref)
	if err != nil {
		return nil, err
	}
	return r.handles[index-1], nil
}

func (r *Registry) resolveLocked(ref string) (int, error) {
	if ref == "" {
		if r.current == 0 {
			return 0, ErrNoActiveProcess
		}
		return r.current, nil
	}
	if index, ok := r.aliases[normalizeAlias(ref)]; ok {
		return index, nil
	}
	if index, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil && index >= 1 && index <= len(r.handles) {
		return index, nil
	}
	return 0, fmt.Errorf("%w: Non-existing index or alias '%s'.", ErrProcessNotFound, ref)
}

// Switch makes the referenced handle current
// Switch 将引用的句柄设为当前句柄
func (r *Registry) Switch(ref string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index, err := r.resolveLocked(ref)
	if err != nil {
		return nil, err
	}
	r.current = index
	return r.handles[index-1], nil
}

// Current returns the current handle
func (r *Registry) Current() (*Handle, error) {
	return r.Get("")
}

// CurrentIndex returns the index of the current handle, 0 when empty
func (r *Registry) CurrentIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// setCurrentIndex restores a previously saved current index
func (r *Registry) setCurrentIndex(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index >= 0 && index <= len(r.handles) {
		r.current = index
	}
}

// Handles returns all handles in registration order
// Handles 按注册顺序返回所有句柄
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Len returns the number of registered handles
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Reset forgets every handle. Indices start again from 1.
// Reset 清空所有句柄，索引重新从 1 开始。
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = nil
	r.aliases = make(map[string]int)
	r.current = 0
}
