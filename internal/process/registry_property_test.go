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
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genAliases 生成随机的别名列表，空字符串表示无别名
func genAliases() gopter.Gen {
	return gen.SliceOf(gen.OneGenOf(
		gen.Const(""),
		gen.Identifier(),
	))
}

// Property: For any sequence of registrations, every handle is reachable by
// its 1-based index, every accepted alias resolves case and space
// insensitively to its handle, and an alias is accepted only once.
// 属性：任意注册序列中，每个句柄都能通过从 1 开始的索引访问，别名查找不区分大小写和空白，且同一别名只能注册一次。
func TestProperty_RegistryIndexing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("handles resolve by index and normalized alias", prop.ForAll(
		func(aliases []string) bool {
			r := NewRegistry()
			seen := map[string]bool{}
			var registered []*Handle
			var accepted []string
			for _, alias := range aliases {
				h := &Handle{}
				_, err := r.Register(h, alias)
				key := normalizeAlias(alias)
				if alias != "" && seen[key] {
					if err == nil {
						return false
					}
					continue
				}
				if err != nil {
					return false
				}
				seen[key] = alias != ""
				registered = append(registered, h)
				accepted = append(accepted, alias)
			}

			if r.Len() != len(registered) {
				return false
			}
			for i, h := range registered {
				alias := accepted[i]
				if alias != "" {
					variant := " " + strings.ToUpper(alias) + " "
					got, err := r.Get(variant)
					if err != nil || got != h {
						return false
					}
					continue
				}
				// Only check indices that no alias shadows / 只检查未被别名遮蔽的索引
				if seen[strconv.Itoa(i+1)] {
					continue
				}
				got, err := r.Get(strconv.Itoa(i + 1))
				if err != nil || got != h || h.Index != i+1 {
					return false
				}
			}
			if len(registered) > 0 && r.CurrentIndex() != len(registered) {
				return false
			}
			_, err := r.Get(fmt.Sprint(len(registered) + 1))
			return err != nil || seen[strconv.Itoa(len(registered)+1)]
		},
		genAliases(),
	))

	properties.TestingRun(t)
}
