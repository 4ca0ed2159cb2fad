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
	"sort"
	"strings"
)

// EnvPrefix marks extra options that override single environment variables
// EnvPrefix 标记用于覆盖单个环境变量的额外选项
const EnvPrefix = "env:"

// constructEnv builds the child environment.
//
// An explicit env replaces the inherited environment entirely. Extra
// entries must be named "env:NAME" and are layered on top of either the
// explicit or the inherited (base) environment. A nil result means the
// child inherits the parent's environment unchanged. With foldCase the keys
// are matched case-insensitively and upper-cased after merging.
// constructEnv 构建子进程环境变量。
func constructEnv(env, extra map[string]string, base []string, foldCase bool) ([]string, error) {
	for name := range extra {
		if !strings.HasPrefix(name, EnvPrefix) {
			return nil, fmt.Errorf("%w: keyword argument '%s' is not supported", ErrConfiguration, name)
		}
	}

	var initial map[string]string
	switch {
	case len(env) > 0:
		initial = env
	case len(extra) > 0:
		initial = parseEnviron(base)
	default:
		return nil, nil
	}

	key := func(k string) string {
		if foldCase {
			return strings.ToUpper(k)
		}
		return k
	}

	merged := make(map[string]string, len(initial)+len(extra))
	for k, v := range initial {
		merged[key(k)] = v
	}
	// Deterministic order when several extras fold to the same key.
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		merged[key(strings.TrimPrefix(name, EnvPrefix))] = extra[name]
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result, nil
}

// parseEnviron converts os.Environ style "KEY=value" entries to a map
func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			// Windows keeps per-drive cwd entries like "=C:=C:\\"
			continue
		}
		env[k] = v
	}
	return env
}
