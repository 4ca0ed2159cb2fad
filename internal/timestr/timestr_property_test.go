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

package timestr

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// Property: compact ("1h2min3s") and verbose ("1 hours 2 minutes 3 seconds")
// spellings of the same interval SHALL parse to the same number of seconds.
// 属性：同一时间间隔的紧凑写法与详细写法应解析为相同秒数。
func TestProperty_CompactAndVerboseAgree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := rapid.IntRange(0, 48).Draw(t, "hours")
		m := rapid.IntRange(0, 59).Draw(t, "minutes")
		s := rapid.IntRange(0, 59).Draw(t, "seconds")

		compact, err := ParseSeconds(fmt.Sprintf("%dh%dmin%ds", h, m, s))
		if err != nil {
			t.Fatalf("compact parse failed: %v", err)
		}
		verbose, err := ParseSeconds(fmt.Sprintf("%d hours %d minutes %d seconds", h, m, s))
		if err != nil {
			t.Fatalf("verbose parse failed: %v", err)
		}
		want := float64(h*3600 + m*60 + s)
		if compact != want || verbose != want {
			t.Fatalf("got compact=%v verbose=%v, want %v", compact, verbose, want)
		}
	})
}
