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

// Package timestr converts human readable interval strings such as
// "1 minute 30 seconds", "42", "1h2min3s" or "01:02:03" into durations.
// timestr 包将人类可读的时间间隔字符串转换为时长。
package timestr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is returned when a string cannot be parsed
// ErrInvalidInterval 表示无法解析的时间字符串
var ErrInvalidInterval = errors.New("invalid time string")

var unitSeconds = map[string]float64{
	"w": 7 * 86400, "week": 7 * 86400, "weeks": 7 * 86400,
	"d": 86400, "day": 86400, "days": 86400,
	"h": 3600, "hour": 3600, "hours": 3600,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"ms": 1e-3, "millis": 1e-3, "millisecond": 1e-3, "milliseconds": 1e-3,
	"us": 1e-6, "μs": 1e-6, "micros": 1e-6, "microsecond": 1e-6, "microseconds": 1e-6,
	"ns": 1e-9, "nanos": 1e-9, "nanosecond": 1e-9, "nanoseconds": 1e-9,
}

var (
	componentPattern = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)([a-zμ]+)`)
	timerPattern     = regexp.MustCompile(`^(?:(\d+):)?(\d+):(\d+(?:\.\d+)?)$`)
)

// ParseSeconds parses an interval string into a number of seconds.
// ParseSeconds 将时间字符串解析为秒数。
func ParseSeconds(value string) (float64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidInterval, value)
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return secs, nil
	}

	sign := 1.0
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	if m := timerPattern.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.ParseFloat(orZero(m[1]), 64)
		minutes, _ := strconv.ParseFloat(m[2], 64)
		seconds, _ := strconv.ParseFloat(m[3], 64)
		return sign * (hours*3600 + minutes*60 + seconds), nil
	}

	if s == "" {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidInterval, value)
	}
	total := 0.0
	for s != "" {
		m := componentPattern.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("%w: '%s'", ErrInvalidInterval, value)
		}
		factor, ok := unitSeconds[m[2]]
		if !ok {
			return 0, fmt.Errorf("%w: '%s' (unknown unit '%s')", ErrInvalidInterval, value, m[2])
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: '%s'", ErrInvalidInterval, value)
		}
		total += n * factor
		s = s[len(m[0]):]
	}
	return sign * total, nil
}

// Parse parses an interval string into a time.Duration.
// Parse 将时间字符串解析为 time.Duration。
func Parse(value string) (time.Duration, error) {
	secs, err := ParseSeconds(value)
	if err != nil {
		return 0, err
	}
	return FromSeconds(secs), nil
}

// FromSeconds converts floating point seconds to a Duration, rounded to
// the nearest nanosecond.
func FromSeconds(secs float64) time.Duration {
	return time.Duration(math.Round(secs * float64(time.Second)))
}

// Format renders a duration in the verbose form used in log messages,
// e.g. "1 minute 30 seconds" or "500 milliseconds".
// Format 以日志中使用的详细格式输出时长。
func Format(d time.Duration) string {
	if d == 0 {
		return "0 seconds"
	}
	var parts []string
	prefix := ""
	if d < 0 {
		prefix = "- "
		d = -d
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{24 * time.Hour, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
		{time.Millisecond, "millisecond"},
	}
	for _, u := range units {
		if n := d / u.size; n > 0 {
			name := u.name
			if n != 1 {
				name += "s"
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
			d -= n * u.size
		}
	}
	if len(parts) == 0 {
		return prefix + d.String()
	}
	return prefix + strings.Join(parts, " ")
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
