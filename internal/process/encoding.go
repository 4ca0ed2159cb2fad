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
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names with special meaning
// 具有特殊含义的编码名称
const (
	// EncodingConsole selects the encoding used by the console
	// EncodingConsole 选择控制台使用的编码
	EncodingConsole = "CONSOLE"

	// EncodingSystem selects the operating system encoding
	// EncodingSystem 选择操作系统编码
	EncodingSystem = "SYSTEM"
)

// resolveEncoding maps an encoding name to a codec. CONSOLE and SYSTEM map
// to UTF-8, other names are looked up in the WHATWG and IANA registries.
// resolveEncoding 将编码名称映射为编解码器。
func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", EncodingConsole, EncodingSystem:
		return unicode.UTF8, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	compact := strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
	if enc, err := htmlindex.Get(compact); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: unknown output encoding '%s'", ErrConfiguration, name)
}

// decodeOutput converts raw process output to a string. Undecodable bytes
// are replaced rather than failing the whole read.
func decodeOutput(enc encoding.Encoding, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if enc == nil {
		enc = unicode.UTF8
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(decoded) {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}
	return string(decoded)
}

// encodeInput converts literal stdin text to bytes in the given encoding
func encodeInput(enc encoding.Encoding, text string) ([]byte, error) {
	if enc == nil {
		return []byte(text), nil
	}
	return enc.NewEncoder().Bytes([]byte(text))
}

// normalizeOutput turns CRLF into LF and strips at most one trailing newline.
// normalizeOutput 将 CRLF 转为 LF，并最多去掉一个末尾换行符。
func normalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSuffix(s, "\n")
}
