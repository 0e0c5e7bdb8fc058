// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
)

const maxLineSize = 1 << 20

// Lines yields the non-blank lines of r with surrounding whitespace
// trimmed. It is the framing layer for NDJSON bodies. A line longer than
// maxLineSize ends the sequence with an error before it is fully buffered.
func Lines(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		for scanner.Scan() {
			if trimmed := bytes.TrimSpace(scanner.Bytes()); len(trimmed) > 0 {
				if !yield(bytes.Clone(trimmed), nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				yield(nil, fmt.Errorf("stream line exceeds %d bytes", maxLineSize))
				return
			}
			yield(nil, fmt.Errorf("stream read error: %w", err))
		}
	}
}

// SSEData yields the payload of each "data:" line of a server-sent event
// stream. It stops at the OpenAI style "[DONE]" sentinel.
func SSEData(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for line, err := range Lines(r) {
			if err != nil {
				yield(nil, err)
				return
			}
			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				continue
			}
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
}
