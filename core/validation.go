// Copyright 2025 Poiesic Systems
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

package core

import (
	"fmt"
	"time"
)

func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Id != IDFromContent(chunk.Content) {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrIDMismatch)
	}

	if !chunk.InsertedAt.IsZero() && !IsValidTimestamp(chunk.InsertedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidTimestamp)
	}

	return nil
}

func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
