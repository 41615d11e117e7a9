/*
   Copyright The bootadapter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package bootio

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// The adapter reports every failure through one of four kinds. The engine
// treats any of them as terminal for the boot attempt it is verifying; no
// operation retries internally.
var (
	// ErrNoSuchPartition is returned when the locator cannot resolve a
	// partition name.
	ErrNoSuchPartition = fmt.Errorf("no such partition: %w", errdefs.ErrNotFound)

	// ErrRangeOutsidePartition is returned when a normalized offset falls
	// outside the partition, or when a write would cross its end.
	ErrRangeOutsidePartition = fmt.Errorf("range outside partition: %w", errdefs.ErrOutOfRange)

	// ErrIO is returned for transport failures, absent key material and
	// undersized rendering buffers.
	ErrIO = fmt.Errorf("i/o failure: %w", errdefs.ErrInternal)

	// ErrOutOfMemory is returned when a label or rendering buffer cannot
	// be built.
	ErrOutOfMemory = fmt.Errorf("allocation failure: %w", errdefs.ErrResourceExhausted)
)

// IsNoSuchPartition reports whether err is a partition resolution miss.
func IsNoSuchPartition(err error) bool {
	return errors.Is(err, ErrNoSuchPartition)
}

// IsRangeOutsidePartition reports whether err is a boundary violation.
func IsRangeOutsidePartition(err error) bool {
	return errors.Is(err, ErrRangeOutsidePartition)
}

// IsIO reports whether err is a transport or input-framing failure.
func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}
