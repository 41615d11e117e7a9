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

// Package bootio implements the storage and platform-state adapter a
// verified-boot engine drives during early boot. The engine hands it
// partition-relative byte ranges, candidate public keys and rollback slot
// indices; the adapter translates those into physical block I/O against a
// partition table resolved by an external locator, and into trust and
// lock-state decisions.
//
// The adapter holds no cross-call state: partition handles are resolved
// fresh for every operation and discarded when it returns. Every failure is
// terminal for the operation that raised it, and any retry policy belongs
// to the engine.
package bootio

import (
	"context"

	"github.com/verityos/bootadapter/core/bootio/guid"
)

// PartitionInfo describes one partition as resolved by a Locator. It is a
// value type, valid only for the single operation it was resolved for.
type PartitionInfo struct {
	// Name is the partition label the lookup matched.
	Name string

	// StartLBA and EndLBA are the first and last logical block addresses
	// of the partition. EndLBA is inclusive.
	StartLBA uint64
	EndLBA   uint64

	// BlockSize is the logical block size of the backing device in bytes.
	BlockSize uint32

	// GUID is the partition's unique identifier in on-disk byte order.
	GUID guid.GUID
}

// Size returns the partition size in bytes. It is always derived from the
// block range so that it cannot go stale against the handle.
func (p PartitionInfo) Size() uint64 {
	return (p.EndLBA - p.StartLBA + 1) * uint64(p.BlockSize)
}

// StartByte returns the absolute byte offset of the partition's first block.
func (p PartitionInfo) StartByte() uint64 {
	return p.StartLBA * uint64(p.BlockSize)
}

// Locator resolves partition names against a partition table. Lookup misses
// must wrap errdefs.ErrNotFound.
type Locator interface {
	LookupPartition(ctx context.Context, name string) (PartitionInfo, error)
}

// BlockDevice is the physical transport. Offsets are absolute device byte
// offsets; implementations transfer exactly len(p) bytes or fail. Calls
// block until the transfer completes; cancellation is not supported at this
// layer.
type BlockDevice interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
}

// UnlockChecker reports whether the device is in the unlocked,
// verification-relaxed state. The adapter consults it on every lock-state
// query rather than caching, since an operator can change the state between
// calls within one boot attempt.
type UnlockChecker interface {
	DeviceUnlocked(ctx context.Context) (bool, error)
}

// UnlockCheckerFunc adapts a plain predicate to the UnlockChecker interface.
type UnlockCheckerFunc func(ctx context.Context) (bool, error)

// DeviceUnlocked implements UnlockChecker.
func (f UnlockCheckerFunc) DeviceUnlocked(ctx context.Context) (bool, error) {
	return f(ctx)
}

// RollbackStore persists per-slot monotonic counters that prevent downgrade
// to superseded boot images. A conforming implementation must be persistent
// and tamper-evident, and must never report a lower index than it last
// stored for a slot.
type RollbackStore interface {
	RollbackIndex(ctx context.Context, slot uint64) (uint64, error)
	SetRollbackIndex(ctx context.Context, slot, index uint64) error
}

// Ops is the operation set the adapter exposes to the verified-boot engine.
// It is bound once at construction; the engine invokes it synchronously and
// aborts the boot attempt on the first non-nil error.
type Ops interface {
	// ReadPartition reads up to numBytes from the named partition starting
	// at the partition-relative offset. A negative offset counts back from
	// the end of the partition. Reads that would cross the partition end
	// are clamped and return a short slice.
	ReadPartition(ctx context.Context, name string, offset int64, numBytes int) ([]byte, error)

	// WritePartition writes data to the named partition at the
	// partition-relative offset. Unlike reads, a write that would cross
	// the partition end fails outright with ErrRangeOutsidePartition and
	// transfers nothing: a silently truncated write could corrupt
	// structures past the range with no visible signal.
	WritePartition(ctx context.Context, name string, offset int64, data []byte) error

	// ValidatePublicKey reports whether the presented key matches the
	// embedded trust anchor. Metadata is accepted but not inspected: this
	// adapter supports exactly one always-trusted key. A nil or empty key
	// is a protocol error (ErrIO), not an untrusted key.
	ValidatePublicKey(ctx context.Context, key, metadata []byte) (bool, error)

	// RollbackIndex returns the stored rollback index for the slot.
	RollbackIndex(ctx context.Context, slot uint64) (uint64, error)

	// SetRollbackIndex stores a rollback index for the slot.
	SetRollbackIndex(ctx context.Context, slot, index uint64) error

	// DeviceUnlocked reports whether verification enforcement is relaxed.
	DeviceUnlocked(ctx context.Context) (bool, error)

	// PartitionGUID returns the canonical textual identifier of the named
	// partition.
	PartitionGUID(ctx context.Context, name string) (string, error)
}
