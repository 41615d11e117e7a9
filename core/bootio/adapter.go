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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"
)

// Adapter binds the engine-facing operation set to a locator and a block
// transport. It is safe to construct once at loader initialization and use
// for the whole boot attempt; it keeps no per-operation state.
type Adapter struct {
	locator  Locator
	dev      BlockDevice
	trustKey []byte
	rollback RollbackStore
	unlock   UnlockChecker
}

var _ Ops = (*Adapter)(nil)

// Opt overrides one of the adapter's default collaborators.
type Opt func(*Adapter)

// WithRollbackStore replaces the default non-persisting rollback store.
func WithRollbackStore(s RollbackStore) Opt {
	return func(a *Adapter) {
		a.rollback = s
	}
}

// WithUnlockChecker replaces the default lock-state predicate, which always
// reports the device as locked.
func WithUnlockChecker(c UnlockChecker) Opt {
	return func(a *Adapter) {
		a.unlock = c
	}
}

// New builds an adapter over the given locator and transport with trustKey
// as the embedded trust anchor. Construction either fully succeeds or
// returns an error without retaining anything; there is no partially
// initialized adapter state.
func New(locator Locator, dev BlockDevice, trustKey []byte, opts ...Opt) (*Adapter, error) {
	if locator == nil {
		return nil, fmt.Errorf("partition locator is required: %w", errdefs.ErrInvalidArgument)
	}
	if dev == nil {
		return nil, fmt.Errorf("block device is required: %w", errdefs.ErrInvalidArgument)
	}
	if len(trustKey) == 0 {
		return nil, fmt.Errorf("trust anchor key is required: %w", errdefs.ErrInvalidArgument)
	}

	a := &Adapter{
		locator:  locator,
		dev:      dev,
		trustKey: bytes.Clone(trustKey),
		rollback: nullRollbackStore{},
		unlock:   lockedChecker{},
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Close releases the transport if it is closable. The owning loader calls
// it exactly once at teardown.
func (a *Adapter) Close() error {
	if c, ok := a.dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// resolve looks the partition up and returns its handle. The handle is
// dropped when the calling operation returns; nothing is cached between
// operations.
func (a *Adapter) resolve(ctx context.Context, name string) (PartitionInfo, error) {
	if name == "" {
		return PartitionInfo{}, fmt.Errorf("partition name must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	info, err := a.locator.LookupPartition(ctx, name)
	if err != nil {
		log.G(ctx).WithField("partition", name).WithError(err).Debug("partition lookup failed")
		return PartitionInfo{}, fmt.Errorf("partition %q: %w", name, ErrNoSuchPartition)
	}
	return info, nil
}

// normalizeOffset maps a possibly negative partition-relative offset onto
// [0, size]. Negative offsets count back from the partition end; anything
// that lands outside the partition is rejected rather than clamped.
func normalizeOffset(offset int64, size uint64) (uint64, error) {
	if offset < 0 {
		// Magnitude computed through uint64 so that the most negative
		// int64 does not overflow on negation.
		k := -uint64(offset)
		if k > size {
			return 0, fmt.Errorf("offset %d before start of %d byte partition: %w", offset, size, ErrRangeOutsidePartition)
		}
		return size - k, nil
	}
	if uint64(offset) > size {
		return 0, fmt.Errorf("offset %d beyond end of %d byte partition: %w", offset, size, ErrRangeOutsidePartition)
	}
	return uint64(offset), nil
}

// ReadPartition implements Ops. Over-long reads are clamped to the
// partition end and return a short slice: engine-side callers probe
// structures of unknown length (vbmeta footers, kernel images) and expect
// a partial read rather than a failure.
func (a *Adapter) ReadPartition(ctx context.Context, name string, offset int64, numBytes int) ([]byte, error) {
	if numBytes < 0 {
		return nil, fmt.Errorf("negative read length %d: %w", numBytes, errdefs.ErrInvalidArgument)
	}

	info, err := a.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	size := info.Size()

	off, err := normalizeOffset(offset, size)
	if err != nil {
		return nil, err
	}

	n := uint64(numBytes)
	if remaining := size - off; n > remaining {
		log.G(ctx).WithFields(log.Fields{
			"partition": name,
			"requested": numBytes,
			"clamped":   remaining,
		}).Debug("read clamped at partition boundary")
		n = remaining
	}
	if n == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	rn, err := a.dev.ReadAt(ctx, buf, int64(info.StartByte()+off))
	if err != nil {
		log.G(ctx).WithField("partition", name).WithError(err).Error("disk read failed")
		return nil, fmt.Errorf("reading %d bytes from %q at %d: %w", n, name, off, ErrIO)
	}
	if rn != len(buf) {
		return nil, fmt.Errorf("short read from %q: %d of %d bytes: %w", name, rn, len(buf), ErrIO)
	}
	return buf, nil
}

// WritePartition implements Ops. The boundary handling is deliberately
// asymmetric with ReadPartition: a write crossing the partition end fails
// outright and transfers nothing.
func (a *Adapter) WritePartition(ctx context.Context, name string, offset int64, data []byte) error {
	info, err := a.resolve(ctx, name)
	if err != nil {
		return err
	}
	size := info.Size()

	off, err := normalizeOffset(offset, size)
	if err != nil {
		return err
	}

	if uint64(len(data)) > size-off {
		log.G(ctx).WithFields(log.Fields{
			"partition": name,
			"offset":    off,
			"length":    len(data),
		}).Debug("write rejected at partition boundary")
		return fmt.Errorf("write of %d bytes at %d crosses end of %d byte partition %q: %w", len(data), off, size, name, ErrRangeOutsidePartition)
	}
	if len(data) == 0 {
		return nil
	}

	wn, err := a.dev.WriteAt(ctx, data, int64(info.StartByte()+off))
	if err != nil {
		log.G(ctx).WithField("partition", name).WithError(err).Error("disk write failed")
		return fmt.Errorf("writing %d bytes to %q at %d: %w", len(data), name, off, ErrIO)
	}
	if wn != len(data) {
		return fmt.Errorf("short write to %q: %d of %d bytes: %w", name, wn, len(data), ErrIO)
	}
	return nil
}

// ValidatePublicKey implements Ops. The presented key is trusted when it is
// a byte-for-byte prefix-length match of the embedded anchor. Metadata is
// accepted for interface compatibility but never inspected: there is a
// single always-trusted key, with no rotation and no metadata-selected key
// sets. A production trust store would need both.
func (a *Adapter) ValidatePublicKey(ctx context.Context, key, metadata []byte) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("no public key presented: %w", ErrIO)
	}
	trusted := len(key) <= len(a.trustKey) && bytes.Equal(key, a.trustKey[:len(key)])
	if !trusted {
		log.G(ctx).WithField("keylen", len(key)).Debug("presented key does not match trust anchor")
	}
	return trusted, nil
}

// RollbackIndex implements Ops.
func (a *Adapter) RollbackIndex(ctx context.Context, slot uint64) (uint64, error) {
	return a.rollback.RollbackIndex(ctx, slot)
}

// SetRollbackIndex implements Ops.
func (a *Adapter) SetRollbackIndex(ctx context.Context, slot, index uint64) error {
	return a.rollback.SetRollbackIndex(ctx, slot, index)
}

// DeviceUnlocked implements Ops. The platform predicate is consulted on
// every call; lock state is never cached.
func (a *Adapter) DeviceUnlocked(ctx context.Context) (bool, error) {
	return a.unlock.DeviceUnlocked(ctx)
}

// PartitionGUID implements Ops. A lookup miss on this path reports ErrIO
// rather than ErrNoSuchPartition, matching what engine-side callers of the
// identifier operation historically expect.
func (a *Adapter) PartitionGUID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("partition name must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	info, err := a.locator.LookupPartition(ctx, name)
	if err != nil {
		log.G(ctx).WithField("partition", name).WithError(err).Debug("partition lookup failed")
		return "", fmt.Errorf("partition %q: %w", name, ErrIO)
	}
	return info.GUID.String(), nil
}

// lockedChecker is the default lock-state predicate: verification stays
// enforced unless an integrator wires a real platform query.
type lockedChecker struct{}

func (lockedChecker) DeviceUnlocked(ctx context.Context) (bool, error) {
	return false, nil
}
