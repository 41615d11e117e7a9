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

// Package memdisk provides an in-memory block device with a static
// partition table. It implements both collaborator contracts the boot
// adapter consumes (bootio.Locator and bootio.BlockDevice) and serves as
// the reference transport for tests and development loaders.
package memdisk

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/verityos/bootadapter/core/bootio"
	"github.com/verityos/bootadapter/core/bootio/guid"
)

// Disk is a byte slab with a block geometry and a name-indexed partition
// table. The zero value is not usable; construct with New.
type Disk struct {
	blockSize uint32
	data      []byte
	parts     map[string]bootio.PartitionInfo
	closed    bool
}

var (
	_ bootio.Locator     = (*Disk)(nil)
	_ bootio.BlockDevice = (*Disk)(nil)
)

// New allocates a disk of the given block size. Total size is a
// human-readable string ("4MB", "512KiB") and must be a whole number of
// blocks.
func New(blockSize uint32, size string) (*Disk, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("block size must be positive: %w", errdefs.ErrInvalidArgument)
	}
	total, err := units.RAMInBytes(size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse disk size %q: %w", size, err)
	}
	if total <= 0 || total%int64(blockSize) != 0 {
		return nil, fmt.Errorf("disk size %q is not a multiple of the %d byte block size: %w", size, blockSize, errdefs.ErrInvalidArgument)
	}
	return &Disk{
		blockSize: blockSize,
		data:      make([]byte, total),
		parts:     map[string]bootio.PartitionInfo{},
	}, nil
}

// BlockSize returns the disk's logical block size in bytes.
func (d *Disk) BlockSize() uint32 {
	return d.blockSize
}

// Blocks returns the total number of logical blocks on the disk.
func (d *Disk) Blocks() uint64 {
	return uint64(len(d.data)) / uint64(d.blockSize)
}

// AddPartition registers a partition covering blocks [startLBA,
// startLBA+blocks) under the given name and identifier.
func (d *Disk) AddPartition(name string, startLBA, blocks uint64, id guid.GUID) error {
	if name == "" {
		return fmt.Errorf("partition name must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if blocks == 0 {
		return fmt.Errorf("partition %q must span at least one block: %w", name, errdefs.ErrInvalidArgument)
	}
	if startLBA+blocks > d.Blocks() {
		return fmt.Errorf("partition %q exceeds the %d block disk: %w", name, d.Blocks(), errdefs.ErrInvalidArgument)
	}
	if _, ok := d.parts[name]; ok {
		return fmt.Errorf("partition %q: %w", name, errdefs.ErrAlreadyExists)
	}
	d.parts[name] = bootio.PartitionInfo{
		Name:      name,
		StartLBA:  startLBA,
		EndLBA:    startLBA + blocks - 1,
		BlockSize: d.blockSize,
		GUID:      id,
	}
	return nil
}

// AddPartitionAuto registers a partition with a freshly generated random
// identifier and returns it.
func (d *Disk) AddPartitionAuto(name string, startLBA, blocks uint64) (guid.GUID, error) {
	id := guid.FromUUID(uuid.New())
	if err := d.AddPartition(name, startLBA, blocks, id); err != nil {
		return guid.GUID{}, err
	}
	return id, nil
}

// LookupPartition implements bootio.Locator.
func (d *Disk) LookupPartition(ctx context.Context, name string) (bootio.PartitionInfo, error) {
	info, ok := d.parts[name]
	if !ok {
		return bootio.PartitionInfo{}, fmt.Errorf("partition %q: %w", name, errdefs.ErrNotFound)
	}
	return info, nil
}

// ReadAt implements bootio.BlockDevice.
func (d *Disk) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := d.checkRange(p, off); err != nil {
		return 0, err
	}
	return copy(p, d.data[off:]), nil
}

// WriteAt implements bootio.BlockDevice.
func (d *Disk) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := d.checkRange(p, off); err != nil {
		return 0, err
	}
	return copy(d.data[off:], p), nil
}

// Close implements io.Closer. Further I/O on a closed disk fails.
func (d *Disk) Close() error {
	d.closed = true
	return nil
}

func (d *Disk) checkRange(p []byte, off int64) error {
	if d.closed {
		return fmt.Errorf("disk is closed: %w", errdefs.ErrUnavailable)
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return fmt.Errorf("transfer of %d bytes at %d exceeds the %d byte disk: %w", len(p), off, len(d.data), errdefs.ErrOutOfRange)
	}
	return nil
}

// Bytes exposes the backing slab for inspection in tests.
func (d *Disk) Bytes() []byte {
	return d.data
}
