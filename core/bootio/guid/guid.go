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

// Package guid implements the 16-byte unique partition identifier used by
// GPT partition entries and its canonical textual rendering.
//
// The on-disk byte order is not RFC 4122: the first three groups are stored
// little-endian, the last two big-endian. The rendering below reproduces
// that mixed-endian layout bit-for-bit so that identifiers printed here
// match what other consumers of the same partition table print.
package guid

import (
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"
)

// Size is the length of a raw identifier in bytes.
const Size = 16

// EncodedLen is the length of the canonical textual form, and MinBufferLen
// the smallest buffer Format accepts (rendering plus a terminating NUL, kept
// for parity with firmware-side consumers of the same buffer contract).
const (
	EncodedLen   = 36
	MinBufferLen = EncodedLen + 1
)

// GUID is a partition identifier in GPT on-disk byte order.
type GUID [Size]byte

const hexDigits = "0123456789abcdef"

// encode writes the canonical rendering of g into buf, which must hold at
// least EncodedLen bytes. The group ordering is fixed by the on-disk format:
// bytes [3 2 1 0], [5 4], [7 6], [8 9], [10..15].
func (g GUID) encode(buf []byte) {
	order := [Size]int{3, 2, 1, 0, 5, 4, 7, 6, 8, 9, 10, 11, 12, 13, 14, 15}
	hyphens := map[int]bool{4: true, 6: true, 8: true, 10: true}

	j := 0
	for i, src := range order {
		if hyphens[i] {
			buf[j] = '-'
			j++
		}
		buf[j] = hexDigits[g[src]>>4]
		buf[j+1] = hexDigits[g[src]&0x0f]
		j += 2
	}
}

// String returns the canonical 36-character lowercase rendering.
func (g GUID) String() string {
	var buf [EncodedLen]byte
	g.encode(buf[:])
	return string(buf[:])
}

// Format renders g into buf, NUL-terminated, and returns the number of bytes
// written excluding the terminator. Buffers shorter than MinBufferLen are
// rejected without writing anything.
func (g GUID) Format(buf []byte) (int, error) {
	if len(buf) < MinBufferLen {
		return 0, fmt.Errorf("guid buffer of %d bytes, need %d: %w", len(buf), MinBufferLen, errdefs.ErrInternal)
	}
	g.encode(buf[:EncodedLen])
	buf[EncodedLen] = 0
	return EncodedLen, nil
}

// UUID returns g converted to RFC 4122 byte order.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	swapMixedEndian(u[:], g[:])
	return u
}

// FromUUID converts an RFC 4122 UUID to on-disk byte order.
func FromUUID(u uuid.UUID) GUID {
	var g GUID
	swapMixedEndian(g[:], u[:])
	return g
}

// Parse interprets s as a canonical identifier string and returns the
// corresponding on-disk representation.
func Parse(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, fmt.Errorf("parsing partition guid %q: %w", s, errdefs.ErrInvalidArgument)
	}
	return FromUUID(u), nil
}

// swapMixedEndian converts between on-disk and RFC 4122 byte order. The
// permutation is its own inverse, so one direction serves both.
func swapMixedEndian(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[3], src[2], src[1], src[0]
	dst[4], dst[5] = src[5], src[4]
	dst[6], dst[7] = src[7], src[6]
	copy(dst[8:], src[8:16])
}
