// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ikv builds and reads immutable, hash-indexed key/value files.
//
// An ikv store maps 32-bit fingerprints (computed by the caller, see
// package fingerprint for one option) to byte payloads.  It is built
// once with a Writer (or a Builder, which adds temp-file + atomic
// rename handling) and then opened read-only by any number of
// Readers.
//
// A store looks like:
//
//	┌───────────────────┐ 0
//	│ data segment      │
//	│ (values, in write │
//	│  order, unpadded) │
//	│                   │
//	├───────────────────┤ indexStart
//	│ index segment     │
//	│ (entries sorted   │
//	│  by fingerprint)  │
//	├───────────────────┤ footerStart
//	│ footer            │
//	└───────────────────┘ EOF
//
// Index entries are fixed-width, little-endian.  In size-aware mode
// each entry is 16 bytes:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| fingerprint       | offset...         |
//	+----+----+----+----+----+----+----+----+
//	| ...offset         | size              |
//	+----+----+----+----+----+----+----+----+
//
// In size-unaware mode the trailing size is omitted (12 bytes per
// entry), and lookups can only tell where a value starts: the caller
// has to know how long it is.
//
// The 17-byte footer holds the entry count (u64), a size-aware flag
// (u8) and the offset of the index segment (u64).  It is found by
// seeking back from the end of the file.
//
// Fingerprints are not required to be unique.  Entries with equal
// fingerprints keep their write order in the index, and Get returns
// the first one written.
package ikv
