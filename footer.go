// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	footerSize = 8 + 1 + 8 // entry count + size-aware flag + index start

	footerFlagOff       = 8
	footerIndexStartOff = 9

	fingerprintLen    = 4
	offsetLen         = 8
	sizeLen           = 4
	sizeUnawareStride = fingerprintLen + offsetLen
	sizeAwareStride   = sizeUnawareStride + sizeLen
)

type footer struct {
	entryCount uint64
	sizeAware  bool
	indexStart uint64
}

func (f *footer) mode() Mode {
	if f.sizeAware {
		return SizeAware
	}
	return SizeUnaware
}

func (f *footer) MarshalTo(buf []byte) error {
	if len(buf) < footerSize {
		return fmt.Errorf("footer buffer too short: %d < %d", len(buf), footerSize)
	}
	binary.LittleEndian.PutUint64(buf[:footerFlagOff], f.entryCount)
	buf[footerFlagOff] = 0
	if f.sizeAware {
		buf[footerFlagOff] = 1
	}
	binary.LittleEndian.PutUint64(buf[footerIndexStartOff:footerSize], f.indexStart)
	return nil
}

func (f *footer) WriteTo(w io.Writer) (n int64, err error) {
	var buf [footerSize]byte
	if err := f.MarshalTo(buf[:]); err != nil {
		return 0, err
	}
	written, err := w.Write(buf[:])
	if err != nil {
		return int64(written), fmt.Errorf("write: %w", err)
	}
	return int64(written), nil
}

func (f *footer) UnmarshalBytes(buf []byte) error {
	if len(buf) < footerSize {
		return fmt.Errorf("%w: footer too short: %d < %d", ErrFormat, len(buf), footerSize)
	}
	buf = buf[:footerSize]

	switch flag := buf[footerFlagOff]; flag {
	case 0:
		f.sizeAware = false
	case 1:
		f.sizeAware = true
	default:
		return fmt.Errorf("%w: bad size-aware flag %#x in footer", ErrFormat, flag)
	}
	f.entryCount = binary.LittleEndian.Uint64(buf[:footerFlagOff])
	f.indexStart = binary.LittleEndian.Uint64(buf[footerIndexStartOff:])

	return nil
}

// checkSize validates that an index of entryCount entries of the given
// stride, starting at indexStart and followed by the footer, exactly
// fills a file of fileSize bytes.
func (f *footer) checkSize(stride int, fileSize int64) error {
	if fileSize < footerSize {
		return fmt.Errorf("%w: file too short: %d < %d", ErrFormat, fileSize, footerSize)
	}
	footerStart := uint64(fileSize) - footerSize
	if f.indexStart > footerStart {
		return fmt.Errorf("%w: index start %d beyond footer start %d", ErrFormat, f.indexStart, footerStart)
	}
	indexLen := footerStart - f.indexStart
	if indexLen%uint64(stride) != 0 || indexLen/uint64(stride) != f.entryCount {
		return fmt.Errorf("%w: %d entries * %d bytes + %d + index start %d != file size %d",
			ErrFormat, f.entryCount, stride, footerSize, f.indexStart, fileSize)
	}
	return nil
}

func putEntry(buf []byte, e Entry, m Mode) {
	_ = buf[m.stride()-1]
	binary.LittleEndian.PutUint32(buf[:fingerprintLen], e.Fingerprint)
	binary.LittleEndian.PutUint64(buf[fingerprintLen:sizeUnawareStride], e.Offset)
	if m == SizeAware {
		binary.LittleEndian.PutUint32(buf[sizeUnawareStride:sizeAwareStride], e.Size)
	}
}

func readEntry(buf []byte, m Mode) Entry {
	_ = buf[m.stride()-1]
	e := Entry{
		Fingerprint: binary.LittleEndian.Uint32(buf[:fingerprintLen]),
		Offset:      binary.LittleEndian.Uint64(buf[fingerprintLen:sizeUnawareStride]),
	}
	if m == SizeAware {
		e.Size = binary.LittleEndian.Uint32(buf[sizeUnawareStride:sizeAwareStride])
	}
	return e
}
