// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBytes returns the serialized store for entries.
func buildBytes(t testing.TB, mode Mode, entries []testEntry) []byte {
	var fileBytes safeBuffer
	w := NewWriter(&fileBytes, mode)
	for _, e := range entries {
		require.NoError(t, w.Write(e.Fingerprint, e.Value))
	}
	require.NoError(t, w.Close())
	return fileBytes.Bytes()
}

func TestReader_Sources(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	entries := randomEntries(rng, 200)
	path := writeTestStore(t, SizeAware, entries)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	for name, open := range map[string]func() (Source, error){
		"file":   func() (Source, error) { return OpenFile(path) },
		"mapped": func() (Source, error) { return OpenMapped(path) },
		"bytes":  func() (Source, error) { return BytesSource(contents), nil },
	} {
		t.Run(name, func(t *testing.T) {
			src, err := open()
			require.NoError(t, err)
			r, err := NewReader(src, SizeAware)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			require.Equal(t, len(entries), r.Len())
			require.Equal(t, int64(len(contents)), r.Size())
			require.Equal(t, uint64(len(entries)*sizeAwareStride), r.IndexSize())
			require.Equal(t, uint64(len(contents)-len(entries)*sizeAwareStride-footerSize), r.DataSize())

			for _, e := range entries {
				v, ok, err := r.Get(e.Fingerprint)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, e.Value, v)
			}
		})
	}
}

func TestReader_ModeMismatch(t *testing.T) {
	entries := []testEntry{{Fingerprint: 7, Value: []byte("seven")}}

	aware := buildBytes(t, SizeAware, entries)
	_, err := NewReader(BytesSource(aware), SizeUnaware)
	assert.ErrorIs(t, err, ErrModeMismatch)
	assert.ErrorIs(t, err, ErrFormat)

	unaware := buildBytes(t, SizeUnaware, entries)
	_, err = NewReader(BytesSource(unaware), SizeAware)
	assert.ErrorIs(t, err, ErrModeMismatch)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = NewReader(BytesSource(unaware), Mode(3))
	assert.Error(t, err)
}

func TestReader_Truncated(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	contents := buildBytes(t, SizeAware, randomEntries(rng, 10))

	for _, n := range []int{0, 1, footerSize - 1, len(contents) - 1} {
		// cut from the front so the footer survives but no longer matches
		_, err := NewReader(BytesSource(contents[len(contents)-n:]), SizeAware)
		assert.ErrorIs(t, err, ErrFormat, "length %d", n)
	}

	// trailing garbage moves the footer
	extended := append(append([]byte(nil), contents...), 0, 0, 0)
	_, err := NewReader(BytesSource(extended), SizeAware)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReader_TruncatedFile(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	path := writeTestStore(t, SizeAware, randomEntries(rng, 10))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	_, err = OpenSizeAware(path)
	assert.ErrorIs(t, err, ErrFormat)
	// the shifted footer reads as size-unaware, but the size check comes first
	assert.NotErrorIs(t, err, ErrModeMismatch)
	_, err = OpenSizeUnaware(path)
	assert.ErrorIs(t, err, ErrFormat)
	assert.NotErrorIs(t, err, ErrModeMismatch)
}

func TestReader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ikv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := OpenSizeAware(path)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReader_MissingFile(t *testing.T) {
	_, err := OpenSizeAware(filepath.Join(t.TempDir(), "does-not-exist.ikv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReader_EmptyStore(t *testing.T) {
	r, err := NewReader(BytesSource(buildBytes(t, SizeAware, nil)), SizeAware)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, 0, r.Len())
	v, ok, err := r.Get(0)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.NoError(t, r.Verify())
}

func TestReader_Duplicates(t *testing.T) {
	entries := []testEntry{
		{Fingerprint: 9, Value: []byte("first")},
		{Fingerprint: 3, Value: []byte("other")},
		{Fingerprint: 9, Value: []byte("second")},
		{Fingerprint: 9, Value: []byte("third")},
	}
	for _, mode := range []Mode{SizeAware, SizeUnaware} {
		r, err := NewReader(BytesSource(buildBytes(t, mode, entries)), mode)
		require.NoError(t, err)
		require.NoError(t, r.Verify())

		var v []byte
		var ok bool
		if mode == SizeAware {
			v, ok, err = r.Get(9)
		} else {
			v, ok, err = r.GetPrefix(9, len("first"))
		}
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "first", string(v))

		all := r.LookupAll(9)
		require.Len(t, all, 3)
		assert.Equal(t, uint64(0), all[0].Offset)
		assert.Equal(t, uint64(10), all[1].Offset)
		assert.Equal(t, uint64(16), all[2].Offset)
		if mode == SizeAware {
			assert.Equal(t, uint32(6), all[1].Size)
		} else {
			assert.Equal(t, uint32(0), all[1].Size)
		}

		assert.Empty(t, r.LookupAll(4))
		require.NoError(t, r.Close())
	}
}

func TestReader_WrongAccessor(t *testing.T) {
	entries := []testEntry{{Fingerprint: 1, Value: []byte("v")}}

	aware, err := NewReader(BytesSource(buildBytes(t, SizeAware, entries)), SizeAware)
	require.NoError(t, err)
	_, _, err = aware.GetUnbounded(1)
	assert.ErrorIs(t, err, ErrSizeKnown)
	_, _, err = aware.GetPrefix(1, 1)
	assert.ErrorIs(t, err, ErrSizeKnown)

	unaware, err := NewReader(BytesSource(buildBytes(t, SizeUnaware, entries)), SizeUnaware)
	require.NoError(t, err)
	_, _, err = unaware.Get(1)
	assert.ErrorIs(t, err, ErrSizeUnknown)
}

func TestReader_GetUnbounded(t *testing.T) {
	entries := []testEntry{
		{Fingerprint: 2, Value: []byte("abc")},
		{Fingerprint: 1, Value: []byte("defg")},
	}
	contents := buildBytes(t, SizeUnaware, entries)

	// BytesSource is Mappable; a plain ReaderAt exercises the copying path
	for _, src := range []Source{BytesSource(contents), readerAtOnly{BytesSource(contents)}} {
		r, err := NewReader(src, SizeUnaware)
		require.NoError(t, err)

		v, ok, err := r.GetUnbounded(2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "abcdefg", string(v))

		v, ok, err = r.GetUnbounded(1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "defg", string(v))

		// asking for more than remains returns what remains
		v, ok, err = r.GetPrefix(1, 100)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "defg", string(v))

		v, ok, err = r.GetPrefix(2, 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, v)

		_, _, err = r.GetPrefix(2, -1)
		assert.Error(t, err)

		_, ok, err = r.GetUnbounded(3)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, r.Close())
	}
}

// readerAtOnly hides the Mappable implementation of a Source.
type readerAtOnly struct {
	Source
}

func TestReader_Concurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	entries := randomEntries(rng, 500)
	path := writeTestStore(t, SizeAware, entries)

	src, err := OpenFile(path)
	require.NoError(t, err)
	r, err := NewReader(src, SizeAware)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := g; i < len(entries); i += 3 {
				v, ok, err := r.Get(entries[i].Fingerprint)
				if err != nil {
					errs <- err
					return
				}
				if !ok || string(v) != string(entries[i].Value) {
					errs <- assert.AnError
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestReader_Stats(t *testing.T) {
	entries := []testEntry{{Fingerprint: 1, Value: []byte("a")}, {Fingerprint: 2, Value: []byte("b")}}
	r, err := NewReader(BytesSource(buildBytes(t, SizeAware, entries)), SizeAware)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, _, _ = r.Get(1)
	_, _, _ = r.Get(2)
	_, _, _ = r.Get(3)
	_, _ = r.Lookup(1)

	assert.Equal(t, Stats{Lookups: 4, Hits: 3, Misses: 1}, r.Stats())
}

func TestReader_Verify(t *testing.T) {
	entries := []testEntry{
		{Fingerprint: 1, Value: []byte("a")},
		{Fingerprint: 2, Value: []byte("b")},
		{Fingerprint: 3, Value: []byte("c")},
	}
	contents := buildBytes(t, SizeAware, entries)
	dataLen := 3

	t.Run("unsorted", func(t *testing.T) {
		corrupt := append([]byte(nil), contents...)
		// swap the fingerprints of the first two records
		first := corrupt[dataLen:]
		second := corrupt[dataLen+sizeAwareStride:]
		for i := 0; i < fingerprintLen; i++ {
			first[i], second[i] = second[i], first[i]
		}
		r, err := NewReader(BytesSource(corrupt), SizeAware)
		require.NoError(t, err)
		assert.ErrorIs(t, r.Verify(), ErrFormat)
	})

	t.Run("out of bounds", func(t *testing.T) {
		corrupt := append([]byte(nil), contents...)
		e := Entry{Fingerprint: 3, Offset: 2, Size: 100}
		putEntry(corrupt[dataLen+2*sizeAwareStride:], e, SizeAware)
		r, err := NewReader(BytesSource(corrupt), SizeAware)
		require.NoError(t, err)
		assert.ErrorIs(t, r.Verify(), ErrFormat)

		// Get catches it too
		_, _, err = r.Get(3)
		assert.ErrorIs(t, err, ErrFormat)
	})
}

func TestReader_UseAfterClose(t *testing.T) {
	entries := []testEntry{{Fingerprint: 1, Value: []byte("a")}}
	r, err := NewReader(BytesSource(buildBytes(t, SizeAware, entries)), SizeAware)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, _, err = r.Get(1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Verify(), ErrClosed)
}

func TestReader_ClosesSourceOnError(t *testing.T) {
	src := &countingSource{Source: BytesSource([]byte("short"))}
	_, err := NewReader(src, SizeAware)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, 1, src.closes)
}

type countingSource struct {
	Source
	closes int
}

func (s *countingSource) Close() error {
	s.closes++
	return s.Source.Close()
}
