// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite provides access to the SQLite library, version 3.

package sqlite

/*
#include <sqlite3.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"io"
	"unsafe"
)

// DefaultBlobChunkSize is the chunk length used by Blob.Chunks when no
// explicit size is given.
const DefaultBlobChunkSize = 16 * 1024

// Blob gives incremental access to a single BLOB or TEXT value,
// located as if by
//
//	SELECT column FROM db.table WHERE rowid = row
//
// The value's byte length is cached when the handle is opened.
// (See http://sqlite.org/c3ref/blob.html)
type Blob struct {
	c        *Conn
	bl       *C.sqlite3_blob
	size     int
	pos      int // sequential Read/Write position
	readOnly bool
}

// BlobOpen opens a BLOB for incremental I/O. When write is false, the
// handle (and its Write methods) is read-only.
// (See http://sqlite.org/c3ref/blob_open.html)
func (c *Conn) BlobOpen(db, table, column string, row int64, write bool) (*Blob, error) {
	if c.db == nil {
		return nil, errClosed
	}
	zDb := C.CString(db)
	defer C.free(unsafe.Pointer(zDb))
	zTable := C.CString(table)
	defer C.free(unsafe.Pointer(zTable))
	zColumn := C.CString(column)
	defer C.free(unsafe.Pointer(zColumn))

	var bl *C.sqlite3_blob
	rv := C.sqlite3_blob_open(c.db, zDb, zTable, zColumn, C.sqlite3_int64(row), btocint(write), &bl)
	if rv != C.SQLITE_OK {
		if bl != nil {
			C.sqlite3_blob_close(bl)
		}
		return nil, c.blobError("open", rv)
	}
	if bl == nil {
		return nil, errors.New("sqlite succeeded without returning a blob")
	}
	return &Blob{
		c:        c,
		bl:       bl,
		size:     int(C.sqlite3_blob_bytes(bl)),
		readOnly: !write,
	}, nil
}

func (c *Conn) blobError(op string, rv C.int) error {
	return &BlobError{Op: op, Code: Errno(rv), Msg: C.GoString(C.sqlite3_errmsg(c.db))}
}

// Size returns the byte length of the open value. It is cached when the
// handle is opened and refreshed only by Reopen; incremental I/O cannot
// grow a BLOB.
// (See http://sqlite.org/c3ref/blob_bytes.html)
func (b *Blob) Size() int {
	return b.size
}

// ReadAt implements io.ReaderAt over the open value.
// (See http://sqlite.org/c3ref/blob_read.html)
func (b *Blob) ReadAt(p []byte, off int64) (int, error) {
	if b.bl == nil {
		return 0, &MisuseError{Msg: "blob is closed"}
	}
	if off < 0 || off > int64(b.size) {
		return 0, &BlobError{Op: "read", Code: Errno(C.SQLITE_ERROR), Msg: "offset out of range"}
	}
	n := len(p)
	if rem := b.size - int(off); n > rem {
		n = rem
	}
	if n > 0 {
		rv := C.sqlite3_blob_read(b.bl, unsafe.Pointer(&p[0]), C.int(n), C.int(off))
		if rv != C.SQLITE_OK {
			return 0, b.c.blobError("read", rv)
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt over the open value. Writes past the
// value's byte length fail; incremental I/O cannot grow a BLOB.
// (See http://sqlite.org/c3ref/blob_write.html)
func (b *Blob) WriteAt(p []byte, off int64) (int, error) {
	if b.bl == nil {
		return 0, &MisuseError{Msg: "blob is closed"}
	}
	if b.readOnly {
		return 0, &BlobError{Op: "write", Code: Errno(C.SQLITE_READONLY), Msg: "blob is read-only"}
	}
	if off < 0 || int(off)+len(p) > b.size {
		return 0, &BlobError{Op: "write", Code: Errno(C.SQLITE_ERROR), Msg: "write past end of blob"}
	}
	if len(p) == 0 {
		return 0, nil
	}
	rv := C.sqlite3_blob_write(b.bl, unsafe.Pointer(&p[0]), C.int(len(p)), C.int(off))
	if rv != C.SQLITE_OK {
		return 0, b.c.blobError("write", rv)
	}
	return len(p), nil
}

// Read implements io.Reader, advancing a cursor from the start of the
// value to its cached length.
func (b *Blob) Read(p []byte) (int, error) {
	if b.pos >= b.size {
		return 0, io.EOF
	}
	n, err := b.ReadAt(p, int64(b.pos))
	b.pos += n
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Write implements io.Writer, advancing the same cursor as Read.
func (b *Blob) Write(p []byte) (int, error) {
	n, err := b.WriteAt(p, int64(b.pos))
	b.pos += n
	return n, err
}

// Seek repositions the sequential cursor.
func (b *Blob) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(b.size) + offset
	default:
		return 0, &MisuseError{Msg: "invalid whence"}
	}
	if pos < 0 {
		return 0, &MisuseError{Msg: "negative position"}
	}
	b.pos = int(pos)
	return pos, nil
}

// Reopen moves the handle to another row of the same table and column,
// refreshing the cached length and rewinding the cursor.
// (See http://sqlite.org/c3ref/blob_reopen.html)
func (b *Blob) Reopen(row int64) error {
	if b.bl == nil {
		return &MisuseError{Msg: "blob is closed"}
	}
	rv := C.sqlite3_blob_reopen(b.bl, C.sqlite3_int64(row))
	if rv != C.SQLITE_OK {
		return b.c.blobError("reopen", rv)
	}
	b.size = int(C.sqlite3_blob_bytes(b.bl))
	b.pos = 0
	return nil
}

// Close releases the handle. It is idempotent.
// (See http://sqlite.org/c3ref/blob_close.html)
func (b *Blob) Close() error {
	if b.bl == nil {
		return nil
	}
	bl := b.bl
	b.bl = nil
	if rv := C.sqlite3_blob_close(bl); rv != C.SQLITE_OK {
		return b.c.blobError("close", rv)
	}
	return nil
}

// BlobChunks iterates over a Blob in fixed-size pieces.
type BlobChunks struct {
	b    *Blob
	size int
	off  int
}

// Chunks returns an iterator yielding successive chunks of the value.
// A size <= 0 uses DefaultBlobChunkSize. The final chunk may be short.
func (b *Blob) Chunks(size int) *BlobChunks {
	if size <= 0 {
		size = DefaultBlobChunkSize
	}
	return &BlobChunks{b: b, size: size}
}

// Next returns the next chunk, or io.EOF once the value is exhausted.
func (it *BlobChunks) Next() ([]byte, error) {
	if it.off >= it.b.Size() {
		return nil, io.EOF
	}
	n := it.size
	if rem := it.b.Size() - it.off; n > rem {
		n = rem
	}
	p := make([]byte, n)
	if _, err := it.b.ReadAt(p, int64(it.off)); err != nil && err != io.EOF {
		return nil, err
	}
	it.off += n
	return p, nil
}
