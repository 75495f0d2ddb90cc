// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite provides access to the SQLite library, version 3.

package sqlite

/*
#include <sqlite3.h>
#include <stdlib.h>

// These wrappers are necessary because SQLITE_TRANSIENT
// is a pointer constant, and cgo doesn't translate it correctly.
static int my_bind_text(sqlite3_stmt *stmt, int n, const char *p, int np) {
	return sqlite3_bind_text(stmt, n, p, np, SQLITE_TRANSIENT);
}
static int my_bind_blob(sqlite3_stmt *stmt, int n, const void *p, int np) {
	if (np > 0) {
		return sqlite3_bind_blob(stmt, n, p, np, SQLITE_TRANSIENT);
	}
	// For consistency between []byte(nil) and []byte("")
	return sqlite3_bind_zeroblob(stmt, n, 0);
}
*/
import "C"

import (
	"encoding/json"
	"math"
	"time"
	"unsafe"
)

// Fundamental storage classes
// (See http://sqlite.org/c3ref/c_blob.html)
type Type int

const (
	Integer Type = C.SQLITE_INTEGER
	Float   Type = C.SQLITE_FLOAT
	Text    Type = C.SQLITE_TEXT
	Blob    Type = C.SQLITE_BLOB
	Null    Type = C.SQLITE_NULL
)

// Values produced by SQLite's json SQL functions carry this subtype.
const jsonSubtype = 74

// IEEE-754 doubles represent integers exactly up to 2^53-1; the source
// host's native number type is a double, so this range is where
// decoded integers downgrade to int.
const (
	maxSafeInteger = 1<<53 - 1
	minSafeInteger = -maxSafeInteger
)

// bindValue assigns a host value to parameter i (1-based).
//
// NULL for nil; int for booleans; the 32-bit bind primitive for
// integers that fit it and the 64-bit one otherwise; double for
// non-integer numbers (NaN binds NULL, as SQLite itself stores it);
// transient text for strings, with a non-null zero-length value for
// ""; transient blob for []byte; ISO-8601 UTC text for time.Time;
// JSON text for anything else.
func (s *Stmt) bindValue(i int, v interface{}) error {
	var rv C.int
	switch v := v.(type) {
	case nil:
		rv = C.sqlite3_bind_null(s.stmt, C.int(i))
	case bool:
		rv = C.sqlite3_bind_int(s.stmt, C.int(i), btocint(v))
	case int:
		rv = bindInt(s.stmt, i, int64(v))
	case int8:
		rv = bindInt(s.stmt, i, int64(v))
	case int16:
		rv = bindInt(s.stmt, i, int64(v))
	case int32:
		rv = bindInt(s.stmt, i, int64(v))
	case int64:
		rv = bindInt(s.stmt, i, v)
	case uint:
		rv = bindInt(s.stmt, i, int64(v))
	case uint8:
		rv = bindInt(s.stmt, i, int64(v))
	case uint16:
		rv = bindInt(s.stmt, i, int64(v))
	case uint32:
		rv = bindInt(s.stmt, i, int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return &BindError{Index: i, Msg: "uint64 value overflows INTEGER"}
		}
		rv = bindInt(s.stmt, i, int64(v))
	case float32:
		rv = bindFloat(s.stmt, i, float64(v))
	case float64:
		rv = bindFloat(s.stmt, i, v)
	case string:
		rv = bindText(s.stmt, i, v)
	case []byte:
		var p unsafe.Pointer
		if len(v) > 0 {
			p = unsafe.Pointer(&v[0])
		}
		rv = C.my_bind_blob(s.stmt, C.int(i), p, C.int(len(v)))
	case time.Time:
		rv = bindText(s.stmt, i, v.UTC().Format(iso8601))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return &BindError{Index: i, Msg: "unsupported type: " + err.Error()}
		}
		rv = bindText(s.stmt, i, string(b))
	}
	if rv != C.SQLITE_OK {
		return &BindError{Index: i, Msg: Errno(rv).Error()}
	}
	return nil
}

func bindInt(stmt *C.sqlite3_stmt, i int, v int64) C.int {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return C.sqlite3_bind_int(stmt, C.int(i), C.int(v))
	}
	return C.sqlite3_bind_int64(stmt, C.int(i), C.sqlite3_int64(v))
}

func bindFloat(stmt *C.sqlite3_stmt, i int, v float64) C.int {
	if math.IsNaN(v) {
		return C.sqlite3_bind_null(stmt, C.int(i))
	}
	if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
		return bindInt(stmt, i, int64(v))
	}
	return C.sqlite3_bind_double(stmt, C.int(i), C.double(v))
}

func bindText(stmt *C.sqlite3_stmt, i int, v string) C.int {
	// C.CString("") is a valid non-null pointer, so empty strings are
	// transmitted as zero-length text, never as NULL.
	cs := C.CString(v)
	defer C.free(unsafe.Pointer(cs))
	return C.my_bind_text(stmt, C.int(i), cs, C.int(len(v)))
}

// decodeColumn reads column i of the current row into a host value.
//
// INTEGER columns decode to int inside the IEEE-754 safe-integer range
// and to int64 outside it, whether or not the connection is in Int64
// mode. TEXT columns carrying the
// JSON subtype are parsed; the raw text is returned if parsing fails.
// BLOB columns are copied out of engine-owned memory.
func (s *Stmt) decodeColumn(i int) interface{} {
	ci := C.int(i)
	switch Type(s.colType(i)) {
	case Integer:
		v := int64(C.sqlite3_column_int64(s.stmt, ci))
		// Both modes meet at the safe-integer range: inside it values
		// downgrade to int, outside it they keep all 64 bits. The modes
		// differ only for hosts whose native number is lossy; Go's is
		// not, so the non-safe fallback is int64 either way. The extra
		// int round-trip keeps 32-bit builds from truncating.
		if v >= minSafeInteger && v <= maxSafeInteger && int64(int(v)) == v {
			return int(v)
		}
		return v
	case Float:
		return float64(C.sqlite3_column_double(s.stmt, ci))
	case Text:
		if C.sqlite3_value_subtype(C.sqlite3_column_value(s.stmt, ci)) == jsonSubtype {
			raw := columnText(s.stmt, ci)
			var parsed interface{}
			if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
				return parsed
			}
			return raw
		}
		return columnText(s.stmt, ci)
	case Blob:
		return columnBlob(s.stmt, ci)
	default: // Null
		return nil
	}
}

func columnText(stmt *C.sqlite3_stmt, i C.int) string {
	p := (*C.char)(unsafe.Pointer(C.sqlite3_column_text(stmt, i)))
	if n := C.sqlite3_column_bytes(stmt, i); n > 0 {
		return C.GoStringN(p, n)
	}
	return ""
}

// columnBlob returns an independent copy; the engine-owned pointer is
// never retained.
func columnBlob(stmt *C.sqlite3_stmt, i C.int) []byte {
	p := C.sqlite3_column_blob(stmt, i)
	n := C.sqlite3_column_bytes(stmt, i)
	if p == nil {
		return []byte{}
	}
	return C.GoBytes(p, n)
}
