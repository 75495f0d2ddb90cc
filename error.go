// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite provides access to the SQLite library, version 3.

package sqlite

/*
#include <sqlite3.h>
*/
import "C"

import (
	"errors"
	"fmt"
)

// Result codes
// (See http://sqlite.org/c3ref/c_abort.html)
type Errno int

func (e Errno) Error() string {
	s := errText[e]
	if s == "" {
		return fmt.Sprintf("errno %d", int(e))
	}
	return s
}

var (
	ErrError      error = Errno(C.SQLITE_ERROR)      /* SQL error or missing database */
	ErrInternal   error = Errno(C.SQLITE_INTERNAL)   /* Internal logic error in SQLite */
	ErrPerm       error = Errno(C.SQLITE_PERM)       /* Access permission denied */
	ErrAbort      error = Errno(C.SQLITE_ABORT)      /* Callback routine requested an abort */
	ErrBusy       error = Errno(C.SQLITE_BUSY)       /* The database file is locked */
	ErrLocked     error = Errno(C.SQLITE_LOCKED)     /* A table in the database is locked */
	ErrNoMem      error = Errno(C.SQLITE_NOMEM)      /* A malloc() failed */
	ErrReadOnly   error = Errno(C.SQLITE_READONLY)   /* Attempt to write a readonly database */
	ErrInterrupt  error = Errno(C.SQLITE_INTERRUPT)  /* Operation terminated by sqlite3_interrupt()*/
	ErrIOErr      error = Errno(C.SQLITE_IOERR)      /* Some kind of disk I/O error occurred */
	ErrCorrupt    error = Errno(C.SQLITE_CORRUPT)    /* The database disk image is malformed */
	ErrNotFound   error = Errno(C.SQLITE_NOTFOUND)   /* Unknown opcode in sqlite3_file_control() */
	ErrFull       error = Errno(C.SQLITE_FULL)       /* Insertion failed because database is full */
	ErrCantOpen   error = Errno(C.SQLITE_CANTOPEN)   /* Unable to open the database file */
	ErrProtocol   error = Errno(C.SQLITE_PROTOCOL)   /* Database lock protocol error */
	ErrEmpty      error = Errno(C.SQLITE_EMPTY)      /* Database is empty */
	ErrSchema     error = Errno(C.SQLITE_SCHEMA)     /* The database schema changed */
	ErrTooBig     error = Errno(C.SQLITE_TOOBIG)     /* String or BLOB exceeds size limit */
	ErrConstraint error = Errno(C.SQLITE_CONSTRAINT) /* Abort due to constraint violation */
	ErrMismatch   error = Errno(C.SQLITE_MISMATCH)   /* Data type mismatch */
	ErrMisuse     error = Errno(C.SQLITE_MISUSE)     /* Library used incorrectly */
	ErrNolfs      error = Errno(C.SQLITE_NOLFS)      /* Uses OS features not supported on host */
	ErrAuth       error = Errno(C.SQLITE_AUTH)       /* Authorization denied */
	ErrFormat     error = Errno(C.SQLITE_FORMAT)     /* Auxiliary database format error */
	ErrRange      error = Errno(C.SQLITE_RANGE)      /* 2nd parameter to sqlite3_bind out of range */
	ErrNotDB      error = Errno(C.SQLITE_NOTADB)     /* File opened that is not a database file */
	Row                 = Errno(C.SQLITE_ROW)        /* sqlite3_step() has another row ready */
	Done                = Errno(C.SQLITE_DONE)       /* sqlite3_step() has finished executing */
)

var errText = map[Errno]string{
	C.SQLITE_ERROR:      "SQL error or missing database",
	C.SQLITE_INTERNAL:   "Internal logic error in SQLite",
	C.SQLITE_PERM:       "Access permission denied",
	C.SQLITE_ABORT:      "Callback routine requested an abort",
	C.SQLITE_BUSY:       "The database file is locked",
	C.SQLITE_LOCKED:     "A table in the database is locked",
	C.SQLITE_NOMEM:      "A malloc() failed",
	C.SQLITE_READONLY:   "Attempt to write a readonly database",
	C.SQLITE_INTERRUPT:  "Operation terminated by sqlite3_interrupt()",
	C.SQLITE_IOERR:      "Some kind of disk I/O error occurred",
	C.SQLITE_CORRUPT:    "The database disk image is malformed",
	C.SQLITE_NOTFOUND:   "Unknown opcode in sqlite3_file_control()",
	C.SQLITE_FULL:       "Insertion failed because database is full",
	C.SQLITE_CANTOPEN:   "Unable to open the database file",
	C.SQLITE_PROTOCOL:   "Database lock protocol error",
	C.SQLITE_EMPTY:      "Database is empty",
	C.SQLITE_SCHEMA:     "The database schema changed",
	C.SQLITE_TOOBIG:     "String or BLOB exceeds size limit",
	C.SQLITE_CONSTRAINT: "Abort due to constraint violation",
	C.SQLITE_MISMATCH:   "Data type mismatch",
	C.SQLITE_MISUSE:     "Library used incorrectly",
	C.SQLITE_NOLFS:      "Uses OS features not supported on host",
	C.SQLITE_AUTH:       "Authorization denied",
	C.SQLITE_FORMAT:     "Auxiliary database format error",
	C.SQLITE_RANGE:      "2nd parameter to sqlite3_bind out of range",
	C.SQLITE_NOTADB:     "File opened that is not a database file",
	Row:                 "sqlite3_step() has another row ready",
	Done:                "sqlite3_step() has finished executing",
}

// OpenError is returned when a database file cannot be opened.
// The partially created handle is closed before the error is surfaced.
type OpenError struct {
	Filename string
	Code     Errno
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open %q: %s", e.Filename, e.Code.Error())
}
func (e *OpenError) Unwrap() error { return e.Code }

// PrepareError is returned when SQL cannot be compiled.
type PrepareError struct {
	Code Errno
	Msg  string
	SQL  string
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.Error(), e.Msg)
}
func (e *PrepareError) Unwrap() error { return e.Code }

// BindError is returned when a parameter has an unsupported type or an
// unknown name.
type BindError struct {
	Name  string // named parameter, when used
	Index int    // 1-based position otherwise
	Msg   string
}

func (e *BindError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("bind %s: %s", e.Name, e.Msg)
	}
	return fmt.Sprintf("bind %d: %s", e.Index, e.Msg)
}

// StepError is returned when sqlite3_step reports anything other than
// SQLITE_ROW or SQLITE_DONE.
type StepError struct {
	Code Errno
	Msg  string
}

func (e *StepError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Code.Error(), e.Msg)
	}
	return e.Code.Error()
}
func (e *StepError) Unwrap() error { return e.Code }

// BlobError is returned by incremental BLOB I/O operations.
type BlobError struct {
	Op   string
	Code Errno
	Msg  string
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob %s: %s: %s", e.Op, e.Code.Error(), e.Msg)
}
func (e *BlobError) Unwrap() error { return e.Code }

// FunctionError wraps an error returned (or a panic raised) by a
// user-defined function. It surfaces as an SQL error in the statement
// that invoked the function.
type FunctionError struct {
	Name string
	Msg  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s: %s", e.Name, e.Msg)
}

// ExtensionError is returned when extension loading fails or is disabled.
type ExtensionError struct {
	File string
	Msg  string
}

func (e *ExtensionError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("extension %s: %s", e.File, e.Msg)
	}
	return e.Msg
}

// TransactionMisuseError is returned by Stmt.Bind, and by the
// statement's run methods when given arguments, once Bind has already
// frozen the statement's parameters. Tx wrappers can be invoked any
// number of times and do not return it.
type TransactionMisuseError struct {
	Msg string
}

func (e *TransactionMisuseError) Error() string { return e.Msg }

// MisuseError is returned for operations against a closed Conn or an
// already finalized Stmt.
type MisuseError struct {
	Msg string
}

func (e *MisuseError) Error() string { return e.Msg }

var errClosed = errors.New("sqlite: database is closed")

func (c *Conn) error(rv C.int, details ...string) error {
	if c == nil || c.db == nil {
		return errClosed
	}
	if rv == C.SQLITE_OK {
		return nil
	}
	msg := C.GoString(C.sqlite3_errmsg(c.db))
	if len(details) > 0 {
		msg = msg + " (" + details[0] + ")"
	}
	return &StepError{Code: Errno(rv), Msg: msg}
}

// LastError returns the error for the most recent failed API call.
// (See http://sqlite.org/c3ref/errcode.html)
func (c *Conn) LastError() error {
	if c == nil || c.db == nil {
		return errClosed
	}
	rv := C.sqlite3_errcode(c.db)
	if rv == C.SQLITE_OK {
		return nil
	}
	return &StepError{Code: Errno(rv), Msg: C.GoString(C.sqlite3_errmsg(c.db))}
}
