// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite provides access to the SQLite library, version 3.
//
// Simple example:
//	db, err := sqlite.Open(":memory:")
//	if err != nil {
//		...
//	}
//	defer db.Close()
//	_, err = db.Exec("CREATE TABLE test(id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE)")
//	...
//	ins, err := db.Prepare("INSERT INTO test (name) VALUES (?)")
//	if err != nil {
//		...
//	}
//	defer ins.Finalize()
//	changes, err := ins.Run("Bart")
//	...
//	s, err := db.Prepare("SELECT name FROM test WHERE name LIKE ?")
//	...
//	defer s.Finalize()
//	rows, err := s.All("%a%")
package sqlite

/*
#cgo LDFLAGS: -lsqlite3

#include <sqlite3.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"math"
	"time"
	"unsafe"

	"github.com/hashicorp/go-multierror"
)

// Run-time library version number
// (See http://sqlite.org/c3ref/libversion.html)
func Version() string {
	return C.GoString(C.sqlite3_libversion())
}

// SourceID identifies the check-in of the library source tree.
// (See http://sqlite.org/c3ref/libversion.html)
func SourceID() string {
	return C.GoString(C.sqlite3_sourceid())
}

// Complete reports whether sql appears to end with a complete statement.
// (See http://sqlite.org/c3ref/complete.html)
func Complete(sql string) bool {
	cs := C.CString(sql)
	defer C.free(unsafe.Pointer(cs))
	return C.sqlite3_complete(cs) != 0
}

// Flags for file open operations
// (See http://sqlite.org/c3ref/c_open_autoproxy.html)
type OpenFlag int

const (
	OpenReadOnly     OpenFlag = C.SQLITE_OPEN_READONLY
	OpenReadWrite    OpenFlag = C.SQLITE_OPEN_READWRITE
	OpenCreate       OpenFlag = C.SQLITE_OPEN_CREATE
	OpenURI          OpenFlag = C.SQLITE_OPEN_URI
	OpenMemory       OpenFlag = C.SQLITE_OPEN_MEMORY
	OpenNoMutex      OpenFlag = C.SQLITE_OPEN_NOMUTEX
	OpenFullMutex    OpenFlag = C.SQLITE_OPEN_FULLMUTEX
	OpenSharedCache  OpenFlag = C.SQLITE_OPEN_SHAREDCACHE
	OpenPrivateCache OpenFlag = C.SQLITE_OPEN_PRIVATECACHE
)

type openConfig struct {
	readonly      bool
	create        bool
	memory        bool
	int64Mode     bool
	unsafeConc    bool
	loadExtension bool
	flags         OpenFlag // when non-zero, overrides everything else
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// ReadOnly opens the database for reading only. It forces off the
// create flag.
func ReadOnly() OpenOption { return func(o *openConfig) { o.readonly = true } }

// NoCreate fails Open when the database file does not already exist.
func NoCreate() OpenOption { return func(o *openConfig) { o.create = false } }

// Memory opens a pure in-memory database.
func Memory() OpenOption { return func(o *openConfig) { o.memory = true } }

// Int64 declares that the caller expects full 64-bit INTEGER decoding.
// In either mode, values inside the IEEE-754 safe-integer range
// (|v| <= 2^53-1) decode to int and anything larger decodes to int64,
// so 64-bit magnitudes are never lost; the option records intent for
// hosts that embed this library through a lossy number type.
func Int64() OpenOption { return func(o *openConfig) { o.int64Mode = true } }

// UnsafeConcurrency promises that exactly one goroutine uses the
// connection, enabling per-statement memoization of column names.
// Breaking the promise yields undefined results.
func UnsafeConcurrency() OpenOption { return func(o *openConfig) { o.unsafeConc = true } }

// AllowLoadExtension permits Conn.LoadExtension on this connection.
func AllowLoadExtension() OpenOption { return func(o *openConfig) { o.loadExtension = true } }

// WithFlags bypasses flag composition and passes f verbatim to
// sqlite3_open_v2.
func WithFlags(f OpenFlag) OpenOption { return func(o *openConfig) { o.flags = f } }

// Database connection handle
// (See http://sqlite.org/c3ref/sqlite3.html)
type Conn struct {
	db       *C.sqlite3
	Filename string

	int64Mode     bool
	unsafeConc    bool
	loadExtension bool

	udfs      map[string]*sqliteFunction
	stmtCache *cache
	tx        *txStmts
}

// Open creates a new connection to a SQLite database. The path can be a
// file name, ":memory:", or a URI. Options compose the sqlite3_open_v2
// flags; WithFlags overrides the composition entirely.
//
// (See sqlite3_open_v2: http://sqlite.org/c3ref/open.html)
func Open(path string, opts ...OpenOption) (*Conn, error) {
	cfg := openConfig{create: true}
	for _, o := range opts {
		o(&cfg)
	}

	var flags OpenFlag
	switch {
	case cfg.flags != 0:
		flags = cfg.flags
	case cfg.readonly:
		flags = OpenReadOnly
	case cfg.create:
		flags = OpenReadWrite | OpenCreate
	default:
		flags = OpenReadWrite
	}
	if cfg.flags == 0 && cfg.memory {
		flags |= OpenMemory
	}

	name := C.CString(path)
	defer C.free(unsafe.Pointer(name))
	var db *C.sqlite3
	rv := C.sqlite3_open_v2(name, &db, C.int(flags), nil)
	if rv != C.SQLITE_OK {
		if db != nil {
			C.sqlite3_close(db)
		}
		return nil, &OpenError{Filename: path, Code: Errno(rv)}
	}
	if db == nil {
		return nil, errors.New("sqlite succeeded without returning a database")
	}

	c := &Conn{
		db:            db,
		Filename:      path,
		int64Mode:     cfg.int64Mode,
		unsafeConc:    cfg.unsafeConc,
		loadExtension: cfg.loadExtension,
		stmtCache:     newCache(),
	}
	if cfg.loadExtension {
		C.sqlite3_enable_load_extension(db, 1)
	}
	return c, nil
}

// Exec prepares and executes one parameterized statement, or many
// statements separated by semi-colons when no args are given. It
// returns the number of rows changed by the last statement. Don't use
// it with SELECT or anything else that returns data.
func (c *Conn) Exec(sql string, args ...interface{}) (int, error) {
	if c.db == nil {
		return 0, errClosed
	}
	// Fast path via sqlite3_exec, which doesn't support parameter binding.
	if len(args) == 0 {
		if err := c.exec(sql); err != nil {
			return 0, err
		}
		return c.Changes(), nil
	}
	s, err := c.Prepare(sql)
	if err != nil {
		return 0, err
	}
	defer s.Finalize()
	if s.tail != "" {
		return 0, &MisuseError{Msg: "cannot execute multiple statements when args are specified"}
	}
	return s.Run(args...)
}

func (c *Conn) exec(sql string) error {
	cs := C.CString(sql)
	defer C.free(unsafe.Pointer(cs))
	if rv := C.sqlite3_exec(c.db, cs, nil, nil, nil); rv != C.SQLITE_OK {
		return c.error(rv)
	}
	return nil
}

// Changes counts the rows modified by the most recent statement.
// (See http://sqlite.org/c3ref/changes.html)
func (c *Conn) Changes() int {
	if c.db == nil {
		return 0
	}
	return int(C.sqlite3_changes(c.db))
}

// TotalChanges counts the rows modified since the connection was opened.
// (See http://sqlite.org/c3ref/total_changes.html)
func (c *Conn) TotalChanges() int {
	if c.db == nil {
		return 0
	}
	return int(C.sqlite3_total_changes(c.db))
}

// LastInsertRowid returns the rowid of the most recent successful INSERT.
// (See http://sqlite.org/c3ref/last_insert_rowid.html)
func (c *Conn) LastInsertRowid() int64 {
	if c.db == nil {
		return 0
	}
	return int64(C.sqlite3_last_insert_rowid(c.db))
}

// Autocommit reports whether the connection is outside of an explicit
// transaction.
// (See http://sqlite.org/c3ref/get_autocommit.html)
func (c *Conn) Autocommit() bool {
	if c.db == nil {
		return true
	}
	return C.sqlite3_get_autocommit(c.db) != 0
}

// Interrupt aborts any pending database operation.
// (See http://sqlite.org/c3ref/interrupt.html)
func (c *Conn) Interrupt() {
	if c.db != nil {
		C.sqlite3_interrupt(c.db)
	}
}

// BusyTimeout sets the built-in busy handler.
// (See http://sqlite.org/c3ref/busy_timeout.html)
func (c *Conn) BusyTimeout(d time.Duration) error {
	if c.db == nil {
		return errClosed
	}
	return c.error(C.sqlite3_busy_timeout(c.db, C.int(d/time.Millisecond)))
}

// Serialize returns a memory image of the named attached database,
// "main" by default. The image is a byte-exact copy of what the
// database file would contain on disk.
// (See http://sqlite.org/c3ref/serialize.html)
func (c *Conn) Serialize(schema ...string) ([]byte, error) {
	if c.db == nil {
		return nil, errClosed
	}
	name := "main"
	if len(schema) > 0 {
		name = schema[0]
	}
	zSchema := C.CString(name)
	defer C.free(unsafe.Pointer(zSchema))
	var size C.sqlite3_int64
	p := C.sqlite3_serialize(c.db, zSchema, &size, 0)
	if p == nil {
		return nil, c.LastError()
	}
	defer C.sqlite3_free(unsafe.Pointer(p))
	if size > math.MaxInt32 {
		// C.GoBytes takes an int32 length
		b := make([]byte, size)
		copy(b, unsafe.Slice((*byte)(unsafe.Pointer(p)), size))
		return b, nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(size)), nil
}

// LoadExtension loads a shared library into the connection. It fails
// unless the connection was opened with AllowLoadExtension.
// (See http://sqlite.org/c3ref/load_extension.html)
func (c *Conn) LoadExtension(file string, entryPoint ...string) error {
	if c.db == nil {
		return errClosed
	}
	if !c.loadExtension {
		return &ExtensionError{File: file, Msg: "extension loading is disabled"}
	}
	cfile := C.CString(file)
	defer C.free(unsafe.Pointer(cfile))
	var cproc *C.char
	if len(entryPoint) > 0 {
		cproc = C.CString(entryPoint[0])
		defer C.free(unsafe.Pointer(cproc))
	}
	var errMsg *C.char
	rv := C.sqlite3_load_extension(c.db, cfile, cproc, &errMsg)
	if rv != C.SQLITE_OK {
		msg := ""
		if errMsg != nil {
			msg = C.GoString(errMsg)
			C.sqlite3_free(unsafe.Pointer(errMsg))
		}
		return &ExtensionError{File: file, Msg: msg}
	}
	return nil
}

// Close finalizes every statement still attached to the connection,
// releases registered function callbacks and closes the handle. It is
// idempotent.
// (See http://sqlite.org/c3ref/close.html)
func (c *Conn) Close() error {
	if c == nil {
		return errors.New("nil sqlite database")
	}
	if c.db == nil {
		return nil
	}

	var errs error
	c.stmtCache.flush()
	for _, s := range registeredStmts(c) {
		if err := s.finalize(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	// Anything left was prepared behind our back.
	stmt := C.sqlite3_next_stmt(c.db, nil)
	for stmt != nil {
		logger.Logf("WARN sqlite: dangling statement %q", C.GoString(C.sqlite3_sql(stmt)))
		C.sqlite3_finalize(stmt)
		stmt = C.sqlite3_next_stmt(c.db, stmt)
	}

	rv := C.sqlite3_close(c.db)
	if rv != C.SQLITE_OK {
		if errs != nil {
			return multierror.Append(errs, c.error(rv))
		}
		return c.error(rv)
	}
	c.db = nil
	c.udfs = nil
	return errs
}

func btocint(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
