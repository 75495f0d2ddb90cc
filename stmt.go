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
	"runtime"
	"sync"
	"unsafe"
)

// RowMap is a row keyed by column name. When a query yields duplicate
// column names, the rightmost column wins.
type RowMap map[string]interface{}

// NamedArgs binds parameters by name. A bare name is given an automatic
// ':' prefix unless it already starts with ':', '@' or '$'.
type NamedArgs map[string]interface{}

// Every live statement appears in this process-wide map so that
// Conn.Close can finalize statements the caller forgot about. Guarded
// by stmtsMu; the finalizer path and the close path race on it.
var (
	stmtsMu sync.Mutex
	stmts   = make(map[*C.sqlite3_stmt]*Stmt)
)

func registerStmt(s *Stmt) {
	stmtsMu.Lock()
	stmts[s.stmt] = s
	stmtsMu.Unlock()
}

func unregisterStmt(stmt *C.sqlite3_stmt) {
	stmtsMu.Lock()
	delete(stmts, stmt)
	stmtsMu.Unlock()
}

func registeredStmts(c *Conn) []*Stmt {
	stmtsMu.Lock()
	defer stmtsMu.Unlock()
	var out []*Stmt
	for _, s := range stmts {
		if s.conn == c {
			out = append(out, s)
		}
	}
	return out
}

// Stmt is a prepared statement.
// (See http://sqlite.org/c3ref/stmt.html)
type Stmt struct {
	conn *Conn
	stmt *C.sqlite3_stmt
	tail string
	text string

	nVars int
	nCols int

	bound    bool // Bind froze the parameter set
	callback bool // stepping may re-enter Go through a registered function
	haveRow  bool

	colNames []string // memoized under UnsafeConcurrency only
	colTypes []byte   // storage class tags for the current row, 0 = unread
}

// Prepare compiles the first statement in sql. Any remaining text is
// kept in the statement's tail and rejected by Exec with args.
// (See http://sqlite.org/c3ref/prepare.html)
func (c *Conn) Prepare(sql string) (*Stmt, error) {
	if c.db == nil {
		return nil, errClosed
	}
	if s := c.stmtCache.find(sql); s != nil {
		return s, nil
	}
	return c.prepare(sql)
}

func (c *Conn) prepare(sql string) (*Stmt, error) {
	zSQL := C.CString(sql)
	defer C.free(unsafe.Pointer(zSQL))

	var stmt *C.sqlite3_stmt
	var tail *C.char
	rv := C.sqlite3_prepare_v2(c.db, zSQL, -1, &stmt, &tail)
	if rv != C.SQLITE_OK {
		return nil, &PrepareError{
			Code: Errno(rv),
			Msg:  C.GoString(C.sqlite3_errmsg(c.db)),
			SQL:  sql,
		}
	}

	s := &Stmt{conn: c, stmt: stmt}
	if tail != nil {
		s.tail = C.GoString(tail)
	}
	if stmt == nil {
		// sql was a comment or whitespace
		return s, nil
	}
	s.nVars = int(C.sqlite3_bind_parameter_count(stmt))
	s.nCols = int(C.sqlite3_column_count(stmt))
	if s.nCols > 0 {
		s.colTypes = make([]byte, s.nCols)
	}
	registerStmt(s)
	// The registry holds s until it is finalized, so this finalizer does
	// not run while s is registered; statements the caller never
	// finalizes are released by Conn.Close.
	runtime.SetFinalizer(s, func(s *Stmt) { s.finalize() })
	return s, nil
}

// Finalize releases the compiled statement and removes it from the
// process-wide registry. When the connection's statement cache is on,
// the statement is instead reset, cleared and kept for reuse by
// Prepare. It is idempotent and safe to call after the owning
// connection has been closed.
// (See http://sqlite.org/c3ref/finalize.html)
func (s *Stmt) Finalize() error {
	if s.conn != nil && s.conn.stmtCache.release(s) {
		return nil
	}
	return s.finalize()
}

func (s *Stmt) finalize() error {
	stmt := s.stmt
	if stmt == nil {
		return nil
	}
	s.stmt = nil
	s.haveRow = false
	s.colNames = nil
	s.colTypes = nil
	runtime.SetFinalizer(s, nil)
	unregisterStmt(stmt)
	if rv := C.sqlite3_finalize(stmt); rv != C.SQLITE_OK {
		return s.conn.error(rv)
	}
	return nil
}

// Bind freezes the parameter set for every subsequent call. A second
// call fails. Arguments are either a positional list or a single
// NamedArgs (or plain map) value.
func (s *Stmt) Bind(args ...interface{}) (*Stmt, error) {
	if s.stmt == nil {
		return nil, &MisuseError{Msg: "statement is finalized"}
	}
	if s.bound {
		return nil, &TransactionMisuseError{Msg: "statement parameters are already bound"}
	}
	C.sqlite3_reset(s.stmt)
	if err := s.bindArgs(args); err != nil {
		return nil, err
	}
	s.bound = true
	return s, nil
}

// ClearBindings sets all parameters back to NULL and unfreezes Bind.
// (See http://sqlite.org/c3ref/clear_bindings.html)
func (s *Stmt) ClearBindings() error {
	if s.stmt == nil {
		return &MisuseError{Msg: "statement is finalized"}
	}
	s.bound = false
	return s.conn.error(C.sqlite3_clear_bindings(s.stmt))
}

// Reset returns the statement to the ready state, keeping bindings.
// (See http://sqlite.org/c3ref/reset.html)
func (s *Stmt) Reset() error {
	if s.stmt == nil {
		return &MisuseError{Msg: "statement is finalized"}
	}
	s.haveRow = false
	return s.conn.error(C.sqlite3_reset(s.stmt))
}

// begin starts a fresh execution: reset, then either keep the frozen
// bindings or apply args for this call only.
func (s *Stmt) begin(args []interface{}) error {
	if s.stmt == nil {
		return &MisuseError{Msg: "statement is finalized"}
	}
	if s.conn.db == nil {
		return errClosed
	}
	s.haveRow = false
	C.sqlite3_reset(s.stmt)
	if s.bound {
		if len(args) > 0 {
			return &TransactionMisuseError{Msg: "statement parameters are already bound"}
		}
		return nil
	}
	if s.nVars > 0 {
		C.sqlite3_clear_bindings(s.stmt)
	}
	if len(args) > 0 {
		return s.bindArgs(args)
	}
	return nil
}

func (s *Stmt) bindArgs(args []interface{}) error {
	if len(args) == 1 {
		switch m := args[0].(type) {
		case NamedArgs:
			return s.bindNamed(m)
		case map[string]interface{}:
			return s.bindNamed(m)
		}
	}
	for i, v := range args {
		if err := s.bindValue(i+1, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stmt) bindNamed(args map[string]interface{}) error {
	for name, v := range args {
		key := name
		if key == "" {
			return &BindError{Name: name, Msg: "empty parameter name"}
		}
		switch key[0] {
		case ':', '@', '$':
		default:
			key = ":" + key
		}
		zName := C.CString(key)
		i := C.sqlite3_bind_parameter_index(s.stmt, zName)
		C.free(unsafe.Pointer(zName))
		if i == 0 {
			return &BindError{Name: name, Msg: "unknown parameter name"}
		}
		if err := s.bindValue(int(i), v); err != nil {
			return err
		}
	}
	return nil
}

// step advances the statement. It returns true while a row is
// available. On DONE the statement is reset so locks are released
// without waiting for the next call.
func (s *Stmt) step() (bool, error) {
	rv := C.sqlite3_step(s.stmt)
	switch rv {
	case C.SQLITE_ROW:
		s.haveRow = true
		for i := range s.colTypes {
			s.colTypes[i] = 0
		}
		return true, nil
	case C.SQLITE_DONE:
		s.haveRow = false
		C.sqlite3_reset(s.stmt)
		return false, nil
	}
	s.haveRow = false
	C.sqlite3_reset(s.stmt)
	return false, &StepError{Code: Errno(rv), Msg: C.GoString(C.sqlite3_errmsg(s.conn.db))}
}

// Run steps the statement to completion, discarding rows, and returns
// the connection's change count.
func (s *Stmt) Run(args ...interface{}) (int, error) {
	if err := s.begin(args); err != nil {
		return 0, err
	}
	for {
		ok, err := s.step()
		if err != nil {
			return 0, err
		}
		if !ok {
			return s.conn.Changes(), nil
		}
	}
}

// Next makes the next row available for scanning. It reports false when
// the statement is done.
func (s *Stmt) Next() (bool, error) {
	if s.stmt == nil {
		return false, &MisuseError{Msg: "statement is finalized"}
	}
	return s.step()
}

// Busy reports whether a row is currently available.
func (s *Stmt) Busy() bool {
	return s.haveRow
}

// Values runs the statement and returns every row as an ordered slice
// of decoded columns.
func (s *Stmt) Values(args ...interface{}) ([][]interface{}, error) {
	if err := s.begin(args); err != nil {
		return nil, err
	}
	var rows [][]interface{}
	for {
		ok, err := s.step()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		row, err := s.rowSlice()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// All runs the statement and returns every row as a RowMap.
func (s *Stmt) All(args ...interface{}) ([]RowMap, error) {
	if err := s.begin(args); err != nil {
		return nil, err
	}
	var rows []RowMap
	for {
		ok, err := s.step()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		row, err := s.rowMap()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Get runs the statement, returns the first row as a RowMap and resets.
// It returns nil when the statement steps directly to DONE.
func (s *Stmt) Get(args ...interface{}) (RowMap, error) {
	if err := s.begin(args); err != nil {
		return nil, err
	}
	ok, err := s.step()
	if err != nil || !ok {
		return nil, err
	}
	row, err := s.rowMap()
	if rerr := s.Reset(); err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Value runs the statement, returns the first row as an ordered slice
// and resets. It returns nil when the statement yields no row.
func (s *Stmt) Value(args ...interface{}) ([]interface{}, error) {
	if err := s.begin(args); err != nil {
		return nil, err
	}
	ok, err := s.step()
	if err != nil || !ok {
		return nil, err
	}
	row, err := s.rowSlice()
	if rerr := s.Reset(); err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Each runs the statement and invokes fn for each row, one step at a
// time. A non-nil error from fn stops the iteration, resets the
// statement and is returned.
func (s *Stmt) Each(fn func(RowMap) error, args ...interface{}) error {
	if err := s.begin(args); err != nil {
		return err
	}
	for {
		ok, err := s.step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		row, err := s.rowMap()
		if err == nil {
			err = fn(row)
		}
		if err != nil {
			s.Reset()
			return err
		}
	}
}

// Scan copies the current row into successive destination pointers.
// Supported destinations: *int, *int64, *float64, *bool, *string,
// *[]byte, *interface{}. Nil destinations skip their column.
func (s *Stmt) Scan(dst ...interface{}) error {
	if !s.haveRow {
		return &MisuseError{Msg: "no row to scan"}
	}
	if len(dst) > s.nCols {
		return &MisuseError{Msg: "cannot scan more values than columns"}
	}
	for i, v := range dst {
		if v == nil {
			continue
		}
		if err := s.scan(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stmt) scan(i int, v interface{}) error {
	ci := C.int(i)
	if s.colType(i) == C.SQLITE_NULL {
		switch v := v.(type) {
		case *interface{}:
			*v = nil
		case *int:
			*v = 0
		case *int64:
			*v = 0
		case *float64:
			*v = 0
		case *bool:
			*v = false
		case *string:
			*v = ""
		case *[]byte:
			*v = nil
		default:
			return &MisuseError{Msg: "unscannable destination type"}
		}
		return nil
	}
	switch v := v.(type) {
	case *interface{}:
		*v = s.decodeColumn(i)
	case *int:
		*v = int(C.sqlite3_column_int64(s.stmt, ci))
	case *int64:
		*v = int64(C.sqlite3_column_int64(s.stmt, ci))
	case *float64:
		*v = float64(C.sqlite3_column_double(s.stmt, ci))
	case *bool:
		*v = C.sqlite3_column_int64(s.stmt, ci) != 0
	case *string:
		*v = columnText(s.stmt, ci)
	case *[]byte:
		*v = columnBlob(s.stmt, ci)
	default:
		return &MisuseError{Msg: "unscannable destination type"}
	}
	return nil
}

// colType caches the storage class of column i for the current row.
// The original value must be read before any sqlite3_column_*
// conversion makes it undefined.
func (s *Stmt) colType(i int) byte {
	typ := s.colTypes[i]
	if typ == 0 {
		typ = byte(C.sqlite3_column_type(s.stmt, C.int(i)))
		s.colTypes[i] = typ
	}
	return typ
}

func (s *Stmt) rowSlice() ([]interface{}, error) {
	row := make([]interface{}, s.nCols)
	for i := range row {
		row[i] = s.decodeColumn(i)
	}
	return row, nil
}

func (s *Stmt) rowMap() (RowMap, error) {
	names := s.ColumnNames()
	row := make(RowMap, s.nCols)
	for i := range names {
		row[names[i]] = s.decodeColumn(i)
	}
	return row, nil
}

// ColumnNames returns the result column names. They are memoized only
// when the connection was opened with UnsafeConcurrency and the
// statement does not re-enter Go code while stepping.
// (See http://sqlite.org/c3ref/column_name.html)
func (s *Stmt) ColumnNames() []string {
	if s.colNames != nil {
		return s.colNames
	}
	names := make([]string, s.nCols)
	for i := range names {
		if name := C.sqlite3_column_name(s.stmt, C.int(i)); name != nil {
			names[i] = C.GoString(name)
		}
	}
	if s.conn.unsafeConc && !s.callback {
		s.colNames = names
	}
	return names
}

// ColumnCount returns the number of result columns.
// (See http://sqlite.org/c3ref/column_count.html)
func (s *Stmt) ColumnCount() int {
	return s.nCols
}

// BindParameterCount returns the number of SQL parameters.
// (See http://sqlite.org/c3ref/bind_parameter_count.html)
func (s *Stmt) BindParameterCount() int {
	return s.nVars
}

// BindParameterName returns the name of parameter i (1-based), or ""
// for unnamed parameters.
// (See http://sqlite.org/c3ref/bind_parameter_name.html)
func (s *Stmt) BindParameterName(i int) string {
	if s.stmt == nil {
		return ""
	}
	return C.GoString(C.sqlite3_bind_parameter_name(s.stmt, C.int(i)))
}

// SQL returns the text used to create the statement.
// (See http://sqlite.org/c3ref/sql.html)
func (s *Stmt) SQL() string {
	if s.text == "" && s.stmt != nil {
		s.text = C.GoString(C.sqlite3_sql(s.stmt))
	}
	return s.text
}

// ExpandedSQL returns the statement text with bound parameters
// expanded into literals.
// (See http://sqlite.org/c3ref/expanded_sql.html)
func (s *Stmt) ExpandedSQL() string {
	if s.stmt == nil {
		return ""
	}
	p := C.sqlite3_expanded_sql(s.stmt)
	if p == nil {
		return ""
	}
	defer C.sqlite3_free(unsafe.Pointer(p))
	return C.GoString(p)
}

// ReadOnly reports whether the statement makes no direct changes to
// the database.
// (See http://sqlite.org/c3ref/stmt_readonly.html)
func (s *Stmt) ReadOnly() bool {
	return s.stmt == nil || C.sqlite3_stmt_readonly(s.stmt) != 0
}

// Tail returns the uncompiled remainder of the SQL passed to Prepare.
func (s *Stmt) Tail() string {
	return s.tail
}

// Conn returns the connection that created this statement.
func (s *Stmt) Conn() *Conn {
	return s.conn
}

// EnableCallback marks the statement as one that invokes registered Go
// functions while stepping. The memoization fast paths are unsafe when
// a function re-enters the wrapper, so this flag turns them off.
func (s *Stmt) EnableCallback() *Stmt {
	s.callback = true
	s.colNames = nil
	return s
}
