// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

// Savepoint name reserved by Conn.Transaction for nested invocations.
const txSavepoint = "_sqlite_gosq_tx_"

// Begin modes for explicit transactions.
// (See http://sqlite.org/lang_transaction.html)
type TransactionMode int

const (
	Default TransactionMode = iota
	Deferred
	Immediate
	Exclusive
)

// txStmts holds the controller's pre-prepared statements, one begin
// variant per mode plus the shared commit/rollback/savepoint set. They
// are prepared lazily, pinned outside the statement cache and
// finalized with the connection.
type txStmts struct {
	begin      [4]*Stmt
	commit     *Stmt
	rollback   *Stmt
	savepoint  *Stmt
	release    *Stmt
	rollbackTo *Stmt
}

var beginSQL = [4]string{
	Default:   "BEGIN",
	Deferred:  "BEGIN DEFERRED",
	Immediate: "BEGIN IMMEDIATE",
	Exclusive: "BEGIN EXCLUSIVE",
}

func (c *Conn) txBegin(mode TransactionMode) (*Stmt, error) {
	if c.tx == nil {
		c.tx = &txStmts{}
	}
	if c.tx.begin[mode] == nil {
		s, err := c.prepare(beginSQL[mode])
		if err != nil {
			return nil, err
		}
		c.tx.begin[mode] = s
	}
	return c.tx.begin[mode], nil
}

func (c *Conn) txShared(slot **Stmt, sql string) (*Stmt, error) {
	if c.tx == nil {
		c.tx = &txStmts{}
	}
	if *slot == nil {
		s, err := c.prepare(sql)
		if err != nil {
			return nil, err
		}
		*slot = s
	}
	return *slot, nil
}

func (c *Conn) txRun(slot **Stmt, sql string) error {
	s, err := c.txShared(slot, sql)
	if err != nil {
		return err
	}
	_, err = s.Run()
	return err
}

// Tx wraps a function in a transaction. Each invocation observes the
// connection's autocommit state: at top level it brackets fn with
// BEGIN/COMMIT (ROLLBACK on error); inside an open transaction it uses
// the savepoint family instead, so transactions nest.
type Tx struct {
	c  *Conn
	fn func(*Conn) error
}

// Transaction builds a transaction wrapper around fn. The returned Tx
// can be invoked any number of times via Run or one of the mode
// variants.
func (c *Conn) Transaction(fn func(*Conn) error) *Tx {
	return &Tx{c: c, fn: fn}
}

// Database returns the connection the wrapper operates on.
func (t *Tx) Database() *Conn {
	return t.c
}

// Run invokes the wrapped function under the default begin mode.
func (t *Tx) Run() error { return t.run(Default) }

// Deferred invokes the wrapped function under BEGIN DEFERRED.
func (t *Tx) Deferred() error { return t.run(Deferred) }

// Immediate invokes the wrapped function under BEGIN IMMEDIATE.
func (t *Tx) Immediate() error { return t.run(Immediate) }

// Exclusive invokes the wrapped function under BEGIN EXCLUSIVE.
func (t *Tx) Exclusive() error { return t.run(Exclusive) }

func (t *Tx) run(mode TransactionMode) error {
	c := t.c
	if c.db == nil {
		return errClosed
	}
	if c.tx == nil {
		c.tx = &txStmts{}
	}
	if !c.Autocommit() {
		return t.runNested()
	}

	begin, err := c.txBegin(mode)
	if err != nil {
		return err
	}
	if _, err = begin.Run(); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			c.txRun(&c.tx.rollback, "ROLLBACK")
			panic(p)
		}
	}()
	if err = t.fn(c); err != nil {
		c.txRun(&c.tx.rollback, "ROLLBACK")
		return err
	}
	return c.txRun(&c.tx.commit, "COMMIT")
}

func (t *Tx) runNested() error {
	c := t.c
	if err := c.txRun(&c.tx.savepoint, `SAVEPOINT "`+txSavepoint+`"`); err != nil {
		return err
	}
	rollbackTo := func() {
		c.txRun(&c.tx.rollbackTo, `ROLLBACK TO "`+txSavepoint+`"`)
		if !c.Autocommit() {
			// ROLLBACK TO leaves the savepoint on the stack; pop it so
			// the outer transaction can still commit.
			c.txRun(&c.tx.release, `RELEASE "`+txSavepoint+`"`)
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollbackTo()
			panic(p)
		}
	}()
	if err := t.fn(c); err != nil {
		rollbackTo()
		return err
	}
	return c.txRun(&c.tx.release, `RELEASE "`+txSavepoint+`"`)
}
