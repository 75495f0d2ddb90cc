// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite_test

import (
	"reflect"
	"testing"

	"github.com/bmizerany/assert"
	. "github.com/sqlite-go/sqlite"
)

func TestInsertWithStatement(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	s, err := db.Prepare("INSERT INTO test (float_num, int_num, a_string) VALUES (:f, :i, :s)")
	checkNoError(t, err, "prepare error: %s")
	if s == nil {
		t.Fatal("statement is nil")
	}
	defer checkFinalize(s, t)

	assert.T(t, !s.ReadOnly())
	assert.Equal(t, 3, s.BindParameterCount())
	assert.Equal(t, ":f", s.BindParameterName(1))
	assert.Equal(t, 0, s.ColumnCount())

	for i := 0; i < 100; i++ {
		c, err := s.Run(float64(i)*3.14, i, "hello")
		checkNoError(t, err, "insert error: %s")
		assert.Equal(t, 1, c)
		assert.T(t, !s.Busy())
	}

	cs, err := db.Prepare("SELECT COUNT(*) FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(cs, t)
	row, err := cs.Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 100, row[0])
}

func TestNamedBind(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	s, err := db.Prepare("INSERT INTO test (int_num, a_string) VALUES (:i, @s)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	// bare names get an automatic ':' prefix; explicit sigils pass through
	_, err = s.Run(NamedArgs{"i": 7, "@s": "seven"})
	checkNoError(t, err, "named insert error: %s")

	q, err := db.Prepare("SELECT int_num, a_string FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(q, t)
	row, err := q.Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 7, row[0])
	assert.Equal(t, "seven", row[1])
}

func TestNamedBindUnknown(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	s, err := db.Prepare("INSERT INTO test (int_num) VALUES (:i)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	_, err = s.Run(NamedArgs{"nope": 1})
	if _, ok := err.(*BindError); !ok {
		t.Fatalf("expected *BindError but got %T (%v)", err, err)
	}
}

func TestBindFreeze(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	s, err := db.Prepare("INSERT INTO test (int_num) VALUES (?)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	_, err = s.Bind(42)
	checkNoError(t, err, "bind error: %s")
	for i := 0; i < 3; i++ {
		_, err = s.Run()
		checkNoError(t, err, "run error: %s")
	}
	if _, err = s.Bind(43); err == nil {
		t.Fatal("second Bind should fail")
	}
	if _, err = s.Run(43); err == nil {
		t.Fatal("Run with args should fail on a bound statement")
	}

	q, err := db.Prepare("SELECT int_num FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(q, t)
	rows, err := q.Values()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 3, len(rows))
	for _, row := range rows {
		assert.Equal(t, 42, row[0])
	}
}

func TestValuesAndAll(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (int_num, a_string) VALUES (1, 'one'), (2, 'two')")
	checkNoError(t, err, "insert error: %s")

	s, err := db.Prepare("SELECT int_num, a_string FROM test ORDER BY int_num")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	vals, err := s.Values()
	checkNoError(t, err, "values error: %s")
	assert.Equal(t, 2, len(vals))
	assert.Equal(t, 1, vals[0][0])
	assert.Equal(t, "one", vals[0][1])

	rows, err := s.All()
	checkNoError(t, err, "all error: %s")
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, 2, rows[1]["int_num"])
	assert.Equal(t, "two", rows[1]["a_string"])
}

func TestDuplicateColumnNames(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	s, err := db.Prepare("SELECT 1 AS a, 2 AS a")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.Get()
	checkNoError(t, err, "get error: %s")
	assert.Equal(t, 2, row["a"]) // rightmost column wins
}

func TestGetAbsent(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	s, err := db.Prepare("SELECT * FROM test WHERE 1 = 0")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	row, err := s.Get()
	checkNoError(t, err, "get error: %s")
	assert.T(t, row == nil)

	val, err := s.Value()
	checkNoError(t, err, "value error: %s")
	assert.T(t, val == nil)
}

func TestEach(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (int_num) VALUES (1), (2), (3)")
	checkNoError(t, err, "insert error: %s")
	s, err := db.Prepare("SELECT int_num FROM test ORDER BY int_num")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	var got []interface{}
	err = s.Each(func(row RowMap) error {
		got = append(got, row["int_num"])
		return nil
	})
	checkNoError(t, err, "each error: %s")
	if !reflect.DeepEqual(got, []interface{}{1, 2, 3}) {
		t.Fatalf("unexpected rows: %v", got)
	}
	assert.T(t, !s.Busy())
}

func TestNextScan(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (float_num, int_num, a_string) VALUES (3.14, 42, 'hi')")
	checkNoError(t, err, "insert error: %s")
	s, err := db.Prepare("SELECT float_num, int_num, a_string FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	ok, err := s.Next()
	checkNoError(t, err, "next error: %s")
	assert.T(t, ok)
	var f float64
	var i int
	var str string
	checkNoError(t, s.Scan(&f, &i, &str), "scan error: %s")
	assert.Equal(t, 3.14, f)
	assert.Equal(t, 42, i)
	assert.Equal(t, "hi", str)

	ok, err = s.Next()
	checkNoError(t, err, "next error: %s")
	assert.T(t, !ok)
}

func TestDoubleFinalize(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	s, err := db.Prepare("SELECT 1")
	checkNoError(t, err, "prepare error: %s")
	checkFinalize(s, t)
	checkFinalize(s, t)
}

func TestFinalizedMisuse(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	s, err := db.Prepare("SELECT 1")
	checkNoError(t, err, "prepare error: %s")
	checkFinalize(s, t)
	if _, err = s.Run(); err == nil {
		t.Fatal("Run on a finalized statement should fail")
	}
}

func TestStmtMetadata(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	s, err := db.Prepare("SELECT 1 AS one WHERE 1 = ?")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)

	assert.T(t, s.ReadOnly())
	assert.Equal(t, "SELECT 1 AS one WHERE 1 = ?", s.SQL())
	assert.Equal(t, []string{"one"}, s.ColumnNames())
	_, err = s.Bind(1)
	checkNoError(t, err, "bind error: %s")
	assert.Equal(t, "SELECT 1 AS one WHERE 1 = 1", s.ExpandedSQL())
	assert.Equal(t, db, s.Conn())
}

func TestPrepareError(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	_, err := db.Prepare("SELEKT 1")
	pe, ok := err.(*PrepareError)
	if !ok {
		t.Fatalf("expected *PrepareError but got %T", err)
	}
	assert.T(t, pe.Msg != "")
}

func TestStepError(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (id, int_num) VALUES (1, 1)")
	checkNoError(t, err, "insert error: %s")
	s, err := db.Prepare("INSERT INTO test (id, int_num) VALUES (1, 2)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	_, err = s.Run()
	if _, ok := err.(*StepError); !ok {
		t.Fatalf("expected *StepError but got %T (%v)", err, err)
	}
}

func TestVersionValue(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	s, err := db.Prepare("SELECT sqlite_version()")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.Value()
	checkNoError(t, err, "value error: %s")
	assert.Equal(t, 1, len(row))
	assert.Equal(t, Version(), row[0])
}
