// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
	. "github.com/sqlite-go/sqlite"
)

func add(args ...interface{}) (interface{}, error) {
	return args[0].(int64) + args[1].(int64), nil
}

func TestScalarFunction(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	err := db.CreateFunction("add", 2, add, Deterministic())
	checkNoError(t, err, "couldn't create function: %s")

	s, err := db.Prepare("SELECT add(1, 2)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.EnableCallback().Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 3, row[0])

	// removal
	checkNoError(t, db.CreateFunction("add", 2, nil), "couldn't remove function: %s")
	if _, err = db.Prepare("SELECT add(1, 2)"); err == nil {
		t.Fatal("function should be gone")
	}
}

func TestScalarFunctionTypes(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	echo := func(args ...interface{}) (interface{}, error) { return args[0], nil }
	checkNoError(t, db.CreateFunction("echo", 1, echo), "create error: %s")

	s, err := db.Prepare("SELECT echo(?)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	s.EnableCallback()

	row, err := s.Value("hello")
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, "hello", row[0])

	row, err = s.Value([]byte{1, 2})
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, []byte{1, 2}, row[0])

	row, err = s.Value(nil)
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, nil, row[0])

	row, err = s.Value(2.5)
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 2.5, row[0])
}

func TestScalarFunctionError(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	fail := func(args ...interface{}) (interface{}, error) {
		return nil, errors.New("deliberate failure")
	}
	checkNoError(t, db.CreateFunction("fail", 0, fail), "create error: %s")

	s, err := db.Prepare("SELECT fail()")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	_, err = s.EnableCallback().Value()
	if err == nil || !strings.Contains(err.Error(), "deliberate failure") {
		t.Fatalf("expected function error but got %v", err)
	}
}

func TestScalarFunctionPanic(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	explode := func(args ...interface{}) (interface{}, error) { panic("kaboom") }
	checkNoError(t, db.CreateFunction("explode", 0, explode), "create error: %s")

	s, err := db.Prepare("SELECT explode()")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	_, err = s.EnableCallback().Value()
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected panic to surface as SQL error but got %v", err)
	}
}

func TestVarargsFunction(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	count := func(args ...interface{}) (interface{}, error) { return len(args), nil }
	checkNoError(t, db.CreateFunction("argc", 0, count, Varargs()), "create error: %s")

	s, err := db.Prepare("SELECT argc(1, 'two', x'03', NULL)")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.EnableCallback().Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 4, row[0])
}

func TestAggregateFunction(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (int_num) VALUES (1), (2), (3)")
	checkNoError(t, err, "insert error: %s")

	sum2x := Aggregate{
		Start: int64(0),
		Step: func(acc interface{}, args ...interface{}) (interface{}, error) {
			return acc.(int64) + args[0].(int64), nil
		},
		Final: func(acc interface{}) (interface{}, error) {
			return 2 * acc.(int64), nil
		},
	}
	checkNoError(t, db.CreateAggregate("sum2x", 1, sum2x), "create error: %s")

	s, err := db.Prepare("SELECT sum2x(int_num) FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.EnableCallback().Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 12, row[0])
}

func TestAggregateWithoutFinal(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (int_num) VALUES (4), (5)")
	checkNoError(t, err, "insert error: %s")

	mysum := Aggregate{
		Start: func() interface{} { return int64(0) },
		Step: func(acc interface{}, args ...interface{}) (interface{}, error) {
			return acc.(int64) + args[0].(int64), nil
		},
	}
	checkNoError(t, db.CreateAggregate("mysum", 1, mysum), "create error: %s")

	s, err := db.Prepare("SELECT mysum(int_num) FROM test")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	row, err := s.EnableCallback().Value()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 9, row[0])
}

func TestAggregateGrouping(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	createTable(db, t)
	_, err := db.Exec("INSERT INTO test (int_num, a_string) VALUES (1, 'a'), (2, 'a'), (10, 'b')")
	checkNoError(t, err, "insert error: %s")

	mysum := Aggregate{
		Start: int64(0),
		Step: func(acc interface{}, args ...interface{}) (interface{}, error) {
			return acc.(int64) + args[0].(int64), nil
		},
	}
	checkNoError(t, db.CreateAggregate("mysum", 1, mysum), "create error: %s")

	s, err := db.Prepare("SELECT a_string, mysum(int_num) FROM test GROUP BY a_string ORDER BY a_string")
	checkNoError(t, err, "prepare error: %s")
	defer checkFinalize(s, t)
	rows, err := s.EnableCallback().Values()
	checkNoError(t, err, "select error: %s")
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, 3, rows[0][1])
	assert.Equal(t, 10, rows[1][1])
}
