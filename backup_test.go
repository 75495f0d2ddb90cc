// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite_test

import (
	"testing"

	"github.com/bmizerany/assert"
	. "github.com/sqlite-go/sqlite"
)

func TestBackup(t *testing.T) {
	src := open(t)
	defer checkClose(src, t)
	createTable(src, t)
	_, err := src.Exec("INSERT INTO test (int_num) VALUES (1), (2), (3)")
	checkNoError(t, err, "insert error: %s")

	dst := open(t)
	defer checkClose(dst, t)

	bck, err := NewBackup(dst, "main", src, "main")
	checkNoError(t, err, "backup init error: %s")
	checkNoError(t, bck.Run(10, 0, nil), "backup run error: %s")
	checkNoError(t, bck.Close(), "backup close error: %s")

	assert.Equal(t, 3, countRows(dst, t))
}

func TestBackupMisuse(t *testing.T) {
	db := open(t)
	defer checkClose(db, t)
	if _, err := NewBackup(db, "main", db, "main"); err == nil {
		t.Fatal("backup between identical connections should fail")
	}
}

func TestBackupDoubleClose(t *testing.T) {
	src := open(t)
	defer checkClose(src, t)
	dst := open(t)
	defer checkClose(dst, t)
	bck, err := NewBackup(dst, "main", src, "main")
	checkNoError(t, err, "backup init error: %s")
	checkNoError(t, bck.Run(10, 0, nil), "backup run error: %s")
	checkNoError(t, bck.Close(), "first close: %s")
	checkNoError(t, bck.Close(), "second close: %s")
}
