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
	"time"
	"unsafe"
)

// Backup copies the content of one database (source) to another
// (destination).
// Example:
//	bck, err := sqlite.NewBackup(dst, "main", src, "main")
//	// check err
//	defer bck.Close()
//	err = bck.Run(100, 250*time.Microsecond, nil)
//
// (See http://sqlite.org/c3ref/backup_finish.html#sqlite3backupinit)
func NewBackup(dst *Conn, dstName string, src *Conn, srcName string) (*Backup, error) {
	if dst == nil || dst.db == nil || src == nil || src.db == nil || dst == src {
		return nil, errClosed
	}
	dname := C.CString(dstName)
	sname := C.CString(srcName)
	defer C.free(unsafe.Pointer(dname))
	defer C.free(unsafe.Pointer(sname))

	sb := C.sqlite3_backup_init(dst.db, dname, src.db, sname)
	if sb == nil {
		return nil, dst.error(C.sqlite3_errcode(dst.db))
	}
	return &Backup{sb: sb, dst: dst, src: src}, nil
}

// Backup encapsulates the online backup API.
type Backup struct {
	sb       *C.sqlite3_backup
	dst, src *Conn
}

// Step copies up to npage pages. It returns Done when the backup has
// completed, nil when more pages remain, and an error otherwise. BUSY
// and LOCKED are returned as errors and may be retried.
// (See http://sqlite.org/c3ref/backup_finish.html#sqlite3backupstep)
func (b *Backup) Step(npage int) error {
	if b.sb == nil {
		return errors.New("backup is closed")
	}
	rv := C.sqlite3_backup_step(b.sb, C.int(npage))
	if rv == C.SQLITE_OK {
		return nil
	}
	return Errno(rv)
}

// BackupStatus reports backup progression.
type BackupStatus struct {
	Remaining int
	PageCount int
}

// Status returns the remaining and total page counts.
// (See http://sqlite.org/c3ref/backup_finish.html#sqlite3backupremaining)
func (b *Backup) Status() BackupStatus {
	return BackupStatus{int(C.sqlite3_backup_remaining(b.sb)), int(C.sqlite3_backup_pagecount(b.sb))}
}

// Run steps the backup to completion, npage pages at a time, sleeping
// between steps and reporting progress on c when not nil.
func (b *Backup) Run(npage int, sleep time.Duration, c chan<- BackupStatus) error {
	for {
		err := b.Step(npage)
		if err == Done {
			return nil
		}
		if err != nil {
			return err
		}
		if c != nil {
			c <- b.Status()
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

// Close releases the backup. It is idempotent.
// (See http://sqlite.org/c3ref/backup_finish.html#sqlite3backupfinish)
func (b *Backup) Close() error {
	if b.sb == nil {
		return nil
	}
	sb := b.sb
	b.sb = nil
	if rv := C.sqlite3_backup_finish(sb); rv != C.SQLITE_OK {
		return Errno(rv)
	}
	return nil
}
