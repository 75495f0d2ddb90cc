// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"container/list"
	"sync"
)

// Cache turned off by default; SetCacheSize enables it.
const defaultCacheSize = 0

// cache keeps recently finalized statements around for reuse by
// Prepare, like http://www.sqlite.org/tclsqlite.html#cache
type cache struct {
	m       sync.Mutex
	l       *list.List
	maxSize int // cache turned off when maxSize <= 0
}

func newCache() *cache {
	return newCacheSize(defaultCacheSize)
}
func newCacheSize(maxSize int) *cache {
	if maxSize <= 0 {
		return &cache{maxSize: maxSize}
	}
	return &cache{l: list.New(), maxSize: maxSize}
}

// find returns a previously released statement compiled from sql, or
// nil. A found statement comes back reset with clear bindings.
func (c *cache) find(sql string) *Stmt {
	if c.maxSize <= 0 {
		return nil
	}
	c.m.Lock()
	defer c.m.Unlock()
	for e := c.l.Front(); e != nil; e = e.Next() {
		s := e.Value.(*Stmt)
		if s.SQL() == sql { // s.SQL() may have been trimmed by SQLite
			c.l.Remove(e)
			return s
		}
	}
	return nil
}

// release stores s for reuse, evicting the oldest entries beyond
// maxSize. It reports false when the statement should be finalized
// instead (cache off, or multi-statement SQL).
func (c *cache) release(s *Stmt) bool {
	if c.maxSize <= 0 || s.stmt == nil || s.tail != "" {
		return false
	}
	s.Reset()
	s.ClearBindings()
	c.m.Lock()
	defer c.m.Unlock()
	for e := c.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*Stmt) == s { // already released
			return true
		}
	}
	c.l.PushFront(s)
	for c.l.Len() > c.maxSize {
		v := c.l.Remove(c.l.Back())
		v.(*Stmt).finalize()
	}
	return true
}

// flush finalizes every cached statement. Called by Conn.Close.
func (c *cache) flush() {
	if c.maxSize <= 0 || c.l == nil {
		return
	}
	c.m.Lock()
	defer c.m.Unlock()
	var next *list.Element
	for e := c.l.Front(); e != nil; e = next {
		next = e.Next()
		c.l.Remove(e).(*Stmt).finalize()
	}
}

// CacheSize returns the current and maximum number of cached
// statements. The cache is off when the maximum is 0.
func (c *Conn) CacheSize() (int, int) {
	if c.stmtCache.maxSize <= 0 {
		return 0, 0
	}
	c.stmtCache.m.Lock()
	defer c.stmtCache.m.Unlock()
	return c.stmtCache.l.Len(), c.stmtCache.maxSize
}

// SetCacheSize resizes the prepared statement cache. A size <= 0 turns
// it off and flushes it.
func (c *Conn) SetCacheSize(size int) {
	sc := c.stmtCache
	if sc.l == nil && size > 0 {
		sc.l = list.New()
	}
	if size <= 0 {
		sc.flush()
	}
	sc.maxSize = size
}
