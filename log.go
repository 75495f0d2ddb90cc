// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"github.com/go-pkgz/lgr"
)

// logger receives misuse reports, such as statements left unfinalized
// when a connection closes. It never fires on hot paths.
var logger lgr.L = lgr.Default()

// SetLogger replaces the package logger. A nil l silences it.
func SetLogger(l lgr.L) {
	if l == nil {
		l = lgr.New(lgr.Out(nopWriter{}), lgr.Err(nopWriter{}))
	}
	logger = l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
