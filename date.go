// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite provides access to the SQLite library, version 3.

package sqlite

import (
	"time"
)

// Layout used when binding time.Time values; matches the subset of
// ISO-8601 understood by SQLite's date and time functions.
const iso8601 = "2006-01-02T15:04:05.000Z"

const (
	julianDayEpoch = 2440587.5 // 1970-01-01 00:00:00 UTC
	secondsPerDay  = 86400
	msPerDay       = secondsPerDay * 1000
)

// JulianDayToUTC converts a Julian day number, the representation used
// by SQLite's REAL date columns, to UTC time.
func JulianDayToUTC(jd float64) time.Time {
	seconds := (jd - julianDayEpoch) * secondsPerDay
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// JulianDay converts t to a Julian day number.
func JulianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/msPerDay + julianDayEpoch
}

// ParseTime decodes a TEXT column produced by binding a time.Time, or
// any of the ISO-8601 shapes SQLite's datetime() emits.
func ParseTime(s string) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range []string{iso8601, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
