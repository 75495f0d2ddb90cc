// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

/*
#include <sqlite3.h>
#include <stdlib.h>

// These wrappers are necessary because SQLITE_TRANSIENT
// is a pointer constant, and cgo doesn't translate it correctly.
static void my_result_text(sqlite3_context *ctx, const char *p, int np) {
	sqlite3_result_text(ctx, p, np, SQLITE_TRANSIENT);
}
static void my_result_blob(sqlite3_context *ctx, const void *p, int np) {
	sqlite3_result_blob(ctx, p, np, SQLITE_TRANSIENT);
}

extern void goXFunc(sqlite3_context *ctx, int argc, sqlite3_value **argv);
extern void goXStep(sqlite3_context *ctx, int argc, sqlite3_value **argv);
extern void goXFinal(sqlite3_context *ctx);
extern void goXDestroy(void *pApp);

static int goCreateScalarFunction(sqlite3 *db, const char *zName, int nArg, int eTextRep, void *pApp) {
	return sqlite3_create_function_v2(db, zName, nArg, eTextRep, pApp, goXFunc, NULL, NULL, goXDestroy);
}
static int goCreateAggregateFunction(sqlite3 *db, const char *zName, int nArg, int eTextRep, void *pApp) {
	return sqlite3_create_function_v2(db, zName, nArg, eTextRep, pApp, NULL, goXStep, goXFinal, goXDestroy);
}
*/
import "C"

import (
	"fmt"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/mattn/go-pointer"
)

// ScalarFunc is a user-defined scalar function. Arguments arrive
// decoded (INTEGER as int64, FLOAT as float64, TEXT as string, BLOB as
// a copied []byte, NULL as nil). A returned error surfaces as an SQL
// error in the invoking statement.
type ScalarFunc func(args ...interface{}) (interface{}, error)

// Aggregate describes a user-defined aggregate function. Start seeds
// the accumulator for each group; a func() interface{} is invoked,
// anything else is used as-is. Step folds each row into the
// accumulator. Final, when set, maps the accumulator to the result.
type Aggregate struct {
	Start interface{}
	Step  func(acc interface{}, args ...interface{}) (interface{}, error)
	Final func(acc interface{}) (interface{}, error)
}

// Function flags, OR'ed onto the UTF-8 text encoding.
// (See http://sqlite.org/c3ref/c_deterministic.html)
const (
	funcUTF8          = C.int(C.SQLITE_UTF8)
	funcDeterministic = C.int(0x000000800)
	funcDirectOnly    = C.int(0x000080000)
	funcSubtype       = C.int(0x000100000)
	funcInnocuous     = C.int(0x000200000)
)

type funcConfig struct {
	deterministic bool
	directOnly    bool
	subtype       bool
	innocuous     bool
	varargs       bool
}

// FunctionOption configures CreateFunction and CreateAggregate.
type FunctionOption func(*funcConfig)

// Deterministic promises the function always gives the same output for
// the same inputs within one statement.
func Deterministic() FunctionOption { return func(f *funcConfig) { f.deterministic = true } }

// DirectOnly forbids use of the function inside triggers, views and
// schema structures.
func DirectOnly() FunctionOption { return func(f *funcConfig) { f.directOnly = true } }

// ResultSubtype sets the SQLITE_SUBTYPE flag (0x100000), declaring that
// the function may inspect the subtypes of its arguments.
func ResultSubtype() FunctionOption { return func(f *funcConfig) { f.subtype = true } }

// Innocuous declares the function free of side effects.
func Innocuous() FunctionOption { return func(f *funcConfig) { f.innocuous = true } }

// Varargs registers the function with an arity of -1, accepting any
// number of arguments.
func Varargs() FunctionOption { return func(f *funcConfig) { f.varargs = true } }

type sqliteFunction struct {
	name   string
	conn   *Conn
	scalar ScalarFunc
	agg    Aggregate
}

// Aggregate accumulators are keyed by the engine's aggregate-context
// pointer, which is stable for the lifetime of one group.
var (
	aggDataMu sync.Mutex
	aggData   = make(map[unsafe.Pointer]interface{})
	aggSeen   = make(map[unsafe.Pointer]bool)
)

func (fc *funcConfig) flags() C.int {
	flags := funcUTF8
	if fc.deterministic {
		flags |= funcDeterministic
	}
	if fc.directOnly {
		flags |= funcDirectOnly
	}
	if fc.subtype {
		flags |= funcSubtype
	}
	if fc.innocuous {
		flags |= funcInnocuous
	}
	return flags
}

// CreateFunction installs (or, with a nil fn, removes) a scalar SQL
// function. Statements invoking it must set EnableCallback.
// (See http://sqlite.org/c3ref/create_function.html)
func (c *Conn) CreateFunction(name string, nArg int, fn ScalarFunc, opts ...FunctionOption) error {
	if c.db == nil {
		return errClosed
	}
	zName := C.CString(name)
	defer C.free(unsafe.Pointer(zName))
	if fn == nil {
		delete(c.udfs, name)
		return c.error(C.sqlite3_create_function_v2(c.db, zName, C.int(nArg), funcUTF8, nil, nil, nil, nil, nil))
	}
	cfg := funcConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.varargs {
		nArg = -1
	}
	f := &sqliteFunction{name: name, conn: c, scalar: fn}
	// Keep a reference in the connection so the callback outlives every
	// statement; the destroy hook releases the C-side handle.
	if c.udfs == nil {
		c.udfs = make(map[string]*sqliteFunction)
	}
	c.udfs[name] = f
	return c.error(C.goCreateScalarFunction(c.db, zName, C.int(nArg), cfg.flags(), pointer.Save(f)))
}

// CreateAggregate installs an aggregate SQL function.
// (See http://sqlite.org/c3ref/create_function.html)
func (c *Conn) CreateAggregate(name string, nArg int, agg Aggregate, opts ...FunctionOption) error {
	if c.db == nil {
		return errClosed
	}
	if agg.Step == nil {
		return &MisuseError{Msg: "aggregate requires a step function"}
	}
	cfg := funcConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.varargs {
		nArg = -1
	}
	zName := C.CString(name)
	defer C.free(unsafe.Pointer(zName))
	f := &sqliteFunction{name: name, conn: c, agg: agg}
	if c.udfs == nil {
		c.udfs = make(map[string]*sqliteFunction)
	}
	c.udfs[name] = f
	return c.error(C.goCreateAggregateFunction(c.db, zName, C.int(nArg), cfg.flags(), pointer.Save(f)))
}

// decodeArgs converts the engine's argument vector into host values.
func decodeArgs(argc C.int, argv **C.sqlite3_value) []interface{} {
	n := int(argc)
	if n == 0 {
		return nil
	}
	vals := unsafe.Slice(argv, n)
	args := make([]interface{}, n)
	for i, v := range vals {
		switch C.sqlite3_value_type(v) {
		case C.SQLITE_INTEGER:
			args[i] = int64(C.sqlite3_value_int64(v))
		case C.SQLITE_FLOAT:
			args[i] = float64(C.sqlite3_value_double(v))
		case C.SQLITE_TEXT:
			p := (*C.char)(unsafe.Pointer(C.sqlite3_value_text(v)))
			args[i] = C.GoStringN(p, C.sqlite3_value_bytes(v))
		case C.SQLITE_BLOB:
			args[i] = C.GoBytes(C.sqlite3_value_blob(v), C.sqlite3_value_bytes(v))
		default:
			args[i] = nil
		}
	}
	return args
}

// encodeResult writes a host value as the function result.
func encodeResult(ctx *C.sqlite3_context, name string, v interface{}) {
	switch v := v.(type) {
	case nil:
		C.sqlite3_result_null(ctx)
	case bool:
		C.sqlite3_result_int(ctx, btocint(v))
	case int:
		C.sqlite3_result_int64(ctx, C.sqlite3_int64(v))
	case int32:
		C.sqlite3_result_int64(ctx, C.sqlite3_int64(v))
	case int64:
		C.sqlite3_result_int64(ctx, C.sqlite3_int64(v))
	case uint64:
		if v > math.MaxInt64 {
			resultError(ctx, &FunctionError{Name: name, Msg: "uint64 result overflows INTEGER"})
			return
		}
		C.sqlite3_result_int64(ctx, C.sqlite3_int64(v))
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) && v >= math.MinInt64 && v < math.MaxInt64 {
			C.sqlite3_result_int64(ctx, C.sqlite3_int64(int64(v)))
		} else {
			C.sqlite3_result_double(ctx, C.double(v))
		}
	case string:
		cs := C.CString(v)
		defer C.free(unsafe.Pointer(cs))
		C.my_result_text(ctx, cs, C.int(len(v)))
	case []byte:
		var p unsafe.Pointer
		if len(v) > 0 {
			p = unsafe.Pointer(&v[0])
		}
		C.my_result_blob(ctx, p, C.int(len(v)))
	case time.Time:
		ts := v.UTC().Format(iso8601)
		cs := C.CString(ts)
		defer C.free(unsafe.Pointer(cs))
		C.my_result_text(ctx, cs, C.int(len(ts)))
	default:
		resultError(ctx, &FunctionError{Name: name, Msg: fmt.Sprintf("unsupported result type %T", v)})
	}
}

func resultError(ctx *C.sqlite3_context, err error) {
	msg := C.CString(err.Error())
	defer C.free(unsafe.Pointer(msg))
	C.sqlite3_result_error(ctx, msg, -1)
}

func restoreFunction(ctx *C.sqlite3_context) *sqliteFunction {
	return pointer.Restore(C.sqlite3_user_data(ctx)).(*sqliteFunction)
}

// call runs fn, converting a panic into an error result.
func call(name string, fn func() (interface{}, error)) (v interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &FunctionError{Name: name, Msg: fmt.Sprint(p)}
		}
	}()
	return fn()
}

//export goXFunc
func goXFunc(ctx *C.sqlite3_context, argc C.int, argv **C.sqlite3_value) {
	f := restoreFunction(ctx)
	args := decodeArgs(argc, argv)
	v, err := call(f.name, func() (interface{}, error) { return f.scalar(args...) })
	if err != nil {
		resultError(ctx, &FunctionError{Name: f.name, Msg: err.Error()})
		return
	}
	encodeResult(ctx, f.name, v)
}

//export goXStep
func goXStep(ctx *C.sqlite3_context, argc C.int, argv **C.sqlite3_value) {
	f := restoreFunction(ctx)
	id := C.sqlite3_aggregate_context(ctx, 1)
	if id == nil {
		C.sqlite3_result_error_nomem(ctx)
		return
	}

	aggDataMu.Lock()
	acc, seeded := aggData[id], aggSeen[id]
	aggDataMu.Unlock()
	if !seeded {
		if start, ok := f.agg.Start.(func() interface{}); ok {
			acc = start()
		} else {
			acc = f.agg.Start
		}
	}

	args := decodeArgs(argc, argv)
	next, err := call(f.name, func() (interface{}, error) { return f.agg.Step(acc, args...) })
	if err != nil {
		resultError(ctx, &FunctionError{Name: f.name, Msg: err.Error()})
		return
	}
	aggDataMu.Lock()
	aggData[id] = next
	aggSeen[id] = true
	aggDataMu.Unlock()
}

//export goXFinal
func goXFinal(ctx *C.sqlite3_context) {
	f := restoreFunction(ctx)
	id := C.sqlite3_aggregate_context(ctx, 0)

	var acc interface{}
	if id != nil {
		aggDataMu.Lock()
		acc = aggData[id]
		delete(aggData, id)
		delete(aggSeen, id)
		aggDataMu.Unlock()
	} else if start, ok := f.agg.Start.(func() interface{}); ok {
		// No row ever reached Step for this group.
		acc = start()
	} else {
		acc = f.agg.Start
	}

	v, err := acc, error(nil)
	if f.agg.Final != nil {
		v, err = call(f.name, func() (interface{}, error) { return f.agg.Final(acc) })
	}
	if err != nil {
		resultError(ctx, &FunctionError{Name: f.name, Msg: err.Error()})
		return
	}
	encodeResult(ctx, f.name, v)
}

//export goXDestroy
func goXDestroy(pApp unsafe.Pointer) {
	pointer.Unref(pApp)
}
