// Package lua is the interpreter behind the shell's lua builtin.
package lua

import (
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish/parse"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

type LuaRepl struct {
	*lua.LState
	p models.Process
	io.Writer
}

// NewRepl returns an interpreter bound to process p that prints to o.
func NewRepl(p models.Process, o io.Writer) (*LuaRepl, error) {
	repl := &LuaRepl{
		LState: lua.NewState(),
		p:      p,
		Writer: o,
	}
	if err := repl.loadBindings(); err != nil {
		repl.Close()
		return nil, errors.Wrap(err, "failed to load repl bindings")
	}
	return repl, nil
}

func (L *LuaRepl) SetOutput(w io.Writer) {
	L.Writer = w
}

// Refreshes the process globals before each chunk.
func (L *LuaRepl) preRun() {
	L.SetGlobal("pid", lua.LInt(L.p.Getpid()))
}

func (L *LuaRepl) postRun(lv []lua.LValue) {
	// if exactly one value was returned, and it's a function, call it with no args
	if len(lv) == 1 && lv[0].Type() == lua.LTFunction {
		if lv2, err := L.call(lv[0].(*lua.LFunction)); err != nil {
			L.Println(err)
			lv = nil
		} else {
			lv = lv2
		}
	}

	if len(lv) == 1 && lv[0] == lua.LNil {
	} else if len(lv) > 0 {
		L.PrettyPrint(lv, true)
	}

	// set the _ global
	if len(lv) == 1 {
		L.SetGlobal("_", lv[0])
	} else if len(lv) > 1 {
		tmp := L.NewTable()
		for i, v := range lv {
			L.RawSetInt(tmp, i+1, v)
		}
		L.SetGlobal("_", tmp)
	} else {
		L.SetGlobal("_", lua.LNil)
	}
}

func (L *LuaRepl) loadstring(lines []string, recurse bool) (*lua.LFunction, error, bool) {
	code := strings.Join(lines, "\n")
	if len(lines) == 1 && recurse {
		code = "return " + code
	}
	fn, err := L.LoadString(code)
	if err == nil {
		return fn, nil, false
	}
	// an error at EOF means the chunk isn't finished yet
	if lerr, ok := err.(*lua.ApiError); ok {
		if perr, ok := lerr.Cause.(*parse.Error); ok {
			if perr.Pos.Line == parse.EOF {
				return nil, err, true
			} else if recurse {
				// still a parse error: try without return
				return L.loadstring(lines, false)
			}
		}
	}
	return nil, err, false
}

// Exec runs a chunk made of lines, returning true if more input is needed.
// Errors are printed.
func (L *LuaRepl) Exec(lines []string) bool {
	if len(lines) == 0 {
		return true
	}
	fn, err, incomplete := L.loadstring(lines, true)
	if incomplete {
		return true
	}
	if err != nil {
		L.Println(err)
		return false
	}
	L.preRun()
	lv, err := L.call(fn)
	if err != nil {
		L.Println(err)
	}
	L.postRun(lv)
	return false
}

// Returns a list of lua.LValue for each value on the stack.
func (L *LuaRepl) getArgs() []lua.LValue {
	lv := make([]lua.LValue, L.GetTop())
	for i := range lv {
		lv[i] = L.CheckAny(i + 1)
	}
	return lv
}

// Runs a loaded lua function, returning any errors or return values
func (L *LuaRepl) call(fn *lua.LFunction) ([]lua.LValue, error) {
	L.SetTop(0)
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, err
	}
	return L.getArgs(), nil
}

func (L *LuaRepl) Printf(f string, arg ...interface{}) {
	fmt.Fprintf(L, f, arg...)
}

func (L *LuaRepl) Println(arg ...interface{}) {
	fmt.Fprintln(L, arg...)
}
