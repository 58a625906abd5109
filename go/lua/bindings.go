package lua

import (
	"strconv"

	"github.com/lunixbochs/luaish"

	"github.com/lunixbochs/bootcorn/go/models"
)

func (L *LuaRepl) printFunc(_ *lua.LState) int {
	L.PrettyPrint(L.getArgs(), false)
	return 0
}

func (L *LuaRepl) intFunc(_ *lua.LState) int {
	switch v := L.CheckAny(1).(type) {
	case lua.LString:
		n, err := strconv.ParseInt(string(v), 0, 64)
		if err == nil {
			L.Push(lua.LInt(n))
			return 1
		}
	case lua.LFloat:
		L.Push(lua.LInt(v))
		return 1
	case lua.LInt:
		L.Push(v)
		return 1
	}
	return 0
}

// pushErr returns (nil, message) to lua.
func (L *LuaRepl) pushErr(err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (L *LuaRepl) getpidFunc(_ *lua.LState) int {
	L.Push(lua.LInt(L.p.Getpid()))
	return 1
}

func (L *LuaRepl) syncFunc(_ *lua.LState) int {
	if err := L.p.Sync(); err != nil {
		return L.pushErr(err)
	}
	return 0
}

func (L *LuaRepl) iamFunc(_ *lua.LState) int {
	id, ok := L.p.(models.Identity)
	if !ok {
		L.RaiseError("iam: not supported")
		return 0
	}
	n, err := id.Iam(L.CheckString(1))
	if err != nil {
		return L.pushErr(err)
	}
	L.Push(lua.LInt(n))
	return 1
}

func (L *LuaRepl) whoamiFunc(_ *lua.LState) int {
	id, ok := L.p.(models.Identity)
	if !ok {
		L.RaiseError("whoami: not supported")
		return 0
	}
	buf := make([]byte, 32)
	n, err := id.Whoami(buf)
	if err != nil {
		return L.pushErr(err)
	}
	L.Push(lua.LString(buf[:n]))
	return 1
}

// procsFunc returns the process table as a list of {pid, ppid, sid, state}.
func (L *LuaRepl) procsFunc(_ *lua.LState) int {
	pl, ok := L.p.(models.ProcLister)
	if !ok {
		L.RaiseError("procs: not supported")
		return 0
	}
	list := L.NewTable()
	for i, p := range pl.Procs() {
		row := L.NewTable()
		L.SetField(row, "pid", lua.LInt(p.Pid))
		L.SetField(row, "ppid", lua.LInt(p.Ppid))
		L.SetField(row, "sid", lua.LInt(p.Session))
		L.SetField(row, "state", lua.LString(string(p.State)))
		L.RawSetInt(list, i+1, row)
	}
	L.Push(list)
	return 1
}

func (L *LuaRepl) loadBindings() error {
	if err := L.DoString(builtinsRc); err != nil {
		return err
	}
	funcs := map[string]lua.LGFunction{
		"print":  L.printFunc,
		"int":    L.intFunc,
		"getpid": L.getpidFunc,
		"sync":   L.syncFunc,
		"iam":    L.iamFunc,
		"whoami": L.whoamiFunc,
		"procs":  L.procsFunc,
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	if err := L.DoString(sugarRc); err != nil {
		return err
	} else if err := L.DoString(cmdRc); err != nil {
		return err
	}
	return nil
}
