package lua

import (
	"fmt"
	"strings"

	"github.com/lunixbochs/luaish"
)

func (L *LuaRepl) prettydump(lv []lua.LValue, implicit bool, outer bool, seen map[lua.LValue]bool) []string {
	pretty := make([]string, len(lv))
	for i, v := range lv {
		switch s := v.(type) {
		case *lua.LTable:
			// seen[v] is used to skip recursive table references
			if seen[v] {
				pretty[i] = `{"<skipped recursion>"}`
				continue
			}
			seen[v] = true

			table := make([]string, 0, s.Len())
			idx := 1
			s.ForEach(func(k, v lua.LValue) {
				tmp := L.prettydump([]lua.LValue{k, v}, implicit, false, seen)
				if n, ok := k.(lua.LInt); ok && int(n) == idx {
					idx++
					table = append(table, tmp[1])
				} else {
					table = append(table, strings.Join(tmp, " = "))
				}
			})

			seen[v] = false
			sep := ", "
			if outer {
				sep = ",\n "
			}
			pretty[i] = "{" + strings.Join(table, sep) + "}"
		case lua.LFloat:
			pretty[i] = fmt.Sprintf("%f", float64(s))
		case lua.LInt:
			// pids and exit codes read better in decimal
			pretty[i] = fmt.Sprintf("%d", int64(s))
		case lua.LString:
			if implicit {
				pretty[i] = fmt.Sprintf("%q", string(s))
			} else {
				pretty[i] = string(s)
			}
		default:
			pretty[i] = fmt.Sprintf("%s", s)
		}
	}
	return pretty
}

func (L *LuaRepl) PrettyDump(lv []lua.LValue, implicit bool, outer bool) []string {
	return L.prettydump(lv, implicit, outer, make(map[lua.LValue]bool))
}

func (L *LuaRepl) PrettyPrint(lv []lua.LValue, implicit bool) {
	pretty := L.PrettyDump(lv, implicit, true)
	L.Printf("%s\n", strings.Join(pretty, " "))
}
