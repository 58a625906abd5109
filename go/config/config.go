// Package config reads boot.lish files: luaish scripts whose globals
// override the machine defaults.
//
//	ext_mem_kb = 7 * 1024
//	ramdisk_kb = 512
//	rc_script = [[
//	echo hello from rc
//	]]
package config

import (
	"io/ioutil"
	"path/filepath"

	"github.com/lunixbochs/luaish"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/bootcorn/go/models"
)

const FileName = "boot.lish"

type setter func(c *models.Config, v lua.LValue) error

func intVar(set func(c *models.Config, n int64)) setter {
	return func(c *models.Config, v lua.LValue) error {
		switch n := v.(type) {
		case lua.LInt:
			set(c, int64(n))
		case lua.LFloat:
			if float64(n) != float64(int64(n)) {
				return errors.Errorf("expected integer, got %v", n)
			}
			set(c, int64(n))
		default:
			return errors.Errorf("expected integer, got %s", v.Type())
		}
		return nil
	}
}

func strVar(set func(c *models.Config, s string)) setter {
	return func(c *models.Config, v lua.LValue) error {
		s, ok := v.(lua.LString)
		if !ok {
			return errors.Errorf("expected string, got %s", v.Type())
		}
		set(c, string(s))
		return nil
	}
}

func boolVar(set func(c *models.Config, b bool)) setter {
	return func(c *models.Config, v lua.LValue) error {
		b, ok := v.(lua.LBool)
		if !ok {
			return errors.Errorf("expected boolean, got %s", v.Type())
		}
		set(c, bool(b))
		return nil
	}
}

func listVar(set func(c *models.Config, l []string)) setter {
	return func(c *models.Config, v lua.LValue) error {
		t, ok := v.(*lua.LTable)
		if !ok {
			return errors.Errorf("expected table, got %s", v.Type())
		}
		var out []string
		for i := 1; i <= t.Len(); i++ {
			s, ok := t.RawGetInt(i).(lua.LString)
			if !ok {
				return errors.Errorf("entry %d is not a string", i)
			}
			out = append(out, string(s))
		}
		set(c, out)
		return nil
	}
}

var globals = map[string]setter{
	"ext_mem_kb": intVar(func(c *models.Config, n int64) { c.ExtMemKB = uint32(n) }),
	"ramdisk_kb": intVar(func(c *models.Config, n int64) { c.RamdiskKB = uint32(n) }),
	"root_dev":   intVar(func(c *models.Config, n int64) { c.RootDev = uint16(n) }),
	"kernel_end": intVar(func(c *models.Config, n int64) { c.KernelEnd = uint64(n) }),
	"max_procs":  intVar(func(c *models.Config, n int64) { c.MaxProcs = int(n) }),

	"console":   strVar(func(c *models.Config, s string) { c.Console = s }),
	"rc":        strVar(func(c *models.Config, s string) { c.Rc = s }),
	"rc_script": strVar(func(c *models.Config, s string) { c.RcScript = s }),
	"prefix":    strVar(func(c *models.Config, s string) { c.RootPrefix = s }),
	"trace":     strVar(func(c *models.Config, s string) { c.Tracefile = s }),
	"proc_log":  strVar(func(c *models.Config, s string) { c.ProcLog = s }),
	"ident_errors": func(c *models.Config, v lua.LValue) error {
		s, ok := v.(lua.LString)
		if !ok || (s != models.IdentMinusOne && s != models.IdentEinval) {
			return errors.Errorf("expected %q or %q", models.IdentMinusOne, models.IdentEinval)
		}
		c.IdentityErrors = string(s)
		return nil
	},

	"verbose": boolVar(func(c *models.Config, b bool) { c.Verbose = b }),
	"color":   boolVar(func(c *models.Config, b bool) { c.Color = b }),

	"rc_env":    listVar(func(c *models.Config, l []string) { c.RcShell.Envp = l }),
	"login_env": listVar(func(c *models.Config, l []string) { c.LoginShell.Envp = l }),
}

// Apply runs src and copies every recognized global into c. Unknown
// globals are left alone so scripts can use helpers.
func Apply(c *models.Config, name, src string) error {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return errors.Wrap(err, name)
	}
	for key, set := range globals {
		v := L.GetGlobal(key)
		if v == lua.LNil {
			continue
		}
		if err := set(c, v); err != nil {
			return errors.Wrapf(err, "%s: %s", name, key)
		}
	}
	return nil
}

// LoadFile applies a single boot.lish file.
func LoadFile(c *models.Config, path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	return Apply(c, filepath.Base(path), string(data))
}

// Load applies boot.lish from the system, user and local config folders in
// that order, so the most specific one wins, then the explicit file if set.
func Load(c *models.Config, explicit string) error {
	dirs := configdir.New("bootcorn", "boot")
	folders := dirs.QueryFolders(configdir.All)
	for i := len(folders) - 1; i >= 0; i-- {
		data, err := folders[i].ReadFile(FileName)
		if err != nil {
			continue
		}
		if err := Apply(c, filepath.Join(folders[i].Path, FileName), string(data)); err != nil {
			return err
		}
	}
	if explicit != "" {
		return LoadFile(c, explicit)
	}
	return nil
}
