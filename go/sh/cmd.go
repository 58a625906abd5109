package sh

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/lunixbochs/argjoy"
	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
)

type Command struct {
	Name string
	Desc string
	// Run is a func taking *Context first. A func(*Context, []string) error
	// receives the raw words, anything else has its words converted.
	Run interface{}
	// Raw commands get the rest of the line as one word, unparsed.
	Raw bool
}

var Commands = make(map[string]*Command)

func cmd(c *Command) *Command {
	fn := reflect.ValueOf(c.Run)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("Command.Run must be a func: got (%T) %#v\n", c.Run, c.Run))
	}
	if fn.Type().NumIn() == 0 || fn.Type().In(0) != reflect.TypeOf(&Context{}) {
		panic(fmt.Sprintf("Command.Run must take *Context first: %s", c.Name))
	}
	Commands[c.Name] = c
	return c
}

// Names returns the builtin names in natural order.
func Names() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Sort(sortorder.Natural(names))
	return names
}

var aj = argjoy.NewArgjoy()

func init() {
	aj.Register(wordCodec)
}

// wordCodec converts a shell word into the builtin's parameter type.
func wordCodec(arg interface{}, vals []interface{}) error {
	word, ok := vals[0].(string)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *string:
		*v = word
	case *int:
		n, err := strconv.ParseInt(word, 0, 0)
		if err != nil {
			return errors.Errorf("bad number: %s", word)
		}
		*v = int(n)
	case *uint64:
		n, err := strconv.ParseUint(word, 0, 64)
		if err != nil {
			return errors.Errorf("bad number: %s", word)
		}
		*v = n
	case *bool:
		b, err := strconv.ParseBool(word)
		if err != nil {
			return errors.Errorf("bad flag: %s", word)
		}
		*v = b
	default:
		return argjoy.NoMatch
	}
	return nil
}

// usage describes the parameters of a converted builtin.
func (c *Command) usage() string {
	typ := reflect.TypeOf(c.Run)
	params := make([]string, 0, typ.NumIn())
	for i := 1; i < typ.NumIn(); i++ {
		params = append(params, "<"+typ.In(i).String()+">")
	}
	return strings.TrimSpace(c.Name + " " + strings.Join(params, " "))
}

func (c *Command) call(ctx *Context, args []string) error {
	if run, ok := c.Run.(func(*Context, []string) error); ok {
		return run(ctx, args)
	}
	if want := reflect.TypeOf(c.Run).NumIn() - 1; want != len(args) {
		return errors.Errorf("usage: %s", c.usage())
	}
	out, err := aj.Call(c.Run, ctx, args)
	if err != nil {
		return err
	}
	if len(out) > 0 {
		if err, ok := out[0].(error); ok {
			return err
		}
	}
	return nil
}
