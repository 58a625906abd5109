package trace

import (
	"encoding/json"
	"fmt"
)

func bprintf(f string, args ...interface{}) []byte {
	return []byte(fmt.Sprintf(f, args...))
}

func (o *OpNop) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d}`, OP_NOP), nil
}

func (o *OpBoot) MarshalJSON() ([]byte, error) {
	step, err := json.Marshal(o.Step)
	if err != nil {
		return nil, err
	}
	return bprintf(`{"op":%d,"step":%s}`, OP_BOOT, step), nil
}

func (o *OpExit) MarshalJSON() ([]byte, error) {
	return bprintf(`{"op":%d,"pid":%d,"status":%d}`, OP_EXIT, o.Pid, o.Status), nil
}

func (o *OpSyscall) MarshalJSON() ([]byte, error) {
	args, err := json.Marshal(o.Args)
	if err != nil {
		return nil, err
	}
	desc, err := json.Marshal(o.Desc)
	if err != nil {
		return nil, err
	}
	return bprintf(`{"op":%d,"num":%d,"pid":%d,"args":%s,"ret":%d,"desc":%s}`,
		OP_SYSCALL, o.Num, o.Pid, args, int64(o.Ret), desc), nil
}
