package trace

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

var order = binary.LittleEndian

const (
	OP_NOP     = 0
	OP_BOOT    = 1
	OP_SYSCALL = 2
	OP_EXIT    = 3
)

func Unpack(r io.Reader) (models.Op, int, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, 0, err
	}
	var op models.Op
	switch tmp[0] {
	case OP_NOP:
		op = &OpNop{}
	case OP_BOOT:
		op = &OpBoot{}
	case OP_SYSCALL:
		op = &OpSyscall{}
	case OP_EXIT:
		op = &OpExit{}
	default:
		return nil, 1, errors.Errorf("Unknown op: %d", tmp[0])
	}
	n, err := op.Unpack(r)
	return op, n + 1, err
}

type OpNop struct{}

func (o *OpNop) Sizeof() int   { return 1 }
func (o *OpNop) Pack(p []byte) { p[0] = OP_NOP }

func (o *OpNop) Unpack(r io.Reader) (int, error) { return 0, nil }

// OpBoot marks a completed bootstrap step.
type OpBoot struct {
	Step string
}

func (o *OpBoot) Sizeof() int { return 1 + 1 + len(o.Step) }
func (o *OpBoot) Pack(p []byte) {
	p[0] = OP_BOOT
	p[1] = uint8(len(o.Step))
	copy(p[2:], o.Step)
}

func (o *OpBoot) Unpack(r io.Reader) (int, error) {
	var tmp [1]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, errors.Wrap(err, "boot unpack")
	}
	name := make([]byte, tmp[0])
	n, err := io.ReadFull(r, name)
	o.Step = string(name)
	return total + n, errors.Wrap(err, "boot unpack")
}

// OpSyscall is one primitive invoked by a process.
type OpSyscall struct {
	Num  uint32
	Pid  uint32
	Ret  uint64
	Args []uint64
	Desc string
}

func (o *OpSyscall) Sizeof() int {
	return 1 + 4 + 4 + 8 + 1 + 2 + len(o.Args)*8 + len(o.Desc)
}

func (o *OpSyscall) Pack(p []byte) {
	size := 1 + 4 + 4 + 8 + 1 + 2
	p[0] = OP_SYSCALL
	order.PutUint32(p[1:], o.Num)
	order.PutUint32(p[5:], o.Pid)
	order.PutUint64(p[9:], o.Ret)
	p[17] = uint8(len(o.Args))
	order.PutUint16(p[18:], uint16(len(o.Desc)))
	for i, v := range o.Args {
		order.PutUint64(p[size+i*8:], v)
	}
	copy(p[size+len(o.Args)*8:], o.Desc)
}

func (o *OpSyscall) Unpack(r io.Reader) (int, error) {
	var tmp [4 + 4 + 8 + 1 + 2]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, errors.Wrap(err, "syscall unpack")
	}
	o.Num = order.Uint32(tmp[:])
	o.Pid = order.Uint32(tmp[4:])
	o.Ret = order.Uint64(tmp[8:])
	args := int(tmp[16])
	desc := int(order.Uint16(tmp[17:]))

	tmp2 := make([]byte, 8*args+desc)
	n, err := io.ReadFull(r, tmp2)
	total += n
	if err != nil {
		return total, errors.Wrap(err, "syscall unpack")
	}
	o.Args = make([]uint64, args)
	for i := range o.Args {
		o.Args[i] = order.Uint64(tmp2[i*8:])
	}
	o.Desc = string(tmp2[8*args:])
	return total, nil
}

// OpExit records a process termination.
type OpExit struct {
	Pid    uint32
	Status uint32
}

func (o *OpExit) Sizeof() int { return 1 + 4 + 4 }
func (o *OpExit) Pack(p []byte) {
	p[0] = OP_EXIT
	order.PutUint32(p[1:], o.Pid)
	order.PutUint32(p[5:], o.Status)
}

func (o *OpExit) Unpack(r io.Reader) (int, error) {
	var tmp [8]byte
	n, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return n, errors.Wrap(err, "exit unpack")
	}
	o.Pid = order.Uint32(tmp[:])
	o.Status = order.Uint32(tmp[4:])
	return n, nil
}
