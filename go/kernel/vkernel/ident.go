package vkernel

import (
	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// MaxIdent is the longest name iam accepts.
const MaxIdent = 23

// identErr picks the error for a rejected iam/whoami. Older kernels returned
// a bare -1, later ones -EINVAL.
func (k *Kernel) identErr() error {
	if k.Config.IdentityErrors == models.IdentMinusOne {
		return posix.EPERM
	}
	return posix.EINVAL
}

// Iam stores name as the system identity and returns its length.
func (p *Proc) Iam(name string) (int, error) {
	k := p.k
	k.enter()
	if len(name) > MaxIdent {
		err := k.identErr()
		k.leave(p.t, "iam", posix.Ret(-1, err), name)
		return -1, err
	}
	k.ident = name
	k.leave(p.t, "iam", uint64(len(name)), name)
	return len(name), nil
}

// Whoami copies the identity and a terminating NUL into buf and returns the
// identity's length. buf must have room for the NUL.
func (p *Proc) Whoami(buf []byte) (int, error) {
	k := p.k
	k.enter()
	id := k.ident
	if len(buf) <= len(id) {
		err := k.identErr()
		k.leave(p.t, "whoami", posix.Ret(-1, err), "", uint64(len(buf)))
		return -1, err
	}
	copy(buf, id)
	buf[len(id)] = 0
	k.leave(p.t, "whoami", uint64(len(id)), id, uint64(len(buf)))
	return len(id), nil
}
