package models

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// ParamBlockSize is the size of the setup parameter block handed over by the
// loader. The fields below sit at fixed offsets inside it.
const ParamBlockSize = 512

const (
	OffExtMem    = 0x002
	OffDriveInfo = 0x080
	OffRootDev   = 0x1FC
)

// paramBlock mirrors the loader's parameter area. Everything we don't read is padding.
type paramBlock struct {
	Pad0      []byte `struc:"[2]pad"`
	ExtMemKB  uint16
	Pad1      []byte `struc:"[124]pad"`
	DriveInfo []byte `struc:"[32]byte"`
	Pad2      []byte `struc:"[348]pad"`
	RootDev   uint16
	Pad3      []byte `struc:"[2]pad"`
}

// BootInfo holds the values an earlier boot stage leaves behind. It is
// captured once before anything else runs and is read-only afterwards.
type BootInfo struct {
	ExtMemKB  uint16
	RootDev   uint16
	DriveInfo [32]byte
}

// ReadBootInfo decodes a setup parameter block.
func ReadBootInfo(r io.Reader) (BootInfo, error) {
	var pb paramBlock
	var info BootInfo
	if err := struc.UnpackWithOrder(r, &pb, binary.LittleEndian); err != nil {
		return info, errors.Wrap(err, "failed to unpack boot parameter block")
	}
	info.ExtMemKB = pb.ExtMemKB
	info.RootDev = pb.RootDev
	copy(info.DriveInfo[:], pb.DriveInfo)
	return info, nil
}

// Pack writes b back out as a full parameter block.
func (b *BootInfo) Pack(w io.Writer) error {
	pb := &paramBlock{
		ExtMemKB:  b.ExtMemKB,
		RootDev:   b.RootDev,
		DriveInfo: b.DriveInfo[:],
	}
	return errors.Wrap(struc.PackWithOrder(w, pb, binary.LittleEndian), "struc.Pack() failed")
}

// DriveParams is one 16-byte hard disk record from the drive block.
type DriveParams struct {
	Cyl   uint16
	Head  uint8
	Pad0  []byte `struc:"[2]pad"`
	Wpcom uint16
	Pad1  []byte `struc:"[1]pad"`
	Ctl   uint8
	Pad2  []byte `struc:"[3]pad"`
	Lzone uint16
	Sect  uint8
	Pad3  []byte `struc:"[1]pad"`
}

// Sectors returns the drive size in 512-byte sectors.
func (d *DriveParams) Sectors() uint64 {
	return uint64(d.Cyl) * uint64(d.Head) * uint64(d.Sect)
}

// Drives decodes both drive records. Records with zero heads are absent drives.
func (b *BootInfo) Drives() ([2]DriveParams, error) {
	var out [2]DriveParams
	r := bytes.NewReader(b.DriveInfo[:])
	for i := range out {
		if err := struc.UnpackWithOrder(r, &out[i], binary.LittleEndian); err != nil {
			return out, errors.Wrapf(err, "failed to unpack drive %d", i)
		}
	}
	return out, nil
}

// SetDrive packs d into drive slot i of the drive block.
func (b *BootInfo) SetDrive(i int, d *DriveParams) error {
	if i < 0 || i > 1 {
		return errors.Errorf("invalid drive slot %d", i)
	}
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, d, binary.LittleEndian); err != nil {
		return errors.Wrap(err, "struc.Pack() failed")
	}
	copy(b.DriveInfo[i*16:(i+1)*16], buf.Bytes())
	return nil
}
