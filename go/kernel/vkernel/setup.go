package vkernel

import (
	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Setup reads the hard disk parameters and mounts the root device. It only
// works once.
func (p *Proc) Setup(driveInfo [32]byte) error {
	k := p.k
	k.enter()
	err := k.setup(driveInfo)
	k.leave(p.t, "setup", posix.Ret(0, err), "")
	return err
}

func (k *Kernel) setup(driveInfo [32]byte) error {
	if k.setupDone {
		return posix.EPERM
	}
	k.setupDone = true
	info := models.BootInfo{DriveInfo: driveInfo}
	drives, err := info.Drives()
	if err != nil {
		return posix.EIO
	}
	k.drives = drives
	for i, d := range drives {
		if d.Head == 0 {
			continue
		}
		k.Log.Infof("hd%d: %d cylinders, %d heads, %d sectors (%d KB)",
			i, d.Cyl, d.Head, d.Sect, d.Sectors()/2)
	}
	k.Log.Infof("root device %#04x mounted", k.Config.RootDev)
	return nil
}

// Drives returns the disk geometry recorded by setup.
func (k *Kernel) Drives() [2]models.DriveParams {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.drives
}
