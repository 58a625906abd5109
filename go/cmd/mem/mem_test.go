package mem

import (
	"testing"

	"github.com/lunixbochs/bootcorn/go/models"
)

func TestPlan(t *testing.T) {
	p, err := Plan(15*1024, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.MemoryEnd != 16*models.MB || p.BufferMemoryEnd != 4*models.MB || p.Ramdisk != 0 {
		t.Fatalf("bad plan %+v", p)
	}
	if p.FreeMemory != 12*models.MB || p.Buffers <= 0 {
		t.Fatalf("bad plan %+v", p)
	}
}

func TestPlanRamdisk(t *testing.T) {
	p, err := Plan(7*1024, 512)
	if err != nil {
		t.Fatal(err)
	}
	if p.BufferMemoryEnd != 2*models.MB || p.MainMemoryStart != 2*models.MB+512*models.KB {
		t.Fatalf("bad plan %+v", p)
	}
	if p.Ramdisk != 512*models.KB {
		t.Fatalf("ramdisk %d", p.Ramdisk)
	}
}
