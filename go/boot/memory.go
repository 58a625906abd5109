package boot

import "github.com/lunixbochs/bootcorn/go/models"

// buffer cache size is a step function of the end of memory
var bufferTiers = []struct {
	above, size uint64
}{
	{12 * models.MB, 4 * models.MB},
	{6 * models.MB, 2 * models.MB},
}

// PlanMemory computes the physical memory layout from the extended memory
// size reported by the BIOS. Every input is accepted; large values clamp.
func PlanMemory(extKB, ramdiskKB uint32) models.MemoryLayout {
	end := models.MB + uint64(extKB)*models.KB
	end &^= models.PageSize - 1
	if end > models.MaxMemory {
		end = models.MaxMemory
	}
	buffer := uint64(models.MB)
	for _, tier := range bufferTiers {
		if end > tier.above {
			buffer = tier.size
			break
		}
	}
	start := buffer
	if ramdisk := uint64(ramdiskKB) * models.KB; ramdisk > 0 {
		// main memory is handed out in pages
		ramdisk = (ramdisk + models.PageSize - 1) &^ (models.PageSize - 1)
		if ramdisk > end-start {
			ramdisk = end - start
		}
		start += ramdisk
	}
	return models.MemoryLayout{
		MemoryEnd:       end,
		BufferMemoryEnd: buffer,
		MainMemoryStart: start,
	}
}
