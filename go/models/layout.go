package models

import "fmt"

const (
	KB = 1024
	MB = 1024 * KB

	PageSize = 4096
	// MaxMemory is the most physical memory the kernel will use.
	MaxMemory = 16 * MB
)

// MemoryLayout is the physical memory plan computed once at boot.
// MainMemoryStart <= MemoryEnd always holds.
type MemoryLayout struct {
	MemoryEnd       uint64
	BufferMemoryEnd uint64
	MainMemoryStart uint64
}

// Ramdisk returns the size of the reserved block between the buffer cache and main memory.
func (m MemoryLayout) Ramdisk() uint64 {
	return m.MainMemoryStart - m.BufferMemoryEnd
}

// FreeMemory is the amount of memory handed to the page allocator.
func (m MemoryLayout) FreeMemory() uint64 {
	return m.MemoryEnd - m.MainMemoryStart
}

func (m MemoryLayout) String() string {
	return fmt.Sprintf("memory end %#x, buffer end %#x, main memory start %#x",
		m.MemoryEnd, m.BufferMemoryEnd, m.MainMemoryStart)
}
