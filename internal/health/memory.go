package health

import (
	"log"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryProbe reports unhealthy when available memory drops below a floor.
type MemoryProbe struct {
	MinAvailable uint64 // bytes
}

func (p *MemoryProbe) Name() string { return "memory" }

func (p *MemoryProbe) Check() bool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[Health] memory stats unavailable: %v", err)
		return false
	}
	if vm.Available < p.MinAvailable {
		log.Printf("[Health] low memory: %d bytes available, floor is %d", vm.Available, p.MinAvailable)
		return false
	}
	return true
}
