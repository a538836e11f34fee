package health

import (
	"log"
	"os"
	"time"
)

// DiskProbe times a small synchronous write to a scratch file. A failed or
// slow write means the disk, or the whole I/O path behind it, is stuck.
type DiskProbe struct {
	Path       string
	MaxLatency time.Duration
}

func (p *DiskProbe) Name() string { return "disk" }

func (p *DiskProbe) Check() bool {
	start := time.Now()
	if err := os.WriteFile(p.Path, []byte("1"), 0644); err != nil {
		log.Printf("[Health] scratch write to %s failed: %v", p.Path, err)
		return false
	}
	if elapsed := time.Since(start); elapsed > p.MaxLatency {
		log.Printf("[Health] scratch write took %v, bound is %v", elapsed, p.MaxLatency)
		return false
	}
	return true
}
