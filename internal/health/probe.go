package health

import "log"

// Probe is a single no-argument health check. A probe reports a verdict,
// never an error: anything that goes wrong inside a check reads as
// unhealthy. The supervisor stops feeding the hardware watchdog when the
// verdict stays bad for too long, so a crashed check and a failed check
// must land on the same side.
type Probe interface {
	Name() string
	Check() bool
}

// All combines probes into one; every member must pass.
func All(probes ...Probe) Probe { return chain(probes) }

type chain []Probe

func (c chain) Name() string { return "all" }

func (c chain) Check() bool {
	for _, p := range c {
		if !run(p) {
			return false
		}
	}
	return true
}

// run shields the caller from a misbehaving member probe. A panic maps to
// unhealthy instead of taking down the feed loop.
func run(p Probe) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Health] probe %s panicked: %v", p.Name(), r)
			ok = false
		}
	}()
	if !p.Check() {
		log.Printf("[Health] probe %s reported unhealthy", p.Name())
		return false
	}
	return true
}
