package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults match the deployment this daemon grew out of: feed every ten
// seconds, give the host five minutes to finish booting, and only let the
// hardware reboot it after ten minutes of sustained bad health.
const (
	DefaultDevice         = "/dev/watchdog0"
	DefaultInterval       = 10 * time.Second
	DefaultStartupDelay   = 300 * time.Second
	DefaultFailTimeout    = 600 * time.Second
	DefaultMinAvailKB     = 50000
	DefaultScratchFile    = "/tmp/.wdt_test"
	DefaultScratchLatency = 5 * time.Second
	DefaultStatusPort     = 9440
)

type Config struct {
	Device       string
	Interval     time.Duration
	StartupDelay time.Duration
	FailTimeout  time.Duration

	MinAvailKB     uint64
	ScratchFile    string
	ScratchLatency time.Duration

	// HWTimeout programs the driver's own reboot timeout; zero leaves the
	// driver default in place.
	HWTimeout time.Duration

	// HealthURL enables the HTTP probe when set.
	HealthURL string
	// CheckDocker enables the Docker daemon probe.
	CheckDocker bool

	// StatusPort serves the read-only status API; zero disables it.
	StatusPort int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Device:      envString("WDT_DEVICE", DefaultDevice),
		ScratchFile: envString("WDT_SCRATCH_FILE", DefaultScratchFile),
		HealthURL:   os.Getenv("WDT_HEALTH_URL"),
		CheckDocker: os.Getenv("WDT_CHECK_DOCKER") == "1",
	}

	var err error
	if cfg.Interval, err = envSeconds("WDT_INTERVAL", DefaultInterval); err != nil {
		return nil, err
	}
	if cfg.StartupDelay, err = envSeconds("WDT_STARTUP_DELAY", DefaultStartupDelay); err != nil {
		return nil, err
	}
	if cfg.FailTimeout, err = envSeconds("WDT_FAIL_TIMEOUT", DefaultFailTimeout); err != nil {
		return nil, err
	}
	if cfg.ScratchLatency, err = envSeconds("WDT_SCRATCH_LATENCY", DefaultScratchLatency); err != nil {
		return nil, err
	}
	if cfg.HWTimeout, err = envSeconds("WDT_HW_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.MinAvailKB, err = envUint("WDT_MIN_AVAIL_KB", DefaultMinAvailKB); err != nil {
		return nil, err
	}
	if cfg.StatusPort, err = envInt("WDT_STATUS_PORT", DefaultStatusPort); err != nil {
		return nil, err
	}

	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("WDT_INTERVAL must be positive")
	}
	if cfg.StartupDelay < 0 || cfg.FailTimeout < 0 {
		return nil, fmt.Errorf("WDT_STARTUP_DELAY and WDT_FAIL_TIMEOUT must not be negative")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envSeconds(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number of seconds", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}

func envUint(key string, def uint64) (uint64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a non-negative number", key, raw)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return v, nil
}
