package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/google/uuid"

	"github.com/sysfeed/wdt-agent/internal/api"
	config "github.com/sysfeed/wdt-agent/internal/cfg"
	"github.com/sysfeed/wdt-agent/internal/device"
	"github.com/sysfeed/wdt-agent/internal/health"
	"github.com/sysfeed/wdt-agent/internal/supervisor"
)

// probeTimeout bounds the HTTP and Docker probes; it matches the scratch
// write bound so no single check can eat more than one tick.
const probeTimeout = 5 * time.Second

func main() {
	logger := log.New(os.Stdout, "WDT-AGENT | ", log.LstdFlags)
	logger.Println("Starting watchdog feeder...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	dev, err := device.Open(cfg.Device)
	if err != nil {
		logger.Fatalf("FATAL: %v", err)
	}
	logger.Printf("Watchdog device %s armed.", dev.Path())

	if cfg.HWTimeout > 0 {
		if err := dev.SetTimeout(cfg.HWTimeout); err != nil {
			logger.Fatalf("FATAL: Failed to set hardware timeout: %v", err)
		}
	}
	if hw, err := dev.Timeout(); err == nil {
		logger.Printf("Driver reboot timeout: %v", hw)
	}

	sup := supervisor.New(dev, buildProbe(cfg, logger), supervisor.Config{
		Interval:     cfg.Interval,
		StartupDelay: cfg.StartupDelay,
		FailTimeout:  cfg.FailTimeout,
	})

	var statusServer *http.Server
	if cfg.StatusPort > 0 {
		statusServer = api.NewServer(cfg.StatusPort, uuid.NewString(), sup)
		go func() {
			if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("ERROR: Status server stopped: %v", err)
			}
		}()
		logger.Printf("Status API configured on port %d.", cfg.StatusPort)
	}

	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}()
		logger.Println("Systemd watchdog notifications enabled.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon.SdNotify(false, daemon.SdNotifyReady)
	logger.Println("Agent is ready and feeding.")

	runErr := sup.Run(ctx)

	daemon.SdNotify(false, daemon.SdNotifyStopping)

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("ERROR: Status server forced to shut down: %v", err)
		}
	}

	if runErr != nil {
		logger.Fatalf("FATAL: %v", runErr)
	}
	logger.Println("Watchdog disarmed. Agent shut down successfully.")
}

func buildProbe(cfg *config.Config, logger *log.Logger) health.Probe {
	probes := []health.Probe{
		&health.MemoryProbe{MinAvailable: cfg.MinAvailKB * 1024},
		&health.DiskProbe{Path: cfg.ScratchFile, MaxLatency: cfg.ScratchLatency},
	}

	if cfg.HealthURL != "" {
		probes = append(probes, health.NewHTTPProbe(cfg.HealthURL, probeTimeout))
		logger.Printf("HTTP health probe enabled for %s.", cfg.HealthURL)
	}
	if cfg.CheckDocker {
		dockerProbe, err := health.NewDockerProbe(probeTimeout)
		if err != nil {
			logger.Fatalf("FATAL: Failed to create docker probe: %v", err)
		}
		probes = append(probes, dockerProbe)
		logger.Println("Docker health probe enabled.")
	}

	return health.All(probes...)
}
