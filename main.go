package main

import (
	"context"
	"log"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/hyperdeck/bridge/config"
	"github.com/hyperdeck/bridge/internal/bridge"
	"github.com/hyperdeck/bridge/internal/channels"
	"github.com/hyperdeck/bridge/internal/executor"
	"github.com/hyperdeck/bridge/internal/hyperv"
	"github.com/hyperdeck/bridge/internal/safety"
	"github.com/hyperdeck/bridge/internal/server"
	"github.com/hyperdeck/bridge/internal/system"
	"github.com/hyperdeck/bridge/internal/tasks"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Check if in setup mode
	if cfg.SetupMode {
		log.Printf("⚠️  No API key configured - starting in SETUP MODE")
		log.Printf("📋 POST http://%s/setup/generate to create an API key", cfg.Addr())
		log.Printf("🔒 After setup, restart the bridge to enable authentication")
	}

	// Safety policy: deny-list file with built-in fallback
	policy := safety.DefaultPolicy()
	if cfg.PolicyFile != "" {
		loaded, err := safety.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			log.Printf("Failed to load policy file %s, using built-in policy: %v", cfg.PolicyFile, err)
		} else {
			policy = loaded
		}
	}
	filter, err := safety.NewFilter(policy)
	if err != nil {
		log.Fatalf("Failed to compile safety policy: %v", err)
	}

	// Bridge, tracker and the privileged executor behind it
	b := bridge.New(channels.Default())
	tracker := tasks.NewTracker(tasks.WithNotify(func(ev tasks.Event) {
		b.Publish(ev.Channel, ev.Task)
	}))
	runner := executor.NewPowerShell(cfg.PowerShellBin)
	manager := hyperv.NewManager(filter, runner, tracker, b.Publish)
	collector := system.NewCollector("")
	store := config.NewSettingsStore(cfg.SettingsFile)

	server.RegisterHandlers(b, manager, collector, store)

	// Host resource alerts on the push stream
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go system.NewMonitor(collector, b.Publish).Run(monitorCtx)

	// Create and run server
	srv := server.New(cfg, b, tracker, filter, store)

	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
