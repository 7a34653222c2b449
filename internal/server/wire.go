package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/hyperdeck/bridge/config"
	"github.com/hyperdeck/bridge/internal/bridge"
	"github.com/hyperdeck/bridge/internal/hyperv"
	"github.com/hyperdeck/bridge/internal/system"
)

// RegisterHandlers binds every catalogued channel to its handler.
// Payload shapes are validated here, at the boundary, instead of
// trusting caller-supplied structure.
func RegisterHandlers(b *bridge.Bridge, vms *hyperv.Manager, host *system.Collector, store *config.SettingsStore) {
	// VM lifecycle
	b.Handle("vm:list", func(ctx context.Context, args []any) (any, error) {
		return vms.ListVMs(ctx)
	})
	b.Handle("vm:get", withName(func(ctx context.Context, name string) (any, error) {
		return vms.GetVM(ctx, name)
	}))
	b.Handle("vm:start", withName(func(ctx context.Context, name string) (any, error) {
		return vms.StartVM(ctx, name)
	}))
	b.Handle("vm:stop", func(ctx context.Context, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		force := false
		if len(args) > 1 {
			force, _ = args[1].(bool)
		}
		return vms.StopVM(ctx, name, force)
	})
	b.Handle("vm:restart", withName(func(ctx context.Context, name string) (any, error) {
		return vms.RestartVM(ctx, name)
	}))
	b.Handle("vm:pause", withName(func(ctx context.Context, name string) (any, error) {
		return vms.PauseVM(ctx, name)
	}))
	b.Handle("vm:resume", withName(func(ctx context.Context, name string) (any, error) {
		return vms.ResumeVM(ctx, name)
	}))
	b.Handle("vm:create", func(ctx context.Context, args []any) (any, error) {
		var req hyperv.CreateVMRequest
		if err := decodeArg(args, 0, &req); err != nil {
			return nil, err
		}
		// Fill omitted sizing from the persisted preferences.
		settings := store.Get()
		if req.MemoryMB == 0 {
			req.MemoryMB = settings.DefaultMemoryMB
		}
		return vms.CreateVM(ctx, req)
	})
	b.Handle("vm:delete", withName(func(ctx context.Context, name string) (any, error) {
		return vms.DeleteVM(ctx, name)
	}))
	b.Handle("vm:set-memory", func(ctx context.Context, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		memoryMB, err := argInt64(args, 1)
		if err != nil {
			return nil, err
		}
		return vms.SetMemory(ctx, name, memoryMB)
	})
	b.Handle("vm:set-cpu", func(ctx context.Context, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		count, err := argInt64(args, 1)
		if err != nil {
			return nil, err
		}
		return vms.SetCPU(ctx, name, int(count))
	})

	// Checkpoints
	b.Handle("checkpoint:list", withName(func(ctx context.Context, name string) (any, error) {
		return vms.ListCheckpoints(ctx, name)
	}))
	b.Handle("checkpoint:create", withNamePair(vms.CreateCheckpoint))
	b.Handle("checkpoint:restore", withNamePair(vms.RestoreCheckpoint))
	b.Handle("checkpoint:delete", withNamePair(vms.DeleteCheckpoint))

	// Storage and network
	b.Handle("vhd:list", withName(func(ctx context.Context, name string) (any, error) {
		return vms.ListVHDs(ctx, name)
	}))
	b.Handle("switch:list", func(ctx context.Context, args []any) (any, error) {
		return vms.ListSwitches(ctx)
	})
	b.Handle("switch:create", func(ctx context.Context, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		switchType, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		return vms.CreateSwitch(ctx, name, switchType)
	})

	// Host panel
	b.Handle("host:info", func(ctx context.Context, args []any) (any, error) {
		return host.Info()
	})
	b.Handle("host:metrics", func(ctx context.Context, args []any) (any, error) {
		return host.Metrics()
	})

	// Settings
	b.Handle("settings:get", func(ctx context.Context, args []any) (any, error) {
		return store.Get(), nil
	})
	b.Handle("settings:save", func(ctx context.Context, args []any) (any, error) {
		var settings config.Settings
		if err := decodeArg(args, 0, &settings); err != nil {
			return nil, err
		}
		if err := store.Save(settings); err != nil {
			return nil, err
		}
		return store.Get(), nil
	})

	// Raw console
	b.Handle("powershell:run", func(ctx context.Context, args []any) (any, error) {
		command, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return vms.RunRaw(ctx, command)
	})

	// Fire-and-forget sinks
	b.HandleSend("ui:log", func(args []any) {
		log.Printf("[ui] %v", args)
	})
	b.HandleSend("telemetry:event", func(args []any) {
		log.Printf("[telemetry] %v", args)
	})
}

// withName adapts a single-VM-name operation to a bridge handler.
func withName(fn func(ctx context.Context, name string) (any, error)) bridge.Handler {
	return func(ctx context.Context, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(ctx, name)
	}
}

// withNamePair adapts (vmName, checkpointName) operations.
func withNamePair(fn func(ctx context.Context, vmName, name string) (hyperv.OpResult, error)) bridge.Handler {
	return func(ctx context.Context, args []any) (any, error) {
		vmName, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		name, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		return fn(ctx, vmName, name)
	}
}

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: missing argument %d", bridge.ErrInvalidArgs, i)
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: argument %d must be a non-empty string", bridge.ErrInvalidArgs, i)
	}
	return s, nil
}

func argInt64(args []any, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing argument %d", bridge.ErrInvalidArgs, i)
	}
	switch v := args[i].(type) {
	case float64: // JSON numbers decode as float64
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: argument %d must be a whole number", bridge.ErrInvalidArgs, i)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: argument %d must be a number", bridge.ErrInvalidArgs, i)
	}
}

// decodeArg converts a map-shaped argument into a typed struct via a
// JSON round trip, rejecting unknown shapes.
func decodeArg(args []any, i int, v any) error {
	if i >= len(args) {
		return fmt.Errorf("%w: missing argument %d", bridge.ErrInvalidArgs, i)
	}
	data, err := json.Marshal(args[i])
	if err != nil {
		return fmt.Errorf("%w: argument %d is not encodable", bridge.ErrInvalidArgs, i)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: argument %d has the wrong shape", bridge.ErrInvalidArgs, i)
	}
	return nil
}
