// Package hyperv fronts the Hyper-V PowerShell module. Every command
// string it generates passes through the safety filter before the
// privileged executor sees it; there is no bypass, including for the
// raw console channel.
package hyperv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hyperdeck/bridge/internal/executor"
	"github.com/hyperdeck/bridge/internal/safety"
	"github.com/hyperdeck/bridge/internal/tasks"
)

// ErrBlocked is surfaced to the UI when the safety filter rejects a
// command. Deliberately vague; the full verdict goes to the local log.
var ErrBlocked = errors.New("blocked for security reasons")

// ErrInvalidRequest marks request validation failures, mapped to a
// client error at the HTTP boundary.
var ErrInvalidRequest = errors.New("invalid request")

const (
	// shortTimeout bounds queries.
	shortTimeout = 30 * time.Second
	// longTimeout bounds state-changing operations.
	longTimeout = 2 * time.Minute
)

// Manager executes Hyper-V operations through the filter and runner.
type Manager struct {
	filter  *safety.Filter
	runner  executor.Runner
	tracker *tasks.Tracker
	publish func(channel string, payload any)
}

// NewManager wires the safety filter, privileged runner and task
// tracker together. publish may be nil.
func NewManager(filter *safety.Filter, runner executor.Runner, tracker *tasks.Tracker, publish func(string, any)) *Manager {
	if publish == nil {
		publish = func(string, any) {}
	}
	return &Manager{
		filter:  filter,
		runner:  runner,
		tracker: tracker,
		publish: publish,
	}
}

// run checks the command with the filter, then executes it. Filter
// rejections are logged in full and surfaced as ErrBlocked.
func (m *Manager) run(ctx context.Context, command string, timeout time.Duration) (executor.Result, error) {
	verdict := m.filter.Check(command)
	if !verdict.Safe {
		log.Printf("[hyperv] blocked command %s | category=%s reason=%s",
			executor.Preview(command), verdict.Category, verdict.Reason)
		return executor.Result{}, ErrBlocked
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.runner.Execute(ctx, command), nil
}

// query runs a read-only command and decodes its JSON stdout into v.
// Empty or garbled output degrades to no data, not an error.
func (m *Manager) query(ctx context.Context, command string, v any) error {
	result, err := m.run(ctx, command, shortTimeout)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("command failed: %s", result.Error)
	}
	executor.DecodeJSON(result.Stdout, v)
	return nil
}

// operate runs a state-changing command under a tracked task. The
// task id always comes back, even on failure, so the UI can show the
// outcome.
func (m *Manager) operate(ctx context.Context, taskName, target, command string) (OpResult, error) {
	id := m.tracker.Create(taskName, target)
	m.tracker.UpdateProgress(id, 10)

	result, err := m.run(ctx, command, longTimeout)
	if err != nil {
		m.tracker.Complete(id, false)
		return OpResult{TaskID: id, Error: err.Error()}, err
	}

	m.tracker.UpdateProgress(id, 90)
	m.tracker.Complete(id, result.Success)

	op := OpResult{
		TaskID:  id,
		Success: result.Success,
		Output:  result.Stdout,
		Error:   result.Error,
	}
	if result.Success {
		m.publish("vm:state-changed", map[string]any{"target": target, "operation": taskName})
	}
	return op, nil
}

// ListVMs returns all virtual machines.
func (m *Manager) ListVMs(ctx context.Context) ([]VMInfo, error) {
	var vms []VMInfo
	if err := m.query(ctx, cmdListVMs(), &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// GetVM returns one virtual machine by name.
func (m *Manager) GetVM(ctx context.Context, name string) (*VMInfo, error) {
	var vms []VMInfo
	if err := m.query(ctx, cmdGetVM(name), &vms); err != nil {
		return nil, err
	}
	if len(vms) == 0 {
		return nil, fmt.Errorf("vm %q not found", name)
	}
	return &vms[0], nil
}

// StartVM powers on a VM.
func (m *Manager) StartVM(ctx context.Context, name string) (OpResult, error) {
	return m.operate(ctx, "Start Virtual Machine", name, cmdStartVM(name))
}

// StopVM shuts a VM down; force turns it off without guest shutdown.
func (m *Manager) StopVM(ctx context.Context, name string, force bool) (OpResult, error) {
	return m.operate(ctx, "Stop Virtual Machine", name, cmdStopVM(name, force))
}

// RestartVM restarts a VM.
func (m *Manager) RestartVM(ctx context.Context, name string) (OpResult, error) {
	return m.operate(ctx, "Restart Virtual Machine", name, cmdRestartVM(name))
}

// PauseVM suspends a VM.
func (m *Manager) PauseVM(ctx context.Context, name string) (OpResult, error) {
	return m.operate(ctx, "Pause Virtual Machine", name, cmdPauseVM(name))
}

// ResumeVM resumes a suspended VM.
func (m *Manager) ResumeVM(ctx context.Context, name string) (OpResult, error) {
	return m.operate(ctx, "Resume Virtual Machine", name, cmdResumeVM(name))
}

// CreateVM provisions a new VM.
func (m *Manager) CreateVM(ctx context.Context, req CreateVMRequest) (OpResult, error) {
	if req.Name == "" {
		return OpResult{}, fmt.Errorf("%w: vm name is required", ErrInvalidRequest)
	}
	if req.MemoryMB <= 0 {
		req.MemoryMB = 1024
	}
	if req.Generation != 1 && req.Generation != 2 {
		req.Generation = 2
	}
	return m.operate(ctx, "Create Virtual Machine", req.Name, cmdCreateVM(req))
}

// DeleteVM removes a VM definition.
func (m *Manager) DeleteVM(ctx context.Context, name string) (OpResult, error) {
	return m.operate(ctx, "Delete Virtual Machine", name, cmdDeleteVM(name))
}

// SetMemory changes a VM's startup memory.
func (m *Manager) SetMemory(ctx context.Context, name string, memoryMB int64) (OpResult, error) {
	if memoryMB <= 0 {
		return OpResult{}, fmt.Errorf("%w: memory must be positive", ErrInvalidRequest)
	}
	return m.operate(ctx, "Set Virtual Machine Memory", name, cmdSetMemory(name, memoryMB))
}

// SetCPU changes a VM's virtual processor count.
func (m *Manager) SetCPU(ctx context.Context, name string, count int) (OpResult, error) {
	if count <= 0 {
		return OpResult{}, fmt.Errorf("%w: cpu count must be positive", ErrInvalidRequest)
	}
	return m.operate(ctx, "Set Virtual Machine Processors", name, cmdSetCPU(name, count))
}

// ListCheckpoints lists the checkpoints of a VM.
func (m *Manager) ListCheckpoints(ctx context.Context, vmName string) ([]CheckpointInfo, error) {
	var cps []CheckpointInfo
	if err := m.query(ctx, cmdListCheckpoints(vmName), &cps); err != nil {
		return nil, err
	}
	return cps, nil
}

// CreateCheckpoint snapshots a VM.
func (m *Manager) CreateCheckpoint(ctx context.Context, vmName, checkpoint string) (OpResult, error) {
	return m.operate(ctx, "Create Checkpoint", vmName, cmdCreateCheckpoint(vmName, checkpoint))
}

// RestoreCheckpoint rolls a VM back to a checkpoint.
func (m *Manager) RestoreCheckpoint(ctx context.Context, vmName, checkpoint string) (OpResult, error) {
	return m.operate(ctx, "Restore Checkpoint", vmName, cmdRestoreCheckpoint(vmName, checkpoint))
}

// DeleteCheckpoint removes a checkpoint.
func (m *Manager) DeleteCheckpoint(ctx context.Context, vmName, checkpoint string) (OpResult, error) {
	return m.operate(ctx, "Delete Checkpoint", vmName, cmdDeleteCheckpoint(vmName, checkpoint))
}

// ListVHDs lists the virtual disks attached to a VM.
func (m *Manager) ListVHDs(ctx context.Context, vmName string) ([]VHDInfo, error) {
	var vhds []VHDInfo
	if err := m.query(ctx, cmdListVHDs(vmName), &vhds); err != nil {
		return nil, err
	}
	return vhds, nil
}

// ListSwitches lists virtual switches.
func (m *Manager) ListSwitches(ctx context.Context) ([]SwitchInfo, error) {
	var switches []SwitchInfo
	if err := m.query(ctx, cmdListSwitches(), &switches); err != nil {
		return nil, err
	}
	return switches, nil
}

// CreateSwitch creates a virtual switch. Only the three Hyper-V
// switch types are accepted.
func (m *Manager) CreateSwitch(ctx context.Context, name, switchType string) (OpResult, error) {
	switch switchType {
	case "External", "Internal", "Private":
	default:
		return OpResult{}, fmt.Errorf("%w: invalid switch type %q", ErrInvalidRequest, switchType)
	}
	return m.operate(ctx, "Create Virtual Switch", name, cmdCreateSwitch(name, switchType))
}

// RunRaw executes a raw console command through the same safety
// filter as every generated command.
func (m *Manager) RunRaw(ctx context.Context, command string) (executor.Result, error) {
	return m.run(ctx, command, longTimeout)
}
