package hyperv

import (
	"fmt"

	"github.com/hyperdeck/bridge/internal/executor"
)

// Command builders. Every user-supplied value goes through
// executor.Quote so names cannot break out of the string literal.

// vmSelect projects Get-VM output into stable JSON field names. State
// is stringified because ConvertTo-Json renders the raw enum as a
// number.
const vmSelect = `Select-Object Name,@{n='State';e={[string]$_.State}},Status,Generation,CPUUsage,ProcessorCount,` +
	`@{n='MemoryAssignedMB';e={[int64]($_.MemoryAssigned/1MB)}},` +
	`@{n='UptimeSeconds';e={[int64]$_.Uptime.TotalSeconds}}`

func cmdListVMs() string {
	return fmt.Sprintf(`Get-VM | %s | ConvertTo-Json -Depth 3`, vmSelect)
}

func cmdGetVM(name string) string {
	return fmt.Sprintf(`Get-VM -Name %s | %s | ConvertTo-Json -Depth 3`, executor.Quote(name), vmSelect)
}

func cmdStartVM(name string) string {
	return fmt.Sprintf(`Start-VM -Name %s`, executor.Quote(name))
}

func cmdStopVM(name string, force bool) string {
	cmd := fmt.Sprintf(`Stop-VM -Name %s`, executor.Quote(name))
	if force {
		cmd += " -TurnOff"
	}
	return cmd
}

func cmdRestartVM(name string) string {
	return fmt.Sprintf(`Restart-VM -Name %s -Force`, executor.Quote(name))
}

func cmdPauseVM(name string) string {
	return fmt.Sprintf(`Suspend-VM -Name %s`, executor.Quote(name))
}

func cmdResumeVM(name string) string {
	return fmt.Sprintf(`Resume-VM -Name %s`, executor.Quote(name))
}

func cmdCreateVM(req CreateVMRequest) string {
	cmd := fmt.Sprintf(`New-VM -Name %s -MemoryStartupBytes %dMB -Generation %d`,
		executor.Quote(req.Name), req.MemoryMB, req.Generation)
	if req.SwitchName != "" {
		cmd += fmt.Sprintf(` -SwitchName %s`, executor.Quote(req.SwitchName))
	}
	return cmd
}

func cmdDeleteVM(name string) string {
	return fmt.Sprintf(`Remove-VM -Name %s -Force`, executor.Quote(name))
}

func cmdSetMemory(name string, memoryMB int64) string {
	return fmt.Sprintf(`Set-VMMemory -VMName %s -StartupBytes %dMB`, executor.Quote(name), memoryMB)
}

func cmdSetCPU(name string, count int) string {
	return fmt.Sprintf(`Set-VMProcessor -VMName %s -Count %d`, executor.Quote(name), count)
}

func cmdListCheckpoints(vmName string) string {
	return fmt.Sprintf(`Get-VMSnapshot -VMName %s | Select-Object Name,VMName,`+
		`@{n='CreationTime';e={$_.CreationTime.ToString('o')}},ParentSnapshotName | ConvertTo-Json -Depth 3`,
		executor.Quote(vmName))
}

func cmdCreateCheckpoint(vmName, checkpoint string) string {
	return fmt.Sprintf(`Checkpoint-VM -Name %s -SnapshotName %s`,
		executor.Quote(vmName), executor.Quote(checkpoint))
}

func cmdRestoreCheckpoint(vmName, checkpoint string) string {
	return fmt.Sprintf(`Restore-VMSnapshot -VMName %s -Name %s -Confirm:$false`,
		executor.Quote(vmName), executor.Quote(checkpoint))
}

func cmdDeleteCheckpoint(vmName, checkpoint string) string {
	return fmt.Sprintf(`Remove-VMSnapshot -VMName %s -Name %s`,
		executor.Quote(vmName), executor.Quote(checkpoint))
}

func cmdListVHDs(vmName string) string {
	return fmt.Sprintf(`Get-VMHardDiskDrive -VMName %s | Select-Object VMName,Path,`+
		`@{n='ControllerType';e={[string]$_.ControllerType}},ControllerNumber,ControllerLocation | ConvertTo-Json -Depth 3`,
		executor.Quote(vmName))
}

func cmdListSwitches() string {
	return `Get-VMSwitch | Select-Object Name,@{n='SwitchType';e={[string]$_.SwitchType}},Notes | ConvertTo-Json -Depth 3`
}

func cmdCreateSwitch(name, switchType string) string {
	return fmt.Sprintf(`New-VMSwitch -Name %s -SwitchType %s`,
		executor.Quote(name), executor.Quote(switchType))
}
