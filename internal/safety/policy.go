package safety

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UnknownVerbMode decides what happens to a verb-noun token that is
// not on the allow-list after the deny-list has cleared.
type UnknownVerbMode string

const (
	// PermitUnknown logs unrecognized verbs but lets the command
	// through. Matches the historical behavior of the filter.
	PermitUnknown UnknownVerbMode = "permit"
	// RejectUnknown treats the allow-list as exhaustive.
	RejectUnknown UnknownVerbMode = "reject"
)

// DenyRule is one deny-list entry. Patterns are matched in order and
// the first hit rejects the command with Category as the reason.
type DenyRule struct {
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
}

// RateLimit bounds how many commands may be evaluated per window.
type RateLimit struct {
	MaxCommands int           `yaml:"max_commands"`
	Window      time.Duration `yaml:"window"`
}

// Policy is the loadable configuration of the command safety filter.
type Policy struct {
	DenyRules    []DenyRule      `yaml:"deny_rules"`
	AllowedVerbs []string        `yaml:"allowed_verbs"`
	UnknownVerbs UnknownVerbMode `yaml:"unknown_verbs"`
	RateLimit    RateLimit       `yaml:"rate_limit"`
}

// LoadPolicy reads a YAML policy file. Fields left empty fall back to
// the compiled-in default so a partial file only overrides what it
// names.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	p := DefaultPolicy()
	var loaded Policy
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if len(loaded.DenyRules) > 0 {
		p.DenyRules = loaded.DenyRules
	}
	if len(loaded.AllowedVerbs) > 0 {
		p.AllowedVerbs = loaded.AllowedVerbs
	}
	if loaded.UnknownVerbs != "" {
		p.UnknownVerbs = loaded.UnknownVerbs
	}
	if loaded.RateLimit.MaxCommands > 0 {
		p.RateLimit.MaxCommands = loaded.RateLimit.MaxCommands
	}
	if loaded.RateLimit.Window > 0 {
		p.RateLimit.Window = loaded.RateLimit.Window
	}

	return p, nil
}

// DefaultPolicy returns the compiled-in filter policy.
func DefaultPolicy() Policy {
	return Policy{
		DenyRules:    defaultDenyRules(),
		AllowedVerbs: defaultAllowedVerbs(),
		UnknownVerbs: PermitUnknown,
		RateLimit: RateLimit{
			MaxCommands: 10,
			Window:      time.Second,
		},
	}
}

func defaultDenyRules() []DenyRule {
	return []DenyRule{
		{Category: "destructive-delete", Pattern: `(?i)remove-item\s[^|]*-(recurse|force)`},
		{Category: "destructive-delete", Pattern: `(?i)\brm\s+-rf?\b`},
		{Category: "destructive-delete", Pattern: `(?i)\b(del|rmdir|rd)\s+/s\b`},
		{Category: "disk-format", Pattern: `(?i)\b(format-volume|clear-disk|initialize-disk|diskpart)\b`},
		{Category: "registry-write", Pattern: `(?i)\b(set|new|remove)-itemproperty\s[^|]*hk(lm|cu)`},
		{Category: "registry-write", Pattern: `(?i)\breg(\.exe)?\s+(add|delete)\b`},
		{Category: "persistence", Pattern: `(?i)\b(new-scheduledtask|register-scheduledtask|schtasks)\b`},
		{Category: "persistence", Pattern: `(?i)currentversion\\+run`},
		{Category: "exfiltration", Pattern: `(?i)\b(invoke-webrequest|invoke-restmethod|start-bitstransfer)\b`},
		{Category: "exfiltration", Pattern: `(?i)\b(curl|wget)\s+-`},
		{Category: "credential-theft", Pattern: `(?i)\b(mimikatz|get-credential|lsass)\b`},
		{Category: "credential-theft", Pattern: `(?i)convertto-securestring[^|]*-asplaintext`},
		{Category: "code-injection", Pattern: `(?i)\b(invoke-expression|iex)\b`},
		{Category: "code-injection", Pattern: `(?i)\badd-type\b|\[reflection\.assembly\]`},
		{Category: "encoded-command", Pattern: `(?i)-e(nc|ncodedcommand)?\s+[a-z0-9+/=]{16,}`},
		{Category: "encoded-command", Pattern: `(?i)frombase64string`},
		{Category: "process-kill", Pattern: `(?i)stop-process\s[^|]*-force`},
		{Category: "process-kill", Pattern: `(?i)\b(taskkill|stop-computer)\b`},
		{Category: "defense-tampering", Pattern: `(?i)\bset-mppreference\b|\bnetsh\s+advfirewall\b`},
		{Category: "defense-tampering", Pattern: `(?i)set-netfirewallprofile[^|]*-enabled\s+false`},
		{Category: "defense-tampering", Pattern: `(?i)\b(disable-windowsoptionalfeature|uninstall-windowsfeature)\b`},
		{Category: "sensitive-path", Pattern: `(?i)(c:\\+windows\\+system32|%systemroot%)`},
		{Category: "sensitive-path", Pattern: `(?i)\\+(sam|security|ntds)\b`},
	}
}

// defaultAllowedVerbs is the recognized cmdlet surface: VM lifecycle,
// hardware configuration, checkpoints, storage, networking, cluster,
// iSCSI and read-only system information.
func defaultAllowedVerbs() []string {
	return []string{
		// VM lifecycle
		"Get-VM", "Start-VM", "Stop-VM", "Restart-VM", "Suspend-VM",
		"Resume-VM", "New-VM", "Remove-VM", "Rename-VM", "Save-VM",
		"Checkpoint-VM", "Measure-VM", "Compare-VM", "Export-VM",
		"Import-VM", "Wait-VM",

		// Hardware configuration
		"Set-VM", "Set-VMMemory", "Get-VMMemory", "Set-VMProcessor",
		"Get-VMProcessor", "Add-VMDvdDrive", "Get-VMDvdDrive",
		"Remove-VMDvdDrive", "Set-VMDvdDrive", "Add-VMHardDiskDrive",
		"Get-VMHardDiskDrive", "Remove-VMHardDiskDrive",
		"Set-VMFirmware", "Get-VMFirmware", "Set-VMBios", "Get-VMBios",
		"Enable-VMIntegrationService", "Disable-VMIntegrationService",
		"Get-VMIntegrationService",

		// Checkpoints
		"Get-VMSnapshot", "Restore-VMSnapshot", "Remove-VMSnapshot",
		"Rename-VMSnapshot", "Export-VMSnapshot",

		// Storage
		"New-VHD", "Get-VHD", "Resize-VHD", "Convert-VHD", "Merge-VHD",
		"Optimize-VHD", "Mount-VHD", "Dismount-VHD", "Test-VHD",
		"Get-Volume", "Get-Disk", "Get-Partition", "Get-PSDrive",

		// Networking
		"Get-VMSwitch", "New-VMSwitch", "Set-VMSwitch", "Remove-VMSwitch",
		"Get-VMNetworkAdapter", "Add-VMNetworkAdapter",
		"Remove-VMNetworkAdapter", "Connect-VMNetworkAdapter",
		"Disconnect-VMNetworkAdapter", "Set-VMNetworkAdapter",
		"Set-VMNetworkAdapterVlan", "Get-VMNetworkAdapterVlan",
		"Get-NetAdapter", "Get-NetIPAddress",

		// Cluster
		"Get-Cluster", "Get-ClusterNode", "Get-ClusterGroup",
		"Move-ClusterVirtualMachineRole", "Get-ClusterResource",
		"Add-ClusterVirtualMachineRole",

		// iSCSI
		"Get-IscsiTarget", "Connect-IscsiTarget", "Disconnect-IscsiTarget",
		"Get-IscsiConnection", "Get-IscsiSession", "New-IscsiTargetPortal",
		"Get-IscsiTargetPortal",

		// Read-only system information
		"Get-VMHost", "Get-ComputerInfo", "Get-CimInstance",
		"Get-WmiObject", "Get-Counter", "Get-Process", "Get-Service",
		"Get-ChildItem", "Get-Item", "Get-ItemProperty", "Get-Content",
		"Get-Date", "Get-EventLog", "Get-WinEvent", "Test-Path",

		// Data shaping
		"Select-Object", "Sort-Object", "Where-Object", "Group-Object",
		"Measure-Object", "ForEach-Object", "Format-Table", "Format-List",
		"ConvertTo-Json", "ConvertFrom-Json", "Out-String", "Write-Output",
	}
}
