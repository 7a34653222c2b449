package hyperv

// VMInfo is one virtual machine as reported by Get-VM.
type VMInfo struct {
	Name             string `json:"Name"`
	State            string `json:"State"`
	Status           string `json:"Status"`
	Generation       int    `json:"Generation"`
	CPUUsage         int    `json:"CPUUsage"`
	ProcessorCount   int    `json:"ProcessorCount"`
	MemoryAssignedMB int64  `json:"MemoryAssignedMB"`
	UptimeSeconds    int64  `json:"UptimeSeconds"`
}

// CheckpointInfo is one VM checkpoint.
type CheckpointInfo struct {
	Name         string `json:"Name"`
	VMName       string `json:"VMName"`
	CreationTime string `json:"CreationTime"`
	ParentName   string `json:"ParentSnapshotName"`
}

// SwitchInfo is one virtual switch.
type SwitchInfo struct {
	Name       string `json:"Name"`
	SwitchType string `json:"SwitchType"`
	Notes      string `json:"Notes"`
}

// VHDInfo is one virtual disk attached to a VM.
type VHDInfo struct {
	VMName             string `json:"VMName"`
	Path               string `json:"Path"`
	ControllerType     string `json:"ControllerType"`
	ControllerNumber   int    `json:"ControllerNumber"`
	ControllerLocation int    `json:"ControllerLocation"`
}

// CreateVMRequest is the vm:create argument shape.
type CreateVMRequest struct {
	Name       string `json:"name"`
	MemoryMB   int64  `json:"memory_mb"`
	Generation int    `json:"generation"`
	SwitchName string `json:"switch_name"`
}

// OpResult is returned by state-changing operations: the tracked task
// id plus the executor outcome.
type OpResult struct {
	TaskID  int64  `json:"task_id"`
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}
