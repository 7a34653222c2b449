package channels

// Direction classifies how a channel crosses the trust boundary.
type Direction string

const (
	// Invoke is request/response: the UI asks, the bridge answers.
	Invoke Direction = "invoke"
	// Send is fire-and-forget from the UI into the bridge.
	Send Direction = "send"
	// Receive is push from the bridge out to the UI.
	Receive Direction = "receive"
)

// Descriptor describes one named operation exposed across the boundary.
type Descriptor struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Description string    `json:"description"`
}

// Catalogue is the static allow-list of operations. Membership is an
// exact, case-sensitive match; anything unlisted is rejected.
type Catalogue struct {
	byName map[string]Descriptor
}

// New builds a catalogue from descriptors. Duplicate names keep the
// first entry so the three direction sets stay disjoint.
func New(descriptors []Descriptor) *Catalogue {
	byName := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if _, exists := byName[d.Name]; exists {
			continue
		}
		byName[d.Name] = d
	}
	return &Catalogue{byName: byName}
}

// IsAllowed reports whether name is registered for the given direction.
// Fails closed: unknown names and direction mismatches are both false.
func (c *Catalogue) IsAllowed(name string, direction Direction) bool {
	d, ok := c.byName[name]
	return ok && d.Direction == direction
}

// Lookup returns the descriptor for name.
func (c *Catalogue) Lookup(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns all descriptors for a direction.
func (c *Catalogue) List(direction Direction) []Descriptor {
	var out []Descriptor
	for _, d := range c.byName {
		if d.Direction == direction {
			out = append(out, d)
		}
	}
	return out
}

// Default returns the versioned operation catalogue. New privileged
// operations must be added here before they are reachable from the UI.
func Default() *Catalogue {
	return New([]Descriptor{
		// Virtual machine lifecycle
		{Name: "vm:list", Direction: Invoke, Description: "List all virtual machines"},
		{Name: "vm:get", Direction: Invoke, Description: "Get one virtual machine by name"},
		{Name: "vm:start", Direction: Invoke, Description: "Start a virtual machine"},
		{Name: "vm:stop", Direction: Invoke, Description: "Shut down a virtual machine"},
		{Name: "vm:restart", Direction: Invoke, Description: "Restart a virtual machine"},
		{Name: "vm:pause", Direction: Invoke, Description: "Pause a virtual machine"},
		{Name: "vm:resume", Direction: Invoke, Description: "Resume a paused virtual machine"},
		{Name: "vm:create", Direction: Invoke, Description: "Create a new virtual machine"},
		{Name: "vm:delete", Direction: Invoke, Description: "Delete a virtual machine"},
		{Name: "vm:set-memory", Direction: Invoke, Description: "Change assigned memory"},
		{Name: "vm:set-cpu", Direction: Invoke, Description: "Change virtual processor count"},

		// Checkpoints
		{Name: "checkpoint:list", Direction: Invoke, Description: "List checkpoints for a VM"},
		{Name: "checkpoint:create", Direction: Invoke, Description: "Create a checkpoint"},
		{Name: "checkpoint:restore", Direction: Invoke, Description: "Restore a checkpoint"},
		{Name: "checkpoint:delete", Direction: Invoke, Description: "Delete a checkpoint"},

		// Storage and network
		{Name: "vhd:list", Direction: Invoke, Description: "List virtual disks for a VM"},
		{Name: "switch:list", Direction: Invoke, Description: "List virtual switches"},
		{Name: "switch:create", Direction: Invoke, Description: "Create a virtual switch"},

		// Host panel
		{Name: "host:info", Direction: Invoke, Description: "Host OS and uptime summary"},
		{Name: "host:metrics", Direction: Invoke, Description: "Host CPU/memory/disk metrics"},

		// Settings
		{Name: "settings:get", Direction: Invoke, Description: "Read persisted UI preferences"},
		{Name: "settings:save", Direction: Invoke, Description: "Persist UI preferences"},

		// Raw console, still subject to the safety filter
		{Name: "powershell:run", Direction: Invoke, Description: "Run a raw PowerShell command"},

		// Fire-and-forget
		{Name: "ui:log", Direction: Send, Description: "UI-side diagnostic line"},
		{Name: "telemetry:event", Direction: Send, Description: "Anonymous usage event"},

		// Push to the UI
		{Name: "task:progress", Direction: Receive, Description: "Long-running task progress"},
		{Name: "task:completed", Direction: Receive, Description: "Long-running task finished"},
		{Name: "vm:state-changed", Direction: Receive, Description: "VM state transition"},
		{Name: "host:alert", Direction: Receive, Description: "Host-level warning"},
	})
}
