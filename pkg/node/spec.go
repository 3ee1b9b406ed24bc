package node

// DataKind is the declared kind of a port's payload. Kinds are
// documentation and validation hints, not an enforced type system.
type DataKind string

const (
	KindText    DataKind = "text"
	KindImage   DataKind = "image"
	KindAudio   DataKind = "audio"
	KindVideo   DataKind = "video"
	KindJSON    DataKind = "json"
	KindFile    DataKind = "file"
	KindContext DataKind = "context"
	KindAny     DataKind = "any"
)

// PortSpec declares one input or output slot of a node type.
type PortSpec struct {
	Name        string   `json:"name"`
	Kind        DataKind `json:"data_kind"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Port is a convenience constructor for a required port.
func Port(name string, kind DataKind, description string) PortSpec {
	return PortSpec{Name: name, Kind: kind, Required: true, Description: description}
}

// OptionalPort is a convenience constructor for an optional port.
func OptionalPort(name string, kind DataKind, description string) PortSpec {
	return PortSpec{Name: name, Kind: kind, Required: false, Description: description}
}

// ParameterSpec declares one configuration parameter of a node type.
type ParameterSpec struct {
	Name        string         `json:"name"`
	Kind        string         `json:"data_kind"`
	Default     any            `json:"default,omitempty"`
	Description string         `json:"description,omitempty"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// Resources carries advisory execution hints. The engine does not
// enforce them; they are surfaced for schedulers and operators.
type Resources struct {
	CPUCores       float64 `json:"cpu_cores"`
	MemoryMB       int     `json:"memory_mb"`
	GPUCount       int     `json:"gpu_count"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// DefaultResources matches the baseline hints of a lightweight node.
func DefaultResources() Resources {
	return Resources{CPUCores: 1, MemoryMB: 512, TimeoutSeconds: 300}
}

// Spec is the static, class-level description of a node type.
type Spec struct {
	Type        string          `json:"node_type"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Inputs      []PortSpec      `json:"inputs"`
	Outputs     []PortSpec      `json:"outputs"`
	Parameters  []ParameterSpec `json:"parameters"`
	Resources   Resources       `json:"resource_requirements"`
}

// ValidateInputs reports whether every required input port has a
// value. This is the default input validator; handlers may override it
// by implementing InputValidator.
func (s Spec) ValidateInputs(inputs map[string]any) bool {
	return len(s.MissingInputs(inputs)) == 0
}

// MissingInputs lists the required input ports absent from inputs.
func (s Spec) MissingInputs(inputs map[string]any) []string {
	var missing []string
	for _, p := range s.Inputs {
		if !p.Required {
			continue
		}
		if _, ok := inputs[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
