package model

import "time"

type Category string // "acl", "shutdown", "vlan"

const (
	CategoryAcl      Category = "acl"
	CategoryShutdown Category = "shutdown"
	CategoryVlan     Category = "vlan"
)

// Categories lists the report sections in render order.
var Categories = []Category{CategoryAcl, CategoryShutdown, CategoryVlan}

type Verdict string

const (
	VerdictClean    Verdict = "clean"
	VerdictConflict Verdict = "conflict"
)

const (
	ActionPermit = "permit"
	ActionDeny   = "deny"
)

const (
	ReasonShutdown = "shutdown"
	ReasonAcl      = "acl"
)

type Application struct {
	ServiceName string `json:"app_service_name"`
}

type FlowRecord struct {
	SrcIP            string        `json:"src_ip"`
	DstIP            string        `json:"dst_ip"`
	SrcPort          int           `json:"src_port"`
	DstPort          int           `json:"dst_port"`
	Protocol         int           `json:"protocol"`
	IngressInterface string        `json:"ingress_interface"`
	EgressInterface  string        `json:"egress_interface"`
	Applications     []Application `json:"applications"`
}

type AclEntry struct {
	Sequence         int        `yaml:"sequence" json:"sequence,omitempty"`
	Action           string     `yaml:"action" json:"action"`
	Protocol         string     `yaml:"protocol" json:"protocol,omitempty"`
	SourcePorts      PortList   `yaml:"source_ports" json:"source_ports,omitempty"`
	DestinationPorts PortList   `yaml:"destination_ports" json:"destination_ports,omitempty"`
	Source           StringList `yaml:"source" json:"source,omitempty"`
	Destination      StringList `yaml:"destination" json:"destination,omitempty"`
}

type AclRule struct {
	Name    string     `yaml:"name" json:"name"`
	Entries []AclEntry `yaml:"entries" json:"entries"`
}

type Interface struct {
	Name     string `yaml:"name" json:"name"`
	Shutdown bool   `yaml:"shutdown" json:"shutdown"`
}

type InterfaceConfig struct {
	PortChannelInterfaces []Interface `yaml:"port_channel_interfaces" json:"port_channel_interfaces"`
	EthernetInterfaces    []Interface `yaml:"ethernet_interfaces" json:"ethernet_interfaces"`
}

type VlanInterface struct {
	Name           string `yaml:"name" json:"name"`
	Shutdown       bool   `yaml:"shutdown" json:"shutdown"`
	IPAddress      string `yaml:"ip_address" json:"ip_address,omitempty"`
	AccessGroupIn  string `yaml:"ip_access_group_in" json:"ip_access_group_in,omitempty"`
	AccessGroupOut string `yaml:"ip_access_group_out" json:"ip_access_group_out,omitempty"`
}

// ConfigSets holds every host-keyed configuration map loaded for a run.
// Host sets are independent: a host may appear in one map and not another.
type ConfigSets struct {
	Acls       map[string][]AclRule
	Interfaces map[string]InterfaceConfig
	Vlans      map[string][]VlanInterface
}

type ImpactFinding struct {
	Category    Category   `json:"category"`
	Host        string     `json:"host"`
	Flow        FlowRecord `json:"flow"`
	Protocol    string     `json:"protocol"`
	ServiceName string     `json:"app_service_name"`
	Application string     `json:"application"`

	// acl
	Acl   string    `json:"acl,omitempty"`
	Entry *AclEntry `json:"entry,omitempty"`

	// vlan
	Vlan      string `json:"vlan,omitempty"`
	Reason    string `json:"reason,omitempty"`
	AccessIn  string `json:"access_in,omitempty"`
	AccessOut string `json:"access_out,omitempty"`
}

type HostResult struct {
	Host          string          `json:"host"`
	Findings      []ImpactFinding `json:"findings"`
	ShutdownPorts []string        `json:"shutdown_ports,omitempty"`
	Degraded      bool            `json:"degraded,omitempty"`
}

type Section struct {
	Category Category     `json:"category"`
	Hosts    []HostResult `json:"hosts"`
	Conflict bool         `json:"conflict"`
}

type ConflictReport struct {
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	Sections      []Section `json:"sections"`
	Verdict       Verdict   `json:"verdict"`
	DegradedHosts []string  `json:"degraded_hosts,omitempty"`
}

// Section returns the section for c, or nil when the report has none.
func (r *ConflictReport) Section(c Category) *Section {
	for i := range r.Sections {
		if r.Sections[i].Category == c {
			return &r.Sections[i]
		}
	}
	return nil
}

// Findings flattens every host's findings for c in host order.
func (r *ConflictReport) Findings(c Category) []ImpactFinding {
	s := r.Section(c)
	if s == nil {
		return nil
	}
	var out []ImpactFinding
	for _, h := range s.Hosts {
		out = append(out, h.Findings...)
	}
	return out
}

// Conflict reports whether the category flag for c is set.
func (r *ConflictReport) Conflict(c Category) bool {
	s := r.Section(c)
	return s != nil && s.Conflict
}
