package engine

import (
	"strings"

	"config-conflict-detector/internal/model"
	"config-conflict-detector/internal/utils"
)

const unknownName = "unknown"

// EvaluateAclImpact returns one finding per application of every flow that a
// deny entry of rules would block. Findings follow flow, rule, entry and
// application order.
func EvaluateAclImpact(flows []model.FlowRecord, rules []model.AclRule) []model.ImpactFinding {
	var findings []model.ImpactFinding
	for _, flow := range flows {
		protocol := ProtocolName(flow.Protocol)
		for _, rule := range rules {
			for i := range rule.Entries {
				entry := &rule.Entries[i]
				if !isFlowBlocked(flow, entry, protocol) {
					continue
				}
				for _, app := range flow.Applications {
					f := newFinding(model.CategoryAcl, flow, protocol, app)
					f.Acl = ruleName(rule)
					f.Entry = entry
					findings = append(findings, f)
				}
			}
		}
	}
	return findings
}

func isFlowBlocked(flow model.FlowRecord, entry *model.AclEntry, protocol string) bool {
	if entry.Action != model.ActionDeny {
		return false
	}
	if entry.Protocol != "" && !strings.EqualFold(entry.Protocol, protocol) {
		return false
	}
	return entry.SourcePorts.Contains(flow.SrcPort) ||
		entry.DestinationPorts.Contains(flow.DstPort) ||
		entry.Source.Contains(flow.SrcIP) ||
		entry.Destination.Contains(flow.DstIP)
}

// EvaluateShutdownImpact returns one finding per application of every flow
// entering or leaving a shut-down interface, along with the names of all
// shut-down interfaces (port-channels first).
func EvaluateShutdownImpact(flows []model.FlowRecord, cfg model.InterfaceConfig) ([]model.ImpactFinding, []string) {
	var ports []string
	down := make(map[string]bool)
	for _, group := range [][]model.Interface{cfg.PortChannelInterfaces, cfg.EthernetInterfaces} {
		for _, iface := range group {
			if !iface.Shutdown {
				continue
			}
			name := iface.Name
			if name == "" {
				name = unknownName
			}
			ports = append(ports, name)
			down[name] = true
		}
	}
	if len(down) == 0 {
		return nil, ports
	}

	var findings []model.ImpactFinding
	for _, flow := range flows {
		if !down[flow.IngressInterface] && !down[flow.EgressInterface] {
			continue
		}
		protocol := ProtocolName(flow.Protocol)
		for _, app := range flow.Applications {
			findings = append(findings, newFinding(model.CategoryShutdown, flow, protocol, app))
		}
	}
	return findings, ports
}

// EvaluateVlanImpact returns one finding per application of every flow whose
// source or destination address equals a VLAN's network address.
//
// The comparison is a plain string match against the part of ip_address
// before "/"; no prefix containment is computed.
func EvaluateVlanImpact(flows []model.FlowRecord, vlans []model.VlanInterface) []model.ImpactFinding {
	var findings []model.ImpactFinding
	for _, vlan := range vlans {
		if vlan.IPAddress == "" {
			continue
		}
		if !vlan.Shutdown && vlan.AccessGroupIn == "" && vlan.AccessGroupOut == "" {
			continue
		}
		network := utils.NetworkAddress(vlan.IPAddress)
		for _, flow := range flows {
			if network != flow.SrcIP && network != flow.DstIP {
				continue
			}
			protocol := ProtocolName(flow.Protocol)
			for _, app := range flow.Applications {
				f := newFinding(model.CategoryVlan, flow, protocol, app)
				f.Vlan = vlan.Name
				if vlan.Shutdown {
					f.Reason = model.ReasonShutdown
				} else {
					f.Reason = model.ReasonAcl
					f.AccessIn = vlan.AccessGroupIn
					f.AccessOut = vlan.AccessGroupOut
				}
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func newFinding(c model.Category, flow model.FlowRecord, protocol string, app model.Application) model.ImpactFinding {
	name := app.ServiceName
	if name == "" {
		name = unknownName
	}
	return model.ImpactFinding{
		Category:    c,
		Flow:        flow,
		Protocol:    protocol,
		ServiceName: name,
		Application: ApplicationLabel(name),
	}
}

func ruleName(rule model.AclRule) string {
	if rule.Name == "" {
		return unknownName
	}
	return rule.Name
}
