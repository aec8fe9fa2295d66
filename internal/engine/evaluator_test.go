package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"config-conflict-detector/internal/model"
)

const uid = "3f2c9a1e-7b44-4d0a-9c55-0e1f2a3b4c5d-"

func apps(names ...string) []model.Application {
	out := make([]model.Application, 0, len(names))
	for _, n := range names {
		out = append(out, model.Application{ServiceName: n})
	}
	return out
}

func ports(p ...int) model.PortList {
	var out model.PortList
	for _, v := range p {
		out = append(out, model.PortRange{Start: v, End: v})
	}
	return out
}

func tcpFlow(dstPort int, applications ...model.Application) model.FlowRecord {
	return model.FlowRecord{
		SrcIP:            "10.0.0.10",
		DstIP:            "10.1.0.20",
		SrcPort:          51000,
		DstPort:          dstPort,
		Protocol:         6,
		IngressInterface: "Ethernet1",
		EgressInterface:  "Port-Channel10",
		Applications:     applications,
	}
}

func TestProtocolName(t *testing.T) {
	assert.Equal(t, "ICMP", ProtocolName(1))
	assert.Equal(t, "TCP", ProtocolName(6))
	assert.Equal(t, "UDP", ProtocolName(17))
	assert.Equal(t, "Unknown(47)", ProtocolName(47))
	assert.Equal(t, "Unknown(0)", ProtocolName(0))
}

func TestApplicationLabel(t *testing.T) {
	prefix := strings.Repeat("x", 37)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"service name after sixth segment", prefix + "svc-a-b-c-d-e-tail1-tail2", "svc:tail1-tail2"},
		{"segment six is kept", prefix + "svc-a-b-c-d-e-f-tail1-tail2", "svc:f-tail1-tail2"},
		{"fewer than six segments", prefix + "svc-a", "svc:"},
		{"uuid prefix", uid + "web-1-2-3-4-5-frontend", "web:frontend"},
		{"empty first segment", prefix + "-a-b", "unknown : (UID -" + prefix + "-a-b)"},
		{"shorter than prefix", "short", "unknown : (UID -short)"},
		{"exactly prefix length", prefix, "unknown : (UID -" + prefix + ")"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplicationLabel(tt.in))
		})
	}
}

func TestEvaluateAclImpactOneFindingPerApplication(t *testing.T) {
	entry := model.AclEntry{Action: model.ActionDeny, DestinationPorts: ports(443)}
	rules := []model.AclRule{{Name: "BLOCK-WEB", Entries: []model.AclEntry{entry}}}
	flow := tcpFlow(443, apps(uid+"web-1-2-3-4-5-a", uid+"api-1-2-3-4-5-b", uid+"db-1-2-3-4-5-c")...)

	findings := EvaluateAclImpact([]model.FlowRecord{flow}, rules)
	require.Len(t, findings, 3)
	for i, want := range []string{"web:a", "api:b", "db:c"} {
		assert.Equal(t, model.CategoryAcl, findings[i].Category)
		assert.Equal(t, "BLOCK-WEB", findings[i].Acl)
		assert.Equal(t, "TCP", findings[i].Protocol)
		assert.Equal(t, want, findings[i].Application)
		require.NotNil(t, findings[i].Entry)
		assert.Equal(t, model.ActionDeny, findings[i].Entry.Action)
	}
}

func TestEvaluateAclImpactMatchesAnySelector(t *testing.T) {
	flow := tcpFlow(8443, apps("app")...)
	tests := []struct {
		name  string
		entry model.AclEntry
	}{
		{"source port", model.AclEntry{SourcePorts: ports(51000)}},
		{"destination port", model.AclEntry{DestinationPorts: ports(8443)}},
		{"source address", model.AclEntry{Source: model.StringList{"10.0.0.10"}}},
		{"destination address", model.AclEntry{Destination: model.StringList{"10.1.0.20"}}},
		{"port range", model.AclEntry{DestinationPorts: model.PortList{{Start: 8000, End: 9000}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Action = model.ActionDeny
			rules := []model.AclRule{{Name: "acl", Entries: []model.AclEntry{tt.entry}}}
			assert.Len(t, EvaluateAclImpact([]model.FlowRecord{flow}, rules), 1)
		})
	}
}

func TestEvaluateAclImpactIgnoresPermitAndNonMatching(t *testing.T) {
	flow := tcpFlow(443, apps("app")...)
	tests := []struct {
		name  string
		entry model.AclEntry
	}{
		{"permit entry", model.AclEntry{Action: model.ActionPermit, DestinationPorts: ports(443), Source: model.StringList{"10.0.0.10"}}},
		{"protocol mismatch", model.AclEntry{Action: model.ActionDeny, Protocol: "udp", DestinationPorts: ports(443)}},
		{"no selector matches", model.AclEntry{Action: model.ActionDeny, DestinationPorts: ports(80), Destination: model.StringList{"10.9.9.9"}}},
		{"empty deny entry", model.AclEntry{Action: model.ActionDeny}},
		{"unknown action", model.AclEntry{Action: "remark", DestinationPorts: ports(443)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := []model.AclRule{{Name: "acl", Entries: []model.AclEntry{tt.entry}}}
			assert.Empty(t, EvaluateAclImpact([]model.FlowRecord{flow}, rules))
		})
	}
}

func TestEvaluateAclImpactProtocolFilterIsCaseInsensitive(t *testing.T) {
	rules := []model.AclRule{{Name: "acl", Entries: []model.AclEntry{
		{Action: model.ActionDeny, Protocol: "tcp", DestinationPorts: ports(443)},
	}}}
	assert.Len(t, EvaluateAclImpact([]model.FlowRecord{tcpFlow(443, apps("app")...)}, rules), 1)

	unknown := tcpFlow(443, apps("app")...)
	unknown.Protocol = 47
	rules[0].Entries[0].Protocol = "unknown(47)"
	assert.Len(t, EvaluateAclImpact([]model.FlowRecord{unknown}, rules), 1)
}

func TestEvaluateAclImpactFlowWithoutApplications(t *testing.T) {
	rules := []model.AclRule{{Name: "acl", Entries: []model.AclEntry{{Action: model.ActionDeny, DestinationPorts: ports(443)}}}}
	assert.Empty(t, EvaluateAclImpact([]model.FlowRecord{tcpFlow(443)}, rules))
}

func TestEvaluateAclImpactOrdering(t *testing.T) {
	first := tcpFlow(443, apps("first")...)
	second := tcpFlow(22, apps("second")...)
	rules := []model.AclRule{
		{Name: "r1", Entries: []model.AclEntry{{Action: model.ActionDeny, DestinationPorts: ports(22, 443)}}},
		{Name: "r2", Entries: []model.AclEntry{{Action: model.ActionDeny, Source: model.StringList{"10.0.0.10"}}}},
	}

	findings := EvaluateAclImpact([]model.FlowRecord{first, second}, rules)
	require.Len(t, findings, 4)
	got := make([]string, 0, len(findings))
	for _, f := range findings {
		got = append(got, f.ServiceName+"/"+f.Acl)
	}
	assert.Equal(t, []string{"first/r1", "first/r2", "second/r1", "second/r2"}, got)
}

func TestEvaluateAclImpactEndToEnd(t *testing.T) {
	deny := model.AclEntry{Action: model.ActionDeny, Protocol: "TCP", DestinationPorts: ports(443)}
	rules := []model.AclRule{{Name: "EDGE", Entries: []model.AclEntry{deny}}}
	flows := []model.FlowRecord{tcpFlow(443, apps(uid+"web-1-2-3-4-5-portal")...)}

	findings := EvaluateAclImpact(flows, rules)
	require.Len(t, findings, 1)
	assert.Equal(t, "web:portal", findings[0].Application)

	rules[0].Entries = append(rules[0].Entries, model.AclEntry{Action: model.ActionPermit, Protocol: "TCP", DestinationPorts: ports(443)})
	assert.Len(t, EvaluateAclImpact(flows, rules), 1)
}

func TestEvaluateShutdownImpact(t *testing.T) {
	cfg := model.InterfaceConfig{
		PortChannelInterfaces: []model.Interface{{Name: "Port-Channel10", Shutdown: true}, {Name: "Port-Channel20"}},
		EthernetInterfaces:    []model.Interface{{Name: "Ethernet1"}, {Name: "Ethernet2", Shutdown: true}, {Shutdown: true}},
	}
	hit := tcpFlow(443, apps("a", "b")...)
	miss := tcpFlow(443, apps("c")...)
	miss.IngressInterface, miss.EgressInterface = "Ethernet1", "Port-Channel20"
	ingress := tcpFlow(22, apps("d")...)
	ingress.IngressInterface, ingress.EgressInterface = "Ethernet2", "Ethernet1"

	findings, down := EvaluateShutdownImpact([]model.FlowRecord{hit, miss, ingress}, cfg)
	assert.Equal(t, []string{"Port-Channel10", "Ethernet2", "unknown"}, down)
	require.Len(t, findings, 3)
	assert.Equal(t, []string{"a", "b", "d"}, []string{findings[0].ServiceName, findings[1].ServiceName, findings[2].ServiceName})
	for _, f := range findings {
		assert.Equal(t, model.CategoryShutdown, f.Category)
	}
}

func TestEvaluateShutdownImpactReportsPortsWithoutFlows(t *testing.T) {
	cfg := model.InterfaceConfig{EthernetInterfaces: []model.Interface{{Name: "Ethernet9", Shutdown: true}}}
	findings, down := EvaluateShutdownImpact(nil, cfg)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"Ethernet9"}, down)

	findings, down = EvaluateShutdownImpact([]model.FlowRecord{tcpFlow(443, apps("a")...)}, model.InterfaceConfig{})
	assert.Empty(t, findings)
	assert.Empty(t, down)
}

func TestEvaluateVlanImpact(t *testing.T) {
	flow := tcpFlow(443, apps("a", "b")...)
	flow.SrcIP = "10.0.0.0"

	t.Run("shutdown vlan", func(t *testing.T) {
		vlans := []model.VlanInterface{{Name: "Vlan10", Shutdown: true, IPAddress: "10.0.0.0/24", AccessGroupIn: "IN"}}
		findings := EvaluateVlanImpact([]model.FlowRecord{flow}, vlans)
		require.Len(t, findings, 2)
		for _, f := range findings {
			assert.Equal(t, model.ReasonShutdown, f.Reason)
			assert.Equal(t, "Vlan10", f.Vlan)
			assert.Empty(t, f.AccessIn)
			assert.Empty(t, f.AccessOut)
		}
	})

	t.Run("acl bound vlan carries both references", func(t *testing.T) {
		vlans := []model.VlanInterface{{Name: "Vlan10", IPAddress: "10.0.0.0/24", AccessGroupOut: "OUT"}}
		findings := EvaluateVlanImpact([]model.FlowRecord{flow}, vlans)
		require.Len(t, findings, 2)
		for _, f := range findings {
			assert.Equal(t, model.ReasonAcl, f.Reason)
			assert.Empty(t, f.AccessIn)
			assert.Equal(t, "OUT", f.AccessOut)
		}
	})

	t.Run("destination address matches", func(t *testing.T) {
		vlans := []model.VlanInterface{{Name: "Vlan20", IPAddress: "10.1.0.20/31", AccessGroupIn: "IN"}}
		assert.Len(t, EvaluateVlanImpact([]model.FlowRecord{flow}, vlans), 2)
	})

	t.Run("no acl and not shutdown", func(t *testing.T) {
		vlans := []model.VlanInterface{{Name: "Vlan10", IPAddress: "10.0.0.0/24"}}
		assert.Empty(t, EvaluateVlanImpact([]model.FlowRecord{flow}, vlans))
	})

	t.Run("no ip address", func(t *testing.T) {
		vlans := []model.VlanInterface{{Name: "Vlan10", Shutdown: true}}
		assert.Empty(t, EvaluateVlanImpact([]model.FlowRecord{flow}, vlans))
	})

	t.Run("host inside subnet is not matched", func(t *testing.T) {
		inside := tcpFlow(443, apps("a")...)
		inside.SrcIP = "10.0.0.7"
		vlans := []model.VlanInterface{{Name: "Vlan10", Shutdown: true, IPAddress: "10.0.0.0/24"}}
		assert.Empty(t, EvaluateVlanImpact([]model.FlowRecord{inside}, vlans))
	})
}

func TestEvaluatorsStampHostAndSortHosts(t *testing.T) {
	sets := model.ConfigSets{
		Acls: map[string][]model.AclRule{
			"leaf2": {{Name: "acl", Entries: []model.AclEntry{{Action: model.ActionDeny, DestinationPorts: ports(443)}}}},
			"leaf1": nil,
		},
		Interfaces: map[string]model.InterfaceConfig{
			"spine1": {EthernetInterfaces: []model.Interface{{Name: "Ethernet1", Shutdown: true}}},
		},
	}
	evaluators := Evaluators(sets)
	require.Len(t, evaluators, 3)
	assert.Equal(t, model.CategoryAcl, evaluators[0].Category())
	assert.Equal(t, model.CategoryShutdown, evaluators[1].Category())
	assert.Equal(t, model.CategoryVlan, evaluators[2].Category())

	assert.Equal(t, []string{"leaf1", "leaf2"}, evaluators[0].Hosts())
	assert.Empty(t, evaluators[2].Hosts())

	flows := []model.FlowRecord{tcpFlow(443, apps("a")...)}
	result := evaluators[0].Evaluate("leaf2", flows)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "leaf2", result.Findings[0].Host)

	shut := evaluators[1].Evaluate("spine1", flows)
	assert.Equal(t, []string{"Ethernet1"}, shut.ShutdownPorts)
	require.Len(t, shut.Findings, 1)
	assert.Equal(t, "spine1", shut.Findings[0].Host)
}
