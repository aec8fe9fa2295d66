package engine

import (
	"sort"

	"config-conflict-detector/internal/model"
)

// Evaluator runs one impact category for the hosts present in its
// configuration map.
type Evaluator interface {
	Category() model.Category
	// Hosts returns the configured host names in sorted order.
	Hosts() []string
	Evaluate(host string, flows []model.FlowRecord) model.HostResult
}

type AclEvaluator struct {
	Rules map[string][]model.AclRule
}

func NewAclEvaluator(rules map[string][]model.AclRule) *AclEvaluator {
	return &AclEvaluator{Rules: rules}
}

func (e *AclEvaluator) Category() model.Category { return model.CategoryAcl }

func (e *AclEvaluator) Hosts() []string { return sortedKeys(e.Rules) }

func (e *AclEvaluator) Evaluate(host string, flows []model.FlowRecord) model.HostResult {
	return hostResult(host, EvaluateAclImpact(flows, e.Rules[host]))
}

type ShutdownEvaluator struct {
	Interfaces map[string]model.InterfaceConfig
}

func NewShutdownEvaluator(interfaces map[string]model.InterfaceConfig) *ShutdownEvaluator {
	return &ShutdownEvaluator{Interfaces: interfaces}
}

func (e *ShutdownEvaluator) Category() model.Category { return model.CategoryShutdown }

func (e *ShutdownEvaluator) Hosts() []string { return sortedKeys(e.Interfaces) }

func (e *ShutdownEvaluator) Evaluate(host string, flows []model.FlowRecord) model.HostResult {
	findings, ports := EvaluateShutdownImpact(flows, e.Interfaces[host])
	result := hostResult(host, findings)
	result.ShutdownPorts = ports
	return result
}

type VlanEvaluator struct {
	Vlans map[string][]model.VlanInterface
}

func NewVlanEvaluator(vlans map[string][]model.VlanInterface) *VlanEvaluator {
	return &VlanEvaluator{Vlans: vlans}
}

func (e *VlanEvaluator) Category() model.Category { return model.CategoryVlan }

func (e *VlanEvaluator) Hosts() []string { return sortedKeys(e.Vlans) }

func (e *VlanEvaluator) Evaluate(host string, flows []model.FlowRecord) model.HostResult {
	return hostResult(host, EvaluateVlanImpact(flows, e.Vlans[host]))
}

// Evaluators returns the evaluators for sets in report order.
func Evaluators(sets model.ConfigSets) []Evaluator {
	return []Evaluator{
		NewAclEvaluator(sets.Acls),
		NewShutdownEvaluator(sets.Interfaces),
		NewVlanEvaluator(sets.Vlans),
	}
}

func hostResult(host string, findings []model.ImpactFinding) model.HostResult {
	for i := range findings {
		findings[i].Host = host
	}
	return model.HostResult{Host: host, Findings: findings}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
