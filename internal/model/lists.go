package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"config-conflict-detector/pkg/wellknown"
)

// PortRange is an inclusive port interval. Single ports have Start == End.
type PortRange struct {
	Start int
	End   int
}

func (r PortRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PortList is the decoded form of an ACL entry's source_ports or
// destination_ports. In YAML it may be a single value or a sequence whose
// items are integers, "a-b" ranges, "eq <port>" or well-known service names.
type PortList []PortRange

// Contains reports whether port falls in any range of the list.
func (l PortList) Contains(port int) bool {
	for _, r := range l {
		if port >= r.Start && port <= r.End {
			return true
		}
	}
	return false
}

func (l PortList) Strings() []string {
	out := make([]string, 0, len(l))
	for _, r := range l {
		out = append(out, r.String())
	}
	return out
}

func (l PortList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Strings())
}

func (l *PortList) UnmarshalYAML(value *yaml.Node) error {
	items, err := scalars(value)
	if err != nil {
		return err
	}
	var out PortList
	for _, item := range items {
		ranges, err := ParsePort(item)
		if err != nil {
			return err
		}
		out = append(out, ranges...)
	}
	*l = out
	return nil
}

// ParsePort decodes one port list item.
func ParsePort(s string) ([]PortRange, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "eq "))
	if s == "" {
		return nil, fmt.Errorf("empty port value")
	}

	if start, end, ok := strings.Cut(s, "-"); ok {
		lo, err1 := strconv.Atoi(strings.TrimSpace(start))
		hi, err2 := strconv.Atoi(strings.TrimSpace(end))
		if err1 == nil && err2 == nil {
			if lo > hi || !validPort(lo) || !validPort(hi) {
				return nil, fmt.Errorf("invalid port range %q", s)
			}
			return []PortRange{{Start: lo, End: hi}}, nil
		}
	}

	if port, err := strconv.Atoi(s); err == nil {
		if !validPort(port) {
			return nil, fmt.Errorf("port %d out of range", port)
		}
		return []PortRange{{Start: port, End: port}}, nil
	}

	entries, ok := wellknown.GetService(s)
	if !ok {
		return nil, fmt.Errorf("unknown port or service %q", s)
	}
	seen := make(map[int]bool)
	var out []PortRange
	for _, e := range entries {
		if seen[e.Port] {
			continue
		}
		seen[e.Port] = true
		out = append(out, PortRange{Start: e.Port, End: e.Port})
	}
	return out, nil
}

const maxPort = 65535

func validPort(p int) bool {
	return p >= 0 && p <= maxPort
}

// StringList accepts either a scalar or a sequence of scalars.
type StringList []string

// Contains reports exact membership of s.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	items, err := scalars(value)
	if err != nil {
		return err
	}
	*l = items
	return nil
}

func scalars(value *yaml.Node) ([]string, error) {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return nil, nil
		}
		return []string{value.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected a scalar list item", item.Line)
			}
			out = append(out, item.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: expected a scalar or a sequence", value.Line)
	}
}
