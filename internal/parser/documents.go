package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"config-conflict-detector/internal/model"
)

// Document keys inside host YAML files.
const (
	KeyAccessLists    = "ip_access_lists"
	KeyVlanInterfaces = "vlan_interfaces"
)

// ReadError reports a host document that could not be read or decoded. The
// host's contribution to the affected category is skipped.
type ReadError struct {
	Host string
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read config for host %s (%s): %v", e.Host, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Source provides host-keyed configuration documents. Each method returns the
// decoded documents, the per-host documents that were skipped, and an error
// only when the source itself cannot be enumerated.
type Source interface {
	ReadAcls() (map[string][]model.AclRule, []*ReadError, error)
	ReadInterfaces() (map[string]model.InterfaceConfig, []*ReadError, error)
	ReadVlans() (map[string][]model.VlanInterface, []*ReadError, error)
}

// LoadConfigSets reads all three categories from src. Skipped host documents
// are logged; enumeration failures abort the load.
func LoadConfigSets(src Source, logger *slog.Logger) (model.ConfigSets, error) {
	var sets model.ConfigSets
	var skipped []*ReadError

	acls, s, err := src.ReadAcls()
	if err != nil {
		return sets, fmt.Errorf("failed to load ACL documents: %w", err)
	}
	skipped = append(skipped, s...)

	interfaces, s, err := src.ReadInterfaces()
	if err != nil {
		return sets, fmt.Errorf("failed to load interface documents: %w", err)
	}
	skipped = append(skipped, s...)

	vlans, s, err := src.ReadVlans()
	if err != nil {
		return sets, fmt.Errorf("failed to load VLAN documents: %w", err)
	}
	skipped = append(skipped, s...)

	for _, e := range skipped {
		logger.Warn("Skipping host config document", "host", e.Host, "path", e.Path, "error", e.Err)
	}

	sets.Acls = acls
	sets.Interfaces = interfaces
	sets.Vlans = vlans
	return sets, nil
}

// HostName derives the host from a document file name: the part before the
// first ".".
func HostName(fileName string) string {
	host, _, _ := strings.Cut(fileName, ".")
	return host
}

// decodeKey decodes the value stored under key in a YAML mapping document.
// An empty document or a missing key yields the zero value.
func decodeKey[T any](body []byte, key string) (T, error) {
	var zero T
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return zero, err
	}
	node, ok := doc[key]
	if !ok {
		return zero, nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func decodeInterfaces(body []byte) (model.InterfaceConfig, error) {
	var cfg model.InterfaceConfig
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return model.InterfaceConfig{}, err
	}
	return cfg, nil
}
