package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"config-conflict-detector/internal/model"
)

// DirectorySource reads host documents from two directory trees: ACLs from
// the host_vars directory, interfaces and VLANs from the intended structured
// config directory.
type DirectorySource struct {
	HostVarsDir string
	IntendedDir string
}

func NewDirectorySource(hostVarsDir, intendedDir string) *DirectorySource {
	return &DirectorySource{HostVarsDir: hostVarsDir, IntendedDir: intendedDir}
}

func (s *DirectorySource) ReadAcls() (map[string][]model.AclRule, []*ReadError, error) {
	return ReadHostDocuments[[]model.AclRule](s.HostVarsDir, KeyAccessLists)
}

func (s *DirectorySource) ReadInterfaces() (map[string]model.InterfaceConfig, []*ReadError, error) {
	return ReadInterfaceDocuments(s.IntendedDir)
}

func (s *DirectorySource) ReadVlans() (map[string][]model.VlanInterface, []*ReadError, error) {
	return ReadHostDocuments[[]model.VlanInterface](s.IntendedDir, KeyVlanInterfaces)
}

// ReadHostDocuments decodes the value under key from every .yaml/.yml file in
// dir, keyed by host name. Files without the key still register the host with
// a zero value.
func ReadHostDocuments[T any](dir, key string) (map[string]T, []*ReadError, error) {
	return readDir(dir, func(body []byte) (T, error) {
		return decodeKey[T](body, key)
	})
}

// ReadInterfaceDocuments decodes the port-channel and ethernet interface lists
// from every .yaml/.yml file in dir, keyed by host name.
func ReadInterfaceDocuments(dir string) (map[string]model.InterfaceConfig, []*ReadError, error) {
	return readDir(dir, decodeInterfaces)
}

func readDir[T any](dir string, decode func([]byte) (T, error)) (map[string]T, []*ReadError, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("config directory not set")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read config directory: %w", err)
	}

	docs := make(map[string]T)
	var skipped []*ReadError
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		host := HostName(entry.Name())

		body, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, &ReadError{Host: host, Path: path, Err: err})
			continue
		}
		v, err := decode(body)
		if err != nil {
			skipped = append(skipped, &ReadError{Host: host, Path: path, Err: err})
			continue
		}
		docs[host] = v
	}
	return docs, skipped, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
