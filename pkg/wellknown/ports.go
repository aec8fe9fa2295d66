package wellknown

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"strings"

	_ "embed"
)

//go:embed well_known_ports.csv
var wellKnownPortsData string

const (
	TCP = "tcp"
	UDP = "udp"
)

type ServiceEntry struct {
	Protocol string
	Port     int
}

var (
	serviceRegistry map[string][]ServiceEntry
	portRegistry    map[ServiceEntry]string
)

func init() {
	serviceRegistry = make(map[string][]ServiceEntry)
	portRegistry = make(map[ServiceEntry]string)
	reader := csv.NewReader(bytes.NewBufferString(wellKnownPortsData))
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Fatalf("Failed to read header from embedded well_known_ports.csv: %v", err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to parse embedded well_known_ports.csv: %v", err)
		}
		if len(record) < 3 {
			continue
		}

		port, err := strconv.Atoi(record[0])
		if err != nil {
			continue // Skip if port is not a valid number
		}

		register(strings.TrimSpace(record[1]), ServiceEntry{Protocol: TCP, Port: port})
		register(strings.TrimSpace(record[2]), ServiceEntry{Protocol: UDP, Port: port})
	}
}

func register(name string, entry ServiceEntry) {
	if name == "" || name == "N/A" {
		return
	}
	key := strings.ToUpper(name)
	serviceRegistry[key] = append(serviceRegistry[key], entry)
	portRegistry[entry] = name
	// Add common alias for DNS
	if name == "domain" {
		serviceRegistry["DNS"] = append(serviceRegistry["DNS"], entry)
	}
}

// GetService returns the port and protocol for a well-known service name.
func GetService(name string) ([]ServiceEntry, bool) {
	entry, ok := serviceRegistry[strings.ToUpper(strings.TrimSpace(name))]
	return entry, ok
}

// ServiceName returns the registered name for port over protocol ("tcp" or
// "udp", case-insensitive).
func ServiceName(port int, protocol string) (string, bool) {
	name, ok := portRegistry[ServiceEntry{Protocol: strings.ToLower(protocol), Port: port}]
	return name, ok
}
