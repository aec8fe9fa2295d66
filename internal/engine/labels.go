package engine

import (
	"fmt"
	"strings"
)

var protocolNames = map[int]string{
	1:  "ICMP",
	6:  "TCP",
	17: "UDP",
}

// ProtocolName resolves an IP protocol number. Codes outside the table format
// as "Unknown(<code>)".
func ProtocolName(code int) string {
	if name, ok := protocolNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", code)
}

const (
	// uidPrefixLen is the length of the opaque UID that leads every
	// application service identifier, including its trailing separator.
	uidPrefixLen = 37
	// serviceNameSegment is the first "-" separated segment that belongs to
	// the service name proper.
	serviceNameSegment = 6
)

// ApplicationLabel derives a display label from an application service
// identifier: the UID prefix is dropped, the remainder split on "-" and
// rendered as "<first>:<segments 6.. joined by '-'>". When the first segment
// is empty the label is "unknown : (UID -<identifier>)".
func ApplicationLabel(identifier string) string {
	var rest string
	if runes := []rune(identifier); len(runes) > uidPrefixLen {
		rest = string(runes[uidPrefixLen:])
	}
	segments := strings.Split(rest, "-")
	if segments[0] == "" {
		return "unknown : (UID -" + identifier + ")"
	}
	var tail []string
	if len(segments) > serviceNameSegment {
		tail = segments[serviceNameSegment:]
	}
	return segments[0] + ":" + strings.Join(tail, "-")
}
