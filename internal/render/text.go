package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"config-conflict-detector/internal/model"
	"config-conflict-detector/internal/utils"
	"config-conflict-detector/pkg/wellknown"
)

var (
	colorOK      = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

type styles struct {
	Heading lipgloss.Style
	Host    lipgloss.Style
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{Heading: plain, Host: plain, OK: plain, Warning: plain, Error: plain}
	}
	return styles{
		Heading: lipgloss.NewStyle().Bold(true).Underline(true),
		Host:    lipgloss.NewStyle().Bold(true),
		OK:      lipgloss.NewStyle().Bold(true).Foreground(colorOK),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
	}
}

var headings = map[model.Category]string{
	model.CategoryAcl:      "Checking ACL Blocked Flows",
	model.CategoryShutdown: "Checking Shutdown Impact",
	model.CategoryVlan:     "Analyzing VLAN Config Impact",
}

// reviewTargets names what the operator should review when a category flags.
var reviewTargets = map[model.Category]string{
	model.CategoryAcl:      "Acl",
	model.CategoryShutdown: "Interface",
	model.CategoryVlan:     "Vlan",
}

// TextRenderer writes the human-readable report.
type TextRenderer struct {
	w      io.Writer
	styles styles
}

func NewTextRenderer(w io.Writer, color bool) *TextRenderer {
	return &TextRenderer{w: w, styles: newStyles(color)}
}

func (r *TextRenderer) Render(report *model.ConflictReport) error {
	p := &printer{w: r.w}
	for _, section := range report.Sections {
		p.line("")
		p.line(r.styles.Heading.Render(headings[section.Category]))
		for _, host := range section.Hosts {
			r.renderHost(p, section.Category, host)
		}
	}

	for _, section := range report.Sections {
		if section.Conflict {
			p.line("")
			p.line(r.styles.Error.Render(fmt.Sprintf("Conflicts found, please review the %s before proceeding.", reviewTargets[section.Category])))
		}
	}
	if report.Verdict != model.VerdictConflict {
		p.line("")
		p.line(r.styles.OK.Render("No conflicts found. Configuration appears safe to proceed."))
	}
	return p.err
}

func (r *TextRenderer) renderHost(p *printer, c model.Category, host model.HostResult) {
	p.line("")
	p.line("Host: " + r.styles.Host.Render(host.Host))
	if host.Degraded {
		p.line(r.styles.Warning.Render(fmt.Sprintf("Telemetry unavailable for %s, evaluated with no flows.", host.Host)))
	}

	switch c {
	case model.CategoryAcl:
		if len(host.Findings) == 0 {
			p.line(r.styles.OK.Render("No protocol conflicts found for this host"))
			return
		}
		for _, f := range host.Findings {
			p.line(r.styles.Error.Render(fmt.Sprintf("WARNING: ACL %q blocks protocol %s", f.Acl, f.Protocol)))
			p.line("\tFlow: " + flowLine(f))
			if f.Entry != nil {
				p.line(fmt.Sprintf("\tBlocked Ports: SRC %v -> DST %v", f.Entry.SourcePorts.Strings(), f.Entry.DestinationPorts.Strings()))
			}
			p.line("\tInterface: " + interfaceLine(f.Flow))
			r.application(p, f)
		}

	case model.CategoryShutdown:
		if len(host.Findings) == 0 {
			p.line(r.styles.OK.Render(fmt.Sprintf("No disruptions found from shutting down interfaces on %s.", host.Host)))
			return
		}
		p.line(r.styles.Error.Render("WARNING: Shutting down these interfaces disrupts flows: " + strings.Join(host.ShutdownPorts, ", ")))
		for _, f := range host.Findings {
			p.line("\tFlow: " + flowLine(f))
			p.line("\tShutdown Interface: " + interfaceLine(f.Flow))
			r.application(p, f)
		}

	case model.CategoryVlan:
		if len(host.Findings) == 0 {
			p.line(r.styles.OK.Render("No VLAN disruptions detected."))
			return
		}
		for _, f := range host.Findings {
			p.line(r.styles.Error.Render(fmt.Sprintf("WARNING: VLAN %q impact due to %s", f.Vlan, f.Reason)))
			p.line("\tFlow: " + flowLine(f))
			p.line("\tInterface: " + interfaceLine(f.Flow))
			if f.Reason == model.ReasonAcl {
				p.line(fmt.Sprintf("\tInbound ACL: %s | Outbound ACL: %s", orNone(f.AccessIn), orNone(f.AccessOut)))
			}
			p.line("\tAffected VLAN: " + f.Vlan)
			r.application(p, f)
		}
	}
}

func (r *TextRenderer) application(p *printer, f model.ImpactFinding) {
	p.line("\tAffected application: " + r.styles.Error.Render(f.Application))
}

// flowLine formats the flow tuple and annotates a well-known destination port.
func flowLine(f model.ImpactFinding) string {
	s := utils.Endpoint(f.Flow.SrcIP, f.Flow.SrcPort) + " -> " + utils.Endpoint(f.Flow.DstIP, f.Flow.DstPort)
	if name, ok := wellknown.ServiceName(f.Flow.DstPort, f.Protocol); ok {
		s += " (" + name + ")"
	}
	return s
}

func interfaceLine(flow model.FlowRecord) string {
	return orNone(flow.IngressInterface) + " -> " + orNone(flow.EgressInterface)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// printer keeps the first write error so rendering code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}
