package models

import (
	"fmt"
	"net"
	"strconv"
)

// SourceKind identifies the input source a target descriptor came from.
type SourceKind string

const (
	SourceURLList    SourceKind = "url_list"
	SourceBurp       SourceKind = "burp"
	SourceSubdomains SourceKind = "subdomains"
	SourcePortScan   SourceKind = "port_scan"
)

// SourcePriority is the fixed order in which sources are merged into the work set.
var SourcePriority = []SourceKind{SourceURLList, SourceBurp, SourceSubdomains, SourcePortScan}

// Priority returns the merge rank of the source; unknown kinds sort last.
func (k SourceKind) Priority() int {
	for i, s := range SourcePriority {
		if s == k {
			return i
		}
	}
	return len(SourcePriority)
}

// TargetDescriptor is a raw input unit before normalization. Either Raw is set
// (a URL or host[:port] string) or the structured fields are.
type TargetDescriptor struct {
	Raw    string
	Scheme string
	Host   string
	Port   int
	Path   string
	Source SourceKind
	Line   int
}

// String returns the descriptor as the user wrote it, for logs and errors.
func (d TargetDescriptor) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	s := d.Host
	if d.Port > 0 {
		s = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	if d.Scheme != "" {
		s = d.Scheme + "://" + s
	}
	return s + d.Path
}

// CanonicalTarget is the normalized, addressable unit of work.
type CanonicalTarget struct {
	Scheme     string       `json:"scheme"`
	Host       string       `json:"host"`
	Port       int          `json:"port"`
	Path       string       `json:"path"`
	Provenance []SourceKind `json:"provenance"`
}

// Key is the identity key used for deduplication: scheme://host:port/path with the
// port always explicit.
func (t CanonicalTarget) Key() string {
	return fmt.Sprintf("%s://%s%s", t.Scheme, net.JoinHostPort(t.Host, strconv.Itoa(t.Port)), t.Path)
}

// URL is the display/navigation URL; default ports are omitted.
func (t CanonicalTarget) URL() string {
	return fmt.Sprintf("%s://%s%s", t.Scheme, t.Authority(), t.Path)
}

// Authority returns host[:port], omitting the scheme's default port.
func (t CanonicalTarget) Authority() string {
	if IsDefaultPort(t.Scheme, t.Port) {
		if net.ParseIP(t.Host) != nil && net.ParseIP(t.Host).To4() == nil {
			return "[" + t.Host + "]"
		}
		return t.Host
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// HostPort always includes the port.
func (t CanonicalTarget) HostPort() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// HasSource reports whether the given source contributed this target.
func (t CanonicalTarget) HasSource(kind SourceKind) bool {
	for _, k := range t.Provenance {
		if k == kind {
			return true
		}
	}
	return false
}

// Descriptor converts the target back into a structured descriptor. Normalizing it
// yields the same identity key.
func (t CanonicalTarget) Descriptor(source SourceKind) TargetDescriptor {
	return TargetDescriptor{
		Scheme: t.Scheme,
		Host:   t.Host,
		Port:   t.Port,
		Path:   t.Path,
		Source: source,
	}
}

// IsDefaultPort reports whether port is the default for scheme.
func IsDefaultPort(scheme string, port int) bool {
	return (scheme == "http" && port == 80) || (scheme == "https" && port == 443)
}
