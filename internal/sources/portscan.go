package sources

import (
	"context"
	"iter"
	"os"
	"slices"
	"strconv"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/antchfx/xmlquery"
)

var (
	httpServiceNames  = []string{"http", "http-proxy", "http-alt"}
	httpsServiceNames = []string{"https", "https-alt", "ssl/http", "ssl"}
)

// PortScanSource extracts web services from nmap XML output (-oX).
type PortScanSource struct {
	Path       string
	HTTPPorts  []int
	HTTPSPorts []int
}

// NewPortScanSource creates an nmap source. Port lists decide the scheme of services nmap could
// not name.
func NewPortScanSource(path string, httpPorts, httpsPorts []int) *PortScanSource {
	return &PortScanSource{Path: path, HTTPPorts: httpPorts, HTTPSPorts: httpsPorts}
}

func (s *PortScanSource) Kind() models.SourceKind { return models.SourcePortScan }

func (s *PortScanSource) Produce(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		file, err := os.Open(s.Path)
		if err != nil {
			yield(models.TargetDescriptor{}, openError(s.Kind(), s.Path, err))
			return
		}
		defer file.Close()

		doc, err := xmlquery.Parse(file)
		if err != nil {
			yield(models.TargetDescriptor{}, common.WrapErrorf(err, "invalid XML in nmap input '%s'", s.Path))
			return
		}

		for hostIdx, host := range xmlquery.Find(doc, "//host") {
			if ctx.Err() != nil {
				return
			}
			if status := host.SelectElement("status"); status != nil && status.SelectAttr("state") != "up" {
				continue
			}

			name := hostName(host)
			if name == "" {
				if !yield(models.TargetDescriptor{}, common.NewInputError(string(s.Kind()), hostIdx+1, "", "host has no address")) {
					return
				}
				continue
			}

			for _, port := range xmlquery.Find(host, "ports/port") {
				desc, ok, err := s.portDescriptor(port, name, hostIdx+1)
				if err != nil {
					if !yield(models.TargetDescriptor{}, err) {
						return
					}
					continue
				}
				if !ok {
					continue
				}
				if !yield(desc, nil) {
					return
				}
			}
		}
	}
}

func (s *PortScanSource) portDescriptor(port *xmlquery.Node, host string, hostIdx int) (models.TargetDescriptor, bool, error) {
	if port.SelectAttr("protocol") != "tcp" {
		return models.TargetDescriptor{}, false, nil
	}
	state := port.SelectElement("state")
	if state == nil || state.SelectAttr("state") != "open" {
		return models.TargetDescriptor{}, false, nil
	}

	portID := port.SelectAttr("portid")
	number, err := strconv.Atoi(portID)
	if err != nil {
		return models.TargetDescriptor{}, false, common.NewInputError(string(s.Kind()), hostIdx, host+":"+portID, "invalid port id")
	}

	var serviceName, tunnel string
	if service := port.SelectElement("service"); service != nil {
		serviceName = service.SelectAttr("name")
		tunnel = service.SelectAttr("tunnel")
	}

	scheme, isWeb := s.webScheme(number, serviceName, tunnel)
	if !isWeb {
		return models.TargetDescriptor{}, false, nil
	}

	return models.TargetDescriptor{
		Scheme: scheme,
		Host:   host,
		Port:   number,
		Source: s.Kind(),
		Line:   hostIdx,
	}, true, nil
}

// webScheme decides whether an open port is a web service and which scheme to use.
func (s *PortScanSource) webScheme(port int, serviceName, tunnel string) (string, bool) {
	switch {
	case tunnel == "ssl":
		return "https", true
	case slices.Contains(httpServiceNames, serviceName):
		if slices.Contains(s.HTTPSPorts, port) {
			return "https", true
		}
		return "http", true
	case slices.Contains(httpsServiceNames, serviceName):
		return "https", true
	case slices.Contains(s.HTTPPorts, port):
		return "http", true
	case slices.Contains(s.HTTPSPorts, port):
		return "https", true
	}
	return "", false
}

func hostName(host *xmlquery.Node) string {
	if hn := xmlquery.FindOne(host, "hostnames/hostname"); hn != nil {
		if name := hn.SelectAttr("name"); name != "" {
			return name
		}
	}
	for _, addrType := range []string{"ipv4", "ipv6"} {
		if addr := xmlquery.FindOne(host, "address[@addrtype='"+addrType+"']"); addr != nil {
			return addr.SelectAttr("addr")
		}
	}
	return ""
}
