package urlhandler

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/idna"
)

const maxHostLength = 253

// Labels may carry underscores; plenty of internal DNS names do.
var hostnameRegex = regexp.MustCompile(`^[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?(\.[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?)*$`)

var (
	wellKnownHTTPSPorts = []int{443, 8443, 9443}
	wellKnownHTTPPorts  = []int{80, 8000, 8080, 8888, 3000, 5000}
)

// Normalizer turns raw target descriptors into canonical targets.
type Normalizer struct {
	logger zerolog.Logger
	idna   *idna.Profile
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "Normalizer").Logger(),
		idna:   idna.New(idna.MapForLookup(), idna.Transitional(false), idna.StrictDomainName(false)),
	}
}

// Normalize resolves scheme, host, port and path of a descriptor. Malformed input yields a
// *common.InputError; a target matching an exclusion pattern is returned together with an error
// wrapping common.ErrExcluded.
func (n *Normalizer) Normalize(desc models.TargetDescriptor, policy models.CapturePolicy) (models.CanonicalTarget, error) {
	parts, err := n.split(desc)
	if err != nil {
		return models.CanonicalTarget{}, err
	}

	host, err := n.normalizeHost(parts.host)
	if err != nil {
		return models.CanonicalTarget{}, inputError(desc, err.Error())
	}

	scheme := strings.ToLower(parts.scheme)
	if scheme == "" {
		scheme = InferScheme(parts.port, policy)
	}
	if scheme != "http" && scheme != "https" {
		return models.CanonicalTarget{}, inputError(desc, fmt.Sprintf("unsupported scheme %q", scheme))
	}

	port := parts.port
	if port == 0 {
		port = DefaultPortForScheme(scheme)
	}
	if port < 1 || port > 65535 {
		return models.CanonicalTarget{}, inputError(desc, fmt.Sprintf("port %d out of range", port))
	}

	target := models.CanonicalTarget{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   normalizePath(parts.path),
	}
	if desc.Source != "" {
		target.Provenance = []models.SourceKind{desc.Source}
	}

	if policy.Excluded(target.URL()) {
		return target, fmt.Errorf("%w: %s", common.ErrExcluded, target.URL())
	}

	return target, nil
}

// InferScheme picks a scheme for a target that did not state one.
func InferScheme(port int, policy models.CapturePolicy) string {
	if port > 0 {
		if slices.Contains(wellKnownHTTPSPorts, port) || slices.Contains(policy.HTTPSPorts, port) {
			return "https"
		}
		if slices.Contains(wellKnownHTTPPorts, port) || slices.Contains(policy.HTTPPorts, port) {
			return "http"
		}
	}
	if policy.DefaultProtocol != "" {
		return strings.ToLower(policy.DefaultProtocol)
	}
	return "https"
}

// DefaultPortForScheme returns 443 for https and 80 otherwise.
func DefaultPortForScheme(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

type targetParts struct {
	scheme string
	host   string
	port   int
	path   string
}

func (n *Normalizer) split(desc models.TargetDescriptor) (targetParts, error) {
	if desc.Raw == "" {
		if strings.TrimSpace(desc.Host) == "" {
			return targetParts{}, inputError(desc, "missing host")
		}
		return targetParts{
			scheme: desc.Scheme,
			host:   desc.Host,
			port:   desc.Port,
			path:   desc.Path,
		}, nil
	}

	raw := strings.TrimSpace(desc.Raw)
	if raw == "" {
		return targetParts{}, inputError(desc, "empty target")
	}

	toParse := raw
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "//") {
		toParse = "//" + raw
	}

	parsed, err := url.Parse(toParse)
	if err != nil {
		return targetParts{}, inputError(desc, unwrapURLError(err))
	}
	if parsed.Hostname() == "" {
		return targetParts{}, inputError(desc, "missing host")
	}
	if parsed.User != nil {
		return targetParts{}, inputError(desc, "credentials in URL are not supported")
	}

	parts := targetParts{
		scheme: parsed.Scheme,
		host:   parsed.Hostname(),
		path:   parsed.EscapedPath(),
	}
	if parsed.RawQuery != "" {
		parts.path = normalizePath(parts.path) + "?" + parsed.RawQuery
	}

	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return targetParts{}, inputError(desc, fmt.Sprintf("invalid port %q", p))
		}
		parts.port = port
	}

	return parts, nil
}

func (n *Normalizer) normalizeHost(raw string) (string, error) {
	host := strings.ToLower(strings.TrimSpace(raw))
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	host = strings.TrimSuffix(host, ".")

	if host == "" {
		return "", fmt.Errorf("missing host")
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ascii, err := n.idna.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid internationalized host %q: %v", host, err)
	}

	if len(ascii) > maxHostLength || !hostnameRegex.MatchString(ascii) {
		return "", fmt.Errorf("invalid host %q", host)
	}

	return ascii, nil
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func inputError(desc models.TargetDescriptor, reason string) error {
	return common.NewInputError(string(desc.Source), desc.Line, desc.String(), reason)
}

func unwrapURLError(err error) string {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err.Error()
	}
	return err.Error()
}
