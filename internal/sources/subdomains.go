package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
)

// Subdomain list formats.
const (
	FormatAuto   = "auto"
	FormatSimple = "simple"
	FormatCSV    = "csv"
	FormatJSON   = "json"
)

var hostColumnNames = []string{"subdomain", "domain", "host", "hostname", "name"}

// SubdomainListSource reads subdomain enumeration output. Every entry becomes a host-only
// descriptor; scheme, path and port are stripped.
type SubdomainListSource struct {
	Path   string
	Format string
}

// NewSubdomainListSource creates a subdomain list source. An empty format means auto.
func NewSubdomainListSource(path, format string) *SubdomainListSource {
	if format == "" {
		format = FormatAuto
	}
	return &SubdomainListSource{Path: path, Format: format}
}

func (s *SubdomainListSource) Kind() models.SourceKind { return models.SourceSubdomains }

func (s *SubdomainListSource) Produce(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	switch s.resolveFormat() {
	case FormatCSV:
		return s.produceCSV(ctx)
	case FormatJSON:
		return s.produceJSON(ctx)
	default:
		return s.produceSimple(ctx)
	}
}

func (s *SubdomainListSource) resolveFormat() string {
	if s.Format != FormatAuto {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	default:
		return FormatSimple
	}
}

func (s *SubdomainListSource) produceSimple(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		for rec, err := range lines(ctx, s.Kind(), s.Path) {
			if err != nil {
				yield(models.TargetDescriptor{}, err)
				return
			}
			if !yield(s.descriptor(rec.text, rec.num), nil) {
				return
			}
		}
	}
}

func (s *SubdomainListSource) produceCSV(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		data, err := readAll(s.Kind(), s.Path)
		if err != nil {
			yield(models.TargetDescriptor{}, err)
			return
		}

		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		reader.Comment = '#'
		reader.TrimLeadingSpace = true

		column := 0
		first := true
		for {
			if ctx.Err() != nil {
				return
			}

			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				line := 0
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					line = parseErr.Line
				}
				if !yield(models.TargetDescriptor{}, common.NewInputError(string(s.Kind()), line, "", err.Error())) {
					return
				}
				continue
			}
			line, _ := reader.FieldPos(0)

			if first {
				first = false
				if idx, isHeader := headerColumn(record); isHeader {
					column = idx
					continue
				}
			}

			if column >= len(record) || strings.TrimSpace(record[column]) == "" {
				continue
			}
			if !yield(s.descriptor(record[column], line), nil) {
				return
			}
		}
	}
}

func headerColumn(record []string) (int, bool) {
	for i, field := range record {
		if slices.Contains(hostColumnNames, strings.ToLower(strings.TrimSpace(field))) {
			return i, true
		}
	}
	return 0, false
}

func (s *SubdomainListSource) produceJSON(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		data, err := readAll(s.Kind(), s.Path)
		if err != nil {
			yield(models.TargetDescriptor{}, err)
			return
		}

		entries, err := decodeSubdomainJSON(data)
		if err != nil {
			yield(models.TargetDescriptor{}, common.WrapErrorf(err, "invalid JSON in subdomain input '%s'", s.Path))
			return
		}

		for i, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if entry == "" {
				if !yield(models.TargetDescriptor{}, common.NewInputError(string(s.Kind()), i+1, "", "entry has no host field")) {
					return
				}
				continue
			}
			if !yield(s.descriptor(entry, i+1), nil) {
				return
			}
		}
	}
}

// decodeSubdomainJSON accepts an array of strings, an array of objects with a host-like key, or
// an object holding such an array under "subdomains".
func decodeSubdomainJSON(data []byte) ([]string, error) {
	var wrapper struct {
		Subdomains []json.RawMessage `json:"subdomains"`
	}
	var items []json.RawMessage

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		items = wrapper.Subdomains
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for _, raw := range items {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			out = append(out, strings.TrimSpace(str))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			out = append(out, "")
			continue
		}
		out = append(out, hostFromObject(obj))
	}
	return out, nil
}

func hostFromObject(obj map[string]any) string {
	for _, key := range hostColumnNames {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (s *SubdomainListSource) descriptor(entry string, line int) models.TargetDescriptor {
	return models.TargetDescriptor{
		Host:   StripToHost(entry),
		Source: s.Kind(),
		Line:   line,
	}
}

// StripToHost removes scheme, path and port from a subdomain entry.
func StripToHost(entry string) string {
	host := strings.TrimSpace(entry)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
	}
	if strings.Count(host, ":") == 1 {
		host = host[:strings.Index(host, ":")]
	}
	return host
}
