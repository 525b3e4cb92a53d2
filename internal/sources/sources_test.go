package sources

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/urlhandler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	httpPorts  = []int{80, 8000, 8080, 8888}
	httpsPorts = []int{443, 8443, 9443}
)

func testPolicy() models.CapturePolicy {
	return models.CapturePolicy{
		DefaultProtocol: "https",
		HTTPPorts:       httpPorts,
		HTTPSPorts:      httpsPorts,
		ExcludePatterns: []*regexp.Regexp{regexp.MustCompile(`(?i)logout`)},
	}
}

func drain(t *testing.T, src Source) ([]models.TargetDescriptor, []error) {
	t.Helper()
	var descs []models.TargetDescriptor
	var errs []error
	for desc, err := range src.Produce(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		descs = append(descs, desc)
	}
	return descs, errs
}

func TestURLListSource(t *testing.T) {
	descs, errs := drain(t, NewURLListSource("testdata/urls.txt"))
	require.Empty(t, errs)
	require.Len(t, descs, 5)

	assert.Equal(t, "https://a.example", descs[0].Raw)
	assert.Equal(t, 2, descs[0].Line)
	assert.Equal(t, "b.example:8443", descs[2].Raw)
	assert.Equal(t, 5, descs[2].Line)
	for _, d := range descs {
		assert.Equal(t, models.SourceURLList, d.Source)
	}
}

func TestURLListSource_MissingFile(t *testing.T) {
	descs, errs := drain(t, NewURLListSource("testdata/does-not-exist.txt"))
	assert.Empty(t, descs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], common.ErrNotFound)
}

func TestSitemapSource(t *testing.T) {
	descs, errs := drain(t, NewSitemapSource("testdata/burp.xml"))

	require.Len(t, descs, 2)
	assert.Equal(t, "https://a.example/", descs[0].Raw)
	assert.Equal(t, "https://portal.example/admin?x=1", descs[1].Raw)
	assert.Equal(t, models.SourceBurp, descs[1].Source)

	require.Len(t, errs, 1)
	var inputErr *common.InputError
	require.True(t, errors.As(errs[0], &inputErr))
	assert.Equal(t, 3, inputErr.Line)
}

func TestPortScanSource(t *testing.T) {
	descs, errs := drain(t, NewPortScanSource("testdata/nmap.xml", httpPorts, httpsPorts))
	require.Empty(t, errs)

	type svc struct {
		scheme string
		host   string
		port   int
	}
	var got []svc
	for _, d := range descs {
		assert.Equal(t, models.SourcePortScan, d.Source)
		got = append(got, svc{d.Scheme, d.Host, d.Port})
	}

	assert.Equal(t, []svc{
		{"http", "portal.example", 80},
		{"https", "portal.example", 443},
		{"https", "10.0.0.6", 8443},
		{"http", "10.0.0.6", 8000},
	}, got)
}

func TestPortScanSource_WebScheme(t *testing.T) {
	s := NewPortScanSource("", httpPorts, httpsPorts)

	tests := []struct {
		port   int
		name   string
		tunnel string
		scheme string
		isWeb  bool
	}{
		{port: 443, name: "http", tunnel: "ssl", scheme: "https", isWeb: true},
		{port: 9443, name: "http", scheme: "https", isWeb: true},
		{port: 81, name: "http-proxy", scheme: "http", isWeb: true},
		{port: 4443, name: "ssl/http", scheme: "https", isWeb: true},
		{port: 8888, name: "", scheme: "http", isWeb: true},
		{port: 22, name: "ssh", isWeb: false},
	}

	for _, tt := range tests {
		scheme, isWeb := s.webScheme(tt.port, tt.name, tt.tunnel)
		assert.Equal(t, tt.isWeb, isWeb, tt.port)
		assert.Equal(t, tt.scheme, scheme, tt.port)
	}
}

func TestSubdomainListSource_Formats(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		format    string
		wantHosts []string
		wantErrs  int
	}{
		{name: "simple", path: "testdata/subs.txt", wantHosts: []string{"www.a.example", "api.a.example", "dev.a.example"}},
		{name: "csv with header", path: "testdata/subs.csv", wantHosts: []string{"www.a.example", "mail.a.example"}},
		{name: "json wrapper", path: "testdata/subs.json", wantHosts: []string{"www.a.example", "api.a.example"}, wantErrs: 1},
		{name: "forced simple", path: "testdata/subs.txt", format: FormatSimple, wantHosts: []string{"www.a.example", "api.a.example", "dev.a.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs, errs := drain(t, NewSubdomainListSource(tt.path, tt.format))
			assert.Len(t, errs, tt.wantErrs)

			var hosts []string
			for _, d := range descs {
				assert.Empty(t, d.Scheme)
				assert.Zero(t, d.Port)
				hosts = append(hosts, d.Host)
			}
			assert.Equal(t, tt.wantHosts, hosts)
		})
	}
}

func TestStripToHost(t *testing.T) {
	assert.Equal(t, "a.example", StripToHost(" https://a.example:8443/path "))
	assert.Equal(t, "a.example", StripToHost("a.example/"))
	assert.Equal(t, "::1", StripToHost("[::1]:80"))
}

func TestDecodeSubdomainJSON_Array(t *testing.T) {
	hosts, err := decodeSubdomainJSON([]byte(`["a.example", {"domain": "b.example"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example", "b.example"}, hosts)

	_, err = decodeSubdomainJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestCollect_PriorityOrderAndStats(t *testing.T) {
	srcs := []Source{
		NewSitemapSource("testdata/burp.xml"),
		NewURLListSource("testdata/urls.txt"),
	}

	workSet, stats, err := Collect(context.Background(), srcs, urlhandler.NewNormalizer(zerolog.Nop()), testPolicy(), zerolog.Nop())
	require.NoError(t, err)

	var keys []string
	for _, target := range workSet {
		keys = append(keys, target.Key())
	}
	assert.Equal(t, []string{
		"https://a.example:443/",
		"http://a.example:80/",
		"https://b.example:8443/",
		"https://portal.example:443/admin?x=1",
	}, keys)
	assert.Equal(t, []models.SourceKind{models.SourceURLList, models.SourceBurp}, workSet[0].Provenance)

	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 3, stats.Accepted[models.SourceURLList])
	assert.Equal(t, 1, stats.Accepted[models.SourceBurp])
	assert.Empty(t, stats.Errors)
}

func TestCollect_Deterministic(t *testing.T) {
	srcs := []Source{
		NewURLListSource("testdata/urls.txt"),
		NewSubdomainListSource("testdata/subs.txt", FormatAuto),
		NewPortScanSource("testdata/nmap.xml", httpPorts, httpsPorts),
	}
	normalizer := urlhandler.NewNormalizer(zerolog.Nop())

	first, _, err := Collect(context.Background(), srcs, normalizer, testPolicy(), zerolog.Nop())
	require.NoError(t, err)
	second, _, err := Collect(context.Background(), srcs, normalizer, testPolicy(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, urlhandler.Dedupe(first), first)
}

func TestCollect_SourceFailureIsNotFatal(t *testing.T) {
	srcs := []Source{
		NewURLListSource("testdata/missing.txt"),
		NewSubdomainListSource("testdata/subs.txt", FormatSimple),
	}

	workSet, stats, err := Collect(context.Background(), srcs, urlhandler.NewNormalizer(zerolog.Nop()), testPolicy(), zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, workSet, 3)
	require.Len(t, stats.Errors, 1)
	assert.ErrorIs(t, stats.Errors[0], common.ErrNotFound)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Collect(ctx, []Source{NewURLListSource("testdata/urls.txt")}, urlhandler.NewNormalizer(zerolog.Nop()), testPolicy(), zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}
