package scanner

import (
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/sources"
)

// BuildSources creates one source per configured input file.
func BuildSources(cfg config.InputConfig) []sources.Source {
	var srcs []sources.Source
	if cfg.URLFile != "" {
		srcs = append(srcs, sources.NewURLListSource(cfg.URLFile))
	}
	if cfg.BurpFile != "" {
		srcs = append(srcs, sources.NewSitemapSource(cfg.BurpFile))
	}
	if cfg.SubdomainFile != "" {
		srcs = append(srcs, sources.NewSubdomainListSource(cfg.SubdomainFile, cfg.SubdomainFormat))
	}
	if cfg.NmapFile != "" {
		srcs = append(srcs, sources.NewPortScanSource(cfg.NmapFile, cfg.HTTPPorts, cfg.HTTPSPorts))
	}
	return srcs
}
