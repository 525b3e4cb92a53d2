package sources

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/antchfx/xmlquery"
)

const burpItemXPath = "/items/item"

// SitemapSource streams the items of a Burp Suite "Save items" XML export.
type SitemapSource struct {
	Path string
}

// NewSitemapSource creates a Burp sitemap source.
func NewSitemapSource(path string) *SitemapSource {
	return &SitemapSource{Path: path}
}

func (s *SitemapSource) Kind() models.SourceKind { return models.SourceBurp }

// Produce emits every item's url element. Items are read one at a time so large exports with
// base64 response bodies never sit in memory at once.
func (s *SitemapSource) Produce(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		file, err := os.Open(s.Path)
		if err != nil {
			yield(models.TargetDescriptor{}, openError(s.Kind(), s.Path, err))
			return
		}
		defer file.Close()

		parser, err := xmlquery.CreateStreamParser(file, burpItemXPath)
		if err != nil {
			yield(models.TargetDescriptor{}, common.WrapErrorf(err, "invalid burp item selector"))
			return
		}

		index := 0
		for {
			if ctx.Err() != nil {
				return
			}

			item, err := parser.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(models.TargetDescriptor{}, common.WrapErrorf(err, "invalid XML in burp input '%s'", s.Path))
				return
			}
			index++

			urlNode := item.SelectElement("url")
			if urlNode == nil || strings.TrimSpace(urlNode.InnerText()) == "" {
				ok := yield(models.TargetDescriptor{}, common.NewInputError(string(s.Kind()), index, "", "item has no url"))
				if !ok {
					return
				}
				continue
			}

			// Line carries the item's ordinal; the stream parser does not track source positions.
			desc := models.TargetDescriptor{
				Raw:    strings.TrimSpace(urlNode.InnerText()),
				Source: s.Kind(),
				Line:   index,
			}
			if !yield(desc, nil) {
				return
			}
		}
	}
}
