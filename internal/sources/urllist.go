package sources

import (
	"context"
	"iter"

	"github.com/aleister1102/pendoc/internal/models"
)

// URLListSource reads one URL (or host[:port]) per line.
type URLListSource struct {
	Path string
}

// NewURLListSource creates a URL list source.
func NewURLListSource(path string) *URLListSource {
	return &URLListSource{Path: path}
}

func (s *URLListSource) Kind() models.SourceKind { return models.SourceURLList }

func (s *URLListSource) Produce(ctx context.Context) iter.Seq2[models.TargetDescriptor, error] {
	return func(yield func(models.TargetDescriptor, error) bool) {
		for rec, err := range lines(ctx, s.Kind(), s.Path) {
			if err != nil {
				yield(models.TargetDescriptor{}, err)
				return
			}
			desc := models.TargetDescriptor{Raw: rec.text, Source: s.Kind(), Line: rec.num}
			if !yield(desc, nil) {
				return
			}
		}
	}
}
