package sources

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/urlhandler"
	"github.com/rs/zerolog"
)

const maxLineSize = 1024 * 1024

// Source produces raw target descriptors from one input. Per-record problems are yielded as
// errors and the sequence continues; a failure to read the input at all is yielded once and
// ends the sequence.
type Source interface {
	Kind() models.SourceKind
	Produce(ctx context.Context) iter.Seq2[models.TargetDescriptor, error]
}

// CollectStats summarizes one collection pass.
type CollectStats struct {
	Produced   map[models.SourceKind]int
	Accepted   map[models.SourceKind]int
	Invalid    int
	Excluded   int
	Duplicates int
	Errors     []error
}

// Collect drains the sources in priority order, normalizes every descriptor and returns the
// deduplicated work set. Invalid and excluded descriptors are logged and dropped.
func Collect(ctx context.Context, srcs []Source, normalizer *urlhandler.Normalizer, policy models.CapturePolicy, logger zerolog.Logger) ([]models.CanonicalTarget, CollectStats, error) {
	log := logger.With().Str("component", "Collector").Logger()
	stats := CollectStats{
		Produced: make(map[models.SourceKind]int),
		Accepted: make(map[models.SourceKind]int),
	}

	ordered := slices.Clone(srcs)
	slices.SortStableFunc(ordered, func(a, b Source) int {
		return a.Kind().Priority() - b.Kind().Priority()
	})

	dedup := urlhandler.NewDeduplicator()

	for _, src := range ordered {
		kind := src.Kind()
		for desc, err := range src.Produce(ctx) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return dedup.WorkSet(), stats, ctxErr
			}

			if err != nil {
				var inputErr *common.InputError
				if errors.As(err, &inputErr) {
					stats.Invalid++
					log.Warn().Err(err).Str("source", string(kind)).Msg("Dropping malformed target")
					continue
				}
				stats.Errors = append(stats.Errors, err)
				log.Error().Err(err).Str("source", string(kind)).Msg("Failed to read input source")
				continue
			}

			stats.Produced[kind]++
			target, normErr := normalizer.Normalize(desc, policy)
			switch {
			case errors.Is(normErr, common.ErrExcluded):
				stats.Excluded++
				log.Debug().Str("url", target.URL()).Str("source", string(kind)).Msg("Target excluded by pattern")
				continue
			case normErr != nil:
				stats.Invalid++
				log.Warn().Err(normErr).Str("source", string(kind)).Msg("Dropping malformed target")
				continue
			}

			if dedup.Add(target) {
				stats.Accepted[kind]++
			} else {
				stats.Duplicates++
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dedup.WorkSet(), stats, ctxErr
		}

		log.Info().
			Str("source", string(kind)).
			Int("produced", stats.Produced[kind]).
			Int("new_targets", stats.Accepted[kind]).
			Msg("Source collected")
	}

	workSet := dedup.WorkSet()
	log.Info().
		Int("targets", len(workSet)).
		Int("invalid", stats.Invalid).
		Int("excluded", stats.Excluded).
		Int("duplicates", stats.Duplicates).
		Msg("Work set built")

	return workSet, stats, nil
}

// lines yields trimmed, non-empty, non-comment lines with their 1-based line numbers. Lines that
// are not valid UTF-8 are decoded as Latin-1.
func lines(ctx context.Context, kind models.SourceKind, path string) iter.Seq2[lineRecord, error] {
	return func(yield func(lineRecord, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(lineRecord{}, openError(kind, path, err))
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		lineNum := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			lineNum++

			raw := scanner.Bytes()
			if lineNum == 1 {
				raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
			}
			text := strings.TrimSpace(decodeLine(raw))
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			if !yield(lineRecord{num: lineNum, text: text}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(lineRecord{}, common.WrapErrorf(err, "failed reading %s input '%s'", kind, path))
		}
	}
}

type lineRecord struct {
	num  int
	text string
}

func decodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func openError(kind models.SourceKind, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return common.WrapErrorf(common.ErrNotFound, "%s input '%s'", kind, path)
	}
	return common.WrapErrorf(err, "failed to open %s input '%s'", kind, path)
}

func readAll(kind models.SourceKind, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, openError(kind, path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, common.DefaultMaxReadSize+1))
	if err != nil {
		return nil, common.WrapErrorf(err, "failed reading %s input '%s'", kind, path)
	}
	if int64(len(data)) > common.DefaultMaxReadSize {
		return nil, common.NewValidationError("file_size", len(data), "input file exceeds maximum size")
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
