package scanner

import (
	"sort"

	"github.com/aleister1102/pendoc/internal/models"
)

const topTechnologiesLogged = 10

// logSummary logs the final run summary.
func (s *Scanner) logSummary(summary *RunSummary, rs *models.ResultSet) {
	event := s.logger.Info().
		Str("run_id", summary.RunID).
		Str("status", summary.Status).
		Int("total", rs.Summary.Total).
		Int("succeeded", rs.Summary.Succeeded).
		Int("failed", rs.Summary.Failed).
		Int("skipped", rs.Summary.Skipped).
		Int("resumed", rs.Summary.Resumed).
		Dur("duration", summary.Duration())

	if top := topCounts(rs.Summary.Technologies, topTechnologiesLogged); len(top) > 0 {
		event = event.Strs("top_technologies", top)
	}
	if len(rs.Summary.CMS) > 0 {
		event = event.Interface("cms", rs.Summary.CMS)
	}
	event.Msg("Run finished")

	for _, err := range summary.Errors {
		s.logger.Warn().Err(err).Msg("Run completed with error")
	}
}

// topCounts returns up to n keys ordered by descending count, ties broken by name.
func topCounts(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
