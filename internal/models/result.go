package models

import (
	"sort"
	"strings"
	"time"
)

// TargetStatus is the terminal state of a target.
type TargetStatus string

const (
	StatusSucceeded TargetStatus = "succeeded"
	StatusFailed    TargetStatus = "failed"
	StatusSkipped   TargetStatus = "skipped"
)

// TargetResult is the one-per-target terminal record.
type TargetResult struct {
	Target      CanonicalTarget   `json:"target"`
	Key         string            `json:"key"`
	URL         string            `json:"url"`
	Status      TargetStatus      `json:"status"`
	Attempts    int               `json:"attempts"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
	Cause       string            `json:"cause,omitempty"`
	FailureKind FailureKind       `json:"failure_kind,omitempty"`
	Capture     *CaptureSuccess   `json:"capture,omitempty"`
	Enrichment  *EnrichmentBundle `json:"enrichment,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
	// Resumed marks a result carried over from a previous run.
	Resumed bool `json:"resumed,omitempty"`
}

// NewTargetResult fills the identity fields from the target.
func NewTargetResult(target CanonicalTarget, status TargetStatus) TargetResult {
	return TargetResult{
		Target:      target,
		Key:         target.Key(),
		URL:         target.URL(),
		Status:      status,
		CompletedAt: time.Now(),
	}
}

// ResultSummary holds the counters derived at finalize time.
type ResultSummary struct {
	Total        int            `json:"total"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	Skipped      int            `json:"skipped"`
	Resumed      int            `json:"resumed"`
	StatusCodes  map[int]int    `json:"status_codes"`
	Technologies map[string]int `json:"technologies"`
	CMS          map[string]int `json:"cms"`
	TotalAttempt int            `json:"total_attempts"`
}

// ResultSet is the finalized, immutable collection of results for a run.
// Results are in completion order.
type ResultSet struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []TargetResult `json:"results"`
	Summary    ResultSummary  `json:"summary"`
}

// Sorted returns a copy of the results ordered by identity key.
func (rs *ResultSet) Sorted() []TargetResult {
	out := make([]TargetResult, len(rs.Results))
	copy(out, rs.Results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// CMSNames lists the technologies counted in the CMS summary.
var CMSNames = []string{
	"wordpress", "woocommerce", "joomla", "drupal", "sharepoint", "magento", "prestashop",
	"opencart", "typo3", "concrete5", "umbraco", "dotnetnuke", "ghost", "vbulletin",
	"phpbb", "mybb", "discourse", "confluence", "mediawiki",
}

// IsCMS reports whether a technology name is one of CMSNames.
func IsCMS(name string) bool {
	n := strings.ToLower(name)
	for _, c := range CMSNames {
		if n == c {
			return true
		}
	}
	return false
}
