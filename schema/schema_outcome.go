package schema

import "fmt"

// OutcomeStatus is the tag of an aggregation outcome.
type OutcomeStatus string

// All outcome statuses.
const (
	ProcessedStatus OutcomeStatus = "processed"
	SkippedStatus   OutcomeStatus = "skipped"
	DuplicateStatus OutcomeStatus = "duplicate"
	FailedStatus    OutcomeStatus = "failed"
)

// SkipReason classifies why a bucket was not aggregated.
type SkipReason string

// All skip reasons.
const (
	InsufficientData     SkipReason = "insufficient_data"
	InsufficientCoverage SkipReason = "insufficient_coverage"
	AlreadyProcessed     SkipReason = "already_processed"
)

// Outcome is the tagged result of processing one bucket.
// Exactly one of the payload fields is meaningful for a given Status.
type Outcome struct {
	Bucket Bucket        `json:"bucket"`
	Status OutcomeStatus `json:"status"`

	// Skipped
	Reason SkipReason `json:"reason,omitempty"`
	Detail string     `json:"detail,omitempty"` // e.g. "48 < 50"

	// Processed
	Minute *MinuteAggregate `json:"minute,omitempty"`
	Hour   *HourAggregate   `json:"hour,omitempty"`
	Day    *DayAggregate    `json:"day,omitempty"`

	// Failed
	Err      error `json:"-"`
	Attempts int   `json:"attempts,omitempty"`
}

// Processed builds a successful outcome from the written aggregate.
func Processed(b Bucket, aggregate any) Outcome {
	o := Outcome{Bucket: b, Status: ProcessedStatus}
	switch a := aggregate.(type) {
	case MinuteAggregate:
		o.Minute = &a
	case HourAggregate:
		o.Hour = &a
	case DayAggregate:
		o.Day = &a
	}
	return o
}

// Skipped builds an outcome for a bucket that did not pass its gate.
func Skipped(b Bucket, reason SkipReason, detail string) Outcome {
	return Outcome{Bucket: b, Status: SkippedStatus, Reason: reason, Detail: detail}
}

// Duplicate builds an outcome for a bucket that another writer already finished.
func Duplicate(b Bucket) Outcome {
	return Outcome{Bucket: b, Status: DuplicateStatus, Reason: AlreadyProcessed}
}

// Failed builds an outcome for a bucket whose processing errored.
func Failed(b Bucket, err error, attempts int) Outcome {
	return Outcome{Bucket: b, Status: FailedStatus, Err: err, Attempts: attempts}
}

// String renders the outcome for logs and CLI summaries.
func (o Outcome) String() string {
	switch o.Status {
	case SkippedStatus:
		if o.Detail != "" {
			return fmt.Sprintf("%s skipped (%s: %s)", o.Bucket.Key(), o.Reason, o.Detail)
		}
		return fmt.Sprintf("%s skipped (%s)", o.Bucket.Key(), o.Reason)
	case FailedStatus:
		return fmt.Sprintf("%s failed after %d attempts: %v", o.Bucket.Key(), o.Attempts, o.Err)
	default:
		return fmt.Sprintf("%s %s", o.Bucket.Key(), o.Status)
	}
}

// SweepReport tallies the outcomes of one sweep or ingest run.
type SweepReport struct {
	Resolution Resolution `json:"resolution"`
	Scanned    int        `json:"scanned"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	Duplicate  int        `json:"duplicate"`
	Failed     int        `json:"failed"`
}

// Add folds one outcome into the report.
func (r *SweepReport) Add(o Outcome) {
	r.Scanned++
	switch o.Status {
	case ProcessedStatus:
		r.Processed++
	case SkippedStatus:
		r.Skipped++
	case DuplicateStatus:
		r.Duplicate++
	case FailedStatus:
		r.Failed++
	}
}

// IngestResult summarizes one ingested batch.
type IngestResult struct {
	Batch    string      `json:"batch"`
	Readings int         `json:"readings"`
	Alerts   int         `json:"alerts"`
	Minutes  SweepReport `json:"minutes"`
	Failed   bool        `json:"failed"`
}
