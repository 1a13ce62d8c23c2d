package domain

import "time"

type OutcomeKind string

const (
	OutcomeCreated          OutcomeKind = "created"
	OutcomeSkippedDuplicate OutcomeKind = "skipped-duplicate"
	OutcomeFailed           OutcomeKind = "failed"
	OutcomeImageFailed      OutcomeKind = "image-failed"
)

// ArticleOutcome records what happened to one feed entry. An article whose
// image could not be attached gets two outcomes: created and image-failed.
type ArticleOutcome struct {
	Position int         `json:"position"`
	Title    string      `json:"title"`
	Kind     OutcomeKind `json:"kind"`
	ItemID   int64       `json:"item_id,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Err      error       `json:"-"`
}

// ImportReport summarizes a single import run.
type ImportReport struct {
	Feed       string           `json:"feed"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Fetched    int              `json:"fetched"`
	Outcomes   []ArticleOutcome `json:"outcomes"`
	FeedError  string           `json:"feed_error,omitempty"`
}

func (r *ImportReport) add(o ArticleOutcome) {
	if o.Err != nil && o.Reason == "" {
		o.Reason = o.Err.Error()
	}
	r.Outcomes = append(r.Outcomes, o)
}

func (r *ImportReport) RecordCreated(pos int, title string, itemID int64) {
	r.add(ArticleOutcome{Position: pos, Title: title, Kind: OutcomeCreated, ItemID: itemID})
}

func (r *ImportReport) RecordSkipped(pos int, title string, existingID int64) {
	r.add(ArticleOutcome{Position: pos, Title: title, Kind: OutcomeSkippedDuplicate, ItemID: existingID})
}

func (r *ImportReport) RecordFailed(pos int, title string, err error) {
	r.add(ArticleOutcome{Position: pos, Title: title, Kind: OutcomeFailed, Err: err})
}

func (r *ImportReport) RecordImageFailed(pos int, title string, itemID int64, err error) {
	r.add(ArticleOutcome{Position: pos, Title: title, Kind: OutcomeImageFailed, ItemID: itemID, Err: err})
}

// Count returns the number of outcomes of the given kind.
func (r *ImportReport) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func (r *ImportReport) Created() int { return r.Count(OutcomeCreated) }
func (r *ImportReport) Skipped() int { return r.Count(OutcomeSkippedDuplicate) }
func (r *ImportReport) Failed() int  { return r.Count(OutcomeFailed) }

// Failure reports whether the whole run was aborted.
func (r *ImportReport) Failure() bool { return r.FeedError != "" }

func (r *ImportReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ImportRun is the stored summary of a finished import.
type ImportRun struct {
	ID         int64     `db:"id" json:"id"`
	Feed       string    `db:"feed" json:"feed"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
	Fetched    int       `db:"fetched" json:"fetched"`
	Created    int       `db:"created" json:"created"`
	Skipped    int       `db:"skipped" json:"skipped"`
	Failed     int       `db:"failed" json:"failed"`
	FeedError  string    `db:"feed_error" json:"feed_error,omitempty"`
}
