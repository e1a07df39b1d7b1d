package domain

import "time"

// Reading is one barometer sample
type Reading struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// LabelEvent ties a timestamp to a vehicle label
type LabelEvent struct {
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
}

// GroundTruthMark is the reference trace chosen for a label
type GroundTruthMark struct {
	Label     string `json:"label"`
	Date      string `json:"date"`
	File      string `json:"file"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Run represents one recorded invocation of a pipeline command
type Run struct {
	ID           string            `json:"id"`
	Command      string            `json:"command"`
	Args         string            `json:"args"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	Error        string            `json:"error,omitempty"`
	Buckets      []BucketFile      `json:"buckets,omitempty"`
	GroundTruths []GroundTruthMark `json:"ground_truths,omitempty"`
}

// BucketFile describes a (label, date) file written by a run
type BucketFile struct {
	Label string `json:"label"`
	Date  string `json:"date"`
	Lines int    `json:"lines"`
	Path  string `json:"path"`
}

// LabelSummary aggregates catalog entries for one label
type LabelSummary struct {
	Label string `json:"label"`
	Dates int    `json:"dates"`
	Lines int    `json:"lines"`
}
