package service

import "context"

// DispatchSummary is the outcome of one dispatch run.
type DispatchSummary struct {
	Claimed   int `json:"claimed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Discarded int `json:"discarded"`
}

type DispatchService interface {
	// Run claims one batch and drives every claimed job to a completion.
	// A store failure aborts the run; per-job delivery failures do not.
	Run(ctx context.Context, batchSize int) (DispatchSummary, error)
}
