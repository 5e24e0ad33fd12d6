package journal

import (
	"context"
	"errors"
	"time"
)

// Deleter removes stored objects. Deleting a missing object must succeed.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Compensate deletes every object recorded for a submission and clears its
// entry. Deletion is best effort: the entry is kept when any delete fails so
// the sweep can retry it.
func (j *Journal) Compensate(ctx context.Context, objects Deleter, submissionID string) error {
	entry, err := j.Get(submissionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return j.compensate(ctx, objects, entry)
}

func (j *Journal) compensate(ctx context.Context, objects Deleter, entry *Entry) error {
	var errs []error
	for _, key := range entry.Keys {
		if err := objects.Delete(ctx, key); err != nil {
			j.logger.Warn("compensating delete failed",
				"submission_id", entry.SubmissionID,
				"key", key,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	j.logger.Info("compensated submission uploads",
		"submission_id", entry.SubmissionID,
		"objects", len(entry.Keys),
	)
	return j.Clear(ctx, entry.SubmissionID)
}

// Sweep compensates every entry older than grace. It returns the number of
// entries cleared.
func (j *Journal) Sweep(ctx context.Context, objects Deleter, grace time.Duration) (int, error) {
	stale, err := j.StartedBefore(time.Now().Add(-grace))
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, entry := range stale {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}
		if err := j.compensate(ctx, objects, entry); err != nil {
			continue
		}
		cleared++
	}
	if cleared > 0 {
		j.logger.Info("swept orphaned uploads", "entries", cleared)
	}
	return cleared, nil
}
