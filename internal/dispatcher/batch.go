package dispatcher

import (
	"context"
	"time"

	"github.com/applymail/applymail/internal/logger"
	"github.com/applymail/applymail/internal/models"
)

// ApplicationSenderInterface is the per-application send operation.
// This allows mocking in tests.
type ApplicationSenderInterface interface {
	Send(ctx context.Context, app models.ApplicationRequest, index int, opts SendOptions) ([]models.SendResult, error)
}

// BatchDispatcher iterates a batch of applications strictly in input order,
// pacing items with a fixed delay. One failing item never aborts the batch.
type BatchDispatcher struct {
	sender ApplicationSenderInterface
	log    *logger.Logger

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// NewBatchDispatcher creates a BatchDispatcher.
func NewBatchDispatcher(sender ApplicationSenderInterface) *BatchDispatcher {
	return &BatchDispatcher{
		sender: sender,
		log:    logger.Get(),
		sleep:  time.Sleep,
	}
}

// effectiveLimit clamps the requested limit to the list length; a
// non-positive limit means "process all".
func effectiveLimit(limit, length int) int {
	if limit <= 0 || limit > length {
		return length
	}
	return limit
}

// syntheticRecipient names the failure target when an item errors before its
// recipients could be resolved.
func syntheticRecipient(app models.ApplicationRequest) string {
	if recipients := ExpandRecipients(app.To); len(recipients) > 0 {
		return recipients[0]
	}
	return "unknown"
}

// Dispatch processes at most min(limit, len) applications in order. The
// per-item dryRun override wins over the batch default. Between consecutive
// items (not after the last) the dispatcher sleeps for DelayMs. An error from
// one item is recorded as a single synthetic failed result and iteration
// continues. An empty batch is rejected before any side effect.
func (d *BatchDispatcher) Dispatch(ctx context.Context, req models.BatchRequest, userID string) (*models.BatchResult, error) {
	if len(req.Applications) == 0 {
		return nil, &ValidationError{Msg: "applications list is empty"}
	}

	count := effectiveLimit(req.Limit, len(req.Applications))
	delay := time.Duration(req.DelayMs) * time.Millisecond

	batch := &models.BatchResult{Results: []models.SendResult{}}

	for i := 0; i < count; i++ {
		app := req.Applications[i]

		dryRun := req.DryRun
		if app.DryRun != nil {
			dryRun = *app.DryRun
		}

		results, err := d.sender.Send(ctx, app, i, SendOptions{
			UserID:         userID,
			DryRun:         dryRun,
			RecipientDelay: delay,
		})
		if err != nil {
			d.log.Error().Err(err).Int("index", i).Str("company", app.Company).Msg("application send failed")
			results = []models.SendResult{{
				Status: models.SendStatusFailed,
				Index:  i,
				To:     syntheticRecipient(app),
				Error:  err.Error(),
			}}
		}

		for _, r := range results {
			batch.Total++
			if r.Status == models.SendStatusSent {
				batch.Successes++
			} else {
				batch.Failures++
			}
			batch.Results = append(batch.Results, r)
		}

		if i < count-1 && delay > 0 {
			d.sleep(delay)
		}
	}

	d.log.Info().
		Int("total", batch.Total).
		Int("successes", batch.Successes).
		Int("failures", batch.Failures).
		Msg("batch dispatched")

	return batch, nil
}
