package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applymail/applymail/internal/models"
)

type senderCall struct {
	app  models.ApplicationRequest
	idx  int
	opts SendOptions
}

// mockAppSender simulates the per-application sender: one result per
// expanded recipient, with optional per-index errors.
type mockAppSender struct {
	calls   []senderCall
	errFor  map[int]error
	failAll bool
}

func (m *mockAppSender) Send(ctx context.Context, app models.ApplicationRequest, index int, opts SendOptions) ([]models.SendResult, error) {
	m.calls = append(m.calls, senderCall{app: app, idx: index, opts: opts})
	if err := m.errFor[index]; err != nil {
		return nil, err
	}

	var results []models.SendResult
	for _, to := range ExpandRecipients(app.To) {
		r := models.SendResult{Index: index, To: to}
		if m.failAll {
			r.Status = models.SendStatusFailed
			r.Error = "simulated failure"
		} else {
			r.Status = models.SendStatusSent
			if opts.DryRun {
				r.Info = models.DryRunMessageID
			} else {
				r.Info = "<msg-id@test>"
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func newTestDispatcher(sender ApplicationSenderInterface) *BatchDispatcher {
	d := NewBatchDispatcher(sender)
	d.sleep = func(time.Duration) {}
	return d
}

func TestDispatch_EmptyBatchRejected(t *testing.T) {
	sender := &mockAppSender{}
	d := newTestDispatcher(sender)

	_, err := d.Dispatch(context.Background(), models.BatchRequest{}, "u1")
	require.Error(t, err)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Empty(t, sender.calls, "no item may be processed for an empty batch")
}

func TestDispatch_LimitClampedToLength(t *testing.T) {
	sender := &mockAppSender{}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com"},
			{To: "b@x.com"},
		},
		Limit: 10,
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, sender.calls, 2)
}

func TestDispatch_NonPositiveLimitMeansAll(t *testing.T) {
	for _, limit := range []int{0, -5} {
		sender := &mockAppSender{}
		d := newTestDispatcher(sender)

		req := models.BatchRequest{
			Applications: []models.ApplicationRequest{
				{To: "a@x.com"},
				{To: "b@x.com"},
				{To: "c@x.com"},
			},
			Limit: limit,
		}

		result, err := d.Dispatch(context.Background(), req, "u1")
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total, "limit %d should process all items", limit)
	}
}

func TestDispatch_LimitTruncates(t *testing.T) {
	sender := &mockAppSender{}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com"},
			{To: "b@x.com"},
		},
		Limit: 1,
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "a@x.com", sender.calls[0].app.To)
}

func TestDispatch_ItemDryRunOverridesBatchDefault(t *testing.T) {
	sender := &mockAppSender{}
	d := newTestDispatcher(sender)

	itemDry := true
	itemWet := false
	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com", DryRun: &itemDry},
			{To: "b@x.com"},
			{To: "c@x.com", DryRun: &itemWet},
		},
		DryRun: false,
	}

	_, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)
	require.Len(t, sender.calls, 3)
	assert.True(t, sender.calls[0].opts.DryRun, "item override wins")
	assert.False(t, sender.calls[1].opts.DryRun, "batch default applies")
	assert.False(t, sender.calls[2].opts.DryRun, "explicit item false wins")

	// and the other direction: batch dry-run with an explicit wet item
	sender2 := &mockAppSender{}
	d2 := newTestDispatcher(sender2)
	req2 := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com"},
			{To: "b@x.com", DryRun: &itemWet},
		},
		DryRun: true,
	}
	_, err = d2.Dispatch(context.Background(), req2, "u1")
	require.NoError(t, err)
	assert.True(t, sender2.calls[0].opts.DryRun)
	assert.False(t, sender2.calls[1].opts.DryRun)
}

func TestDispatch_SenderErrorYieldsSyntheticFailure(t *testing.T) {
	sender := &mockAppSender{
		errFor: map[int]error{0: errors.New("boom")},
	}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com,also@x.com"},
			{To: "b@x.com"},
		},
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)

	// one synthetic failure for the whole failed item, not per recipient
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Successes)
	assert.Equal(t, 1, result.Failures)
	require.Len(t, result.Results, 2)

	assert.Equal(t, models.SendStatusFailed, result.Results[0].Status)
	assert.Equal(t, "a@x.com", result.Results[0].To)
	assert.Contains(t, result.Results[0].Error, "boom")

	// the second application was still attempted
	assert.Equal(t, models.SendStatusSent, result.Results[1].Status)
	assert.Equal(t, "b@x.com", result.Results[1].To)
}

func TestDispatch_SyntheticFailureUnknownRecipient(t *testing.T) {
	sender := &mockAppSender{
		errFor: map[int]error{0: &ValidationError{Msg: "no recipients"}},
	}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{{To: "  "}},
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "unknown", result.Results[0].To)
}

func TestDispatch_CountsInvariant(t *testing.T) {
	sender := &mockAppSender{failAll: true}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com,b@x.com"},
			{To: "c@x.com"},
		},
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)

	assert.Equal(t, result.Total, result.Successes+result.Failures)
	assert.Equal(t, 3, result.Total, "total counts recipients, not items")
	assert.Len(t, result.Results, result.Total)
}

func TestDispatch_DelayBetweenItemsOnly(t *testing.T) {
	var sleeps []time.Duration
	d := NewBatchDispatcher(&mockAppSender{})
	d.sleep = func(dur time.Duration) { sleeps = append(sleeps, dur) }

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "a@x.com"},
			{To: "b@x.com"},
			{To: "c@x.com"},
		},
		DelayMs: 100,
	}

	_, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)

	require.Len(t, sleeps, 2, "delay runs between items, never after the last")
	assert.Equal(t, 100*time.Millisecond, sleeps[0])
}

// The worked example from the service contract: one application, two
// recipients, dry-run.
func TestDispatch_DryRunExample(t *testing.T) {
	sender := &mockAppSender{}
	d := newTestDispatcher(sender)

	req := models.BatchRequest{
		Applications: []models.ApplicationRequest{
			{To: "r1@a.com,r2@a.com"},
		},
		Limit:   1,
		DelayMs: 0,
		DryRun:  true,
	}

	result, err := d.Dispatch(context.Background(), req, "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 0, result.Failures)
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.SendStatusSent, result.Results[0].Status)
	assert.Equal(t, "r1@a.com", result.Results[0].To)
	assert.Equal(t, models.DryRunMessageID, result.Results[0].Info)
	assert.Equal(t, "r2@a.com", result.Results[1].To)
}
