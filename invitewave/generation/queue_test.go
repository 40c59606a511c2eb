package generation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyewave/invitewave/internal/memrepo"
	"github.com/hyewave/invitewave/invitewave/database/models"
)

// trackingProvider succeeds every job and records how many are in flight
// between Create and Download.
type trackingProvider struct {
	mu       sync.Mutex
	active   int32
	peak     int32
	finished []string
}

func (p *trackingProvider) Create(_ context.Context, req CreateRequest) (string, error) {
	current := atomic.AddInt32(&p.active, 1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, current) {
			break
		}
	}
	return req.Prompt, nil
}

func (p *trackingProvider) Poll(_ context.Context, _ string) (JobStatus, error) {
	return JobStatus{State: StateSucceeded, Progress: 100}, nil
}

func (p *trackingProvider) Download(_ context.Context, jobID string) ([]byte, error) {
	atomic.AddInt32(&p.active, -1)
	p.mu.Lock()
	p.finished = append(p.finished, jobID)
	p.mu.Unlock()
	return []byte("mp4"), nil
}

func (p *trackingProvider) finishedJobs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.finished))
	copy(out, p.finished)
	return out
}

func TestTaskQueueRunsSequentiallyAtConcurrencyOne(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &trackingProvider{}
	transactions := memrepo.NewTransactionStore()
	notifier := memrepo.NewRecordingNotifier()
	runner := NewRunner(provider, transactions, &fakeStore{}, notifier, &fakeBiller{},
		WithPollInterval(time.Millisecond))

	queue := NewTaskQueue(runner, 1, 16)

	const jobs = 3
	for i := 0; i < jobs; i++ {
		id := fmt.Sprintf("tx-%d", i)
		require.NoError(t, transactions.Create(ctx, &models.Transaction{
			ID: id, PayerID: "payer", Status: models.TransactionStatusPaid,
		}))
		require.NoError(t, queue.Enqueue(Job{
			TaskID:        fmt.Sprintf("task-%d", i),
			TransactionID: id,
			PayerID:       "payer",
			Prompt:        fmt.Sprintf("prompt-%d", i),
		}))
	}

	queue.Start(ctx)
	defer queue.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for len(provider.finishedJobs()) < jobs {
		if time.Now().After(deadline) {
			t.Fatalf("finished %d of %d jobs before deadline", len(provider.finishedJobs()), jobs)
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.peak), "jobs must not overlap")
	assert.Equal(t, []string{"prompt-0", "prompt-1", "prompt-2"}, provider.finishedJobs(),
		"backlog order is execution order")

	for i := 0; i < jobs; i++ {
		tx, err := transactions.GetByID(ctx, fmt.Sprintf("tx-%d", i))
		require.NoError(t, err)
		assert.True(t, tx.Delivered)
	}
}

func TestTaskQueueEnqueueFullBacklog(t *testing.T) {
	queue := NewTaskQueue(nil, 1, 2)

	require.NoError(t, queue.Enqueue(Job{TaskID: "a"}))
	require.NoError(t, queue.Enqueue(Job{TaskID: "b"}))
	assert.ErrorIs(t, queue.Enqueue(Job{TaskID: "c"}), ErrQueueFull)
	assert.Equal(t, 2, queue.Pending())
}
