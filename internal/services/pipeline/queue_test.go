package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/repono/internal/common"
)

// recordingPipeline collects processed job ids
type recordingPipeline struct {
	mu    sync.Mutex
	ids   []string
	block chan struct{}
}

func (p *recordingPipeline) Process(ctx context.Context, urlID, account string) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	p.ids = append(p.ids, urlID)
	p.mu.Unlock()
	return nil
}

func (p *recordingPipeline) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func TestQueue_ProcessesEnqueuedJobs(t *testing.T) {
	fake := &recordingPipeline{}
	q := NewQueue(fake, &common.QueueConfig{Concurrency: 2, BufferSize: 8}, common.GetLogger())
	q.Start()
	defer q.Stop()

	for _, id := range []string{"url_1", "url_2", "url_3"} {
		if err := q.Enqueue(id, "alice"); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for len(fake.processed()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("processed %v, want 3 jobs", fake.processed())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQueue_FullBufferRejects(t *testing.T) {
	// Workers blocked so the buffer fills up
	block := make(chan struct{})
	fake := &recordingPipeline{block: block}
	q := NewQueue(fake, &common.QueueConfig{Concurrency: 1, BufferSize: 1}, common.GetLogger())
	q.Start()
	defer func() {
		close(block)
		q.Stop()
	}()

	// First job occupies the worker, second fills the buffer. Depending on
	// scheduling the worker may not have picked up the first yet, so allow
	// one extra slot before expecting rejection.
	sawFull := false
	for i := 0; i < 3; i++ {
		if err := q.Enqueue("url_x", "alice"); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Error("Enqueue never returned ErrQueueFull with a full buffer")
	}
}

func TestQueue_EnqueueAfterStop(t *testing.T) {
	fake := &recordingPipeline{}
	q := NewQueue(fake, &common.QueueConfig{Concurrency: 1, BufferSize: 4}, common.GetLogger())
	q.Start()
	q.Stop()

	if err := q.Enqueue("url_1", "alice"); !errors.Is(err, ErrQueueStopped) {
		t.Errorf("Enqueue after Stop = %v, want ErrQueueStopped", err)
	}
}
