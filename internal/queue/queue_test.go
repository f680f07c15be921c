package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_SubmitRunsTask(t *testing.T) {
	p := NewPool("test", 2)
	p.Start()
	defer p.Stop()

	var ran int32
	err := p.Submit(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("task did not run")
	}
}

func TestPool_SubmitPropagatesTaskError(t *testing.T) {
	p := NewPool("test", 1)
	p.Start()
	defer p.Stop()

	wantErr := errors.New("boom")
	err := p.Submit(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Submit() error = %v, want %v", err, wantErr)
	}
}

func TestPool_SubmitAfterStopFails(t *testing.T) {
	p := NewPool("test", 1)
	p.Start()
	p.Stop()

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected Submit after Stop to fail")
	}
}

func TestPool_SingleSlotSerializesWork(t *testing.T) {
	p := NewPool("test", 1)
	p.Start()
	defer p.Stop()

	var active int32
	var sawOverlap int32
	task := func(ctx context.Context) error {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&sawOverlap, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	}

	done := make(chan error, 2)
	go func() { done <- p.Submit(context.Background(), task) }()
	go func() { done <- p.Submit(context.Background(), task) }()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	if atomic.LoadInt32(&sawOverlap) != 0 {
		t.Fatal("single-slot pool allowed overlapping execution")
	}
}
