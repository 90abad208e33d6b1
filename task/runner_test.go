package task_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/neoglyph/rippley/task"
)

func TestRunner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := task.NewRunner(2, 16, nil)
	r.RegisterHandler("echo", func(_ context.Context, payload map[string]any) (any, error) {
		return payload["input"], nil
	})

	go r.Run(ctx)

	done := make(chan any, 1)
	tk, err := r.Enqueue("echo", map[string]any{"input": "hello"}, func(result any, err error) {
		if err != nil {
			t.Errorf("callback received error %q", err)
		}
		done <- result
	})
	if err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	select {
	case result := <-done:
		if result != "hello" {
			t.Fatalf("result should be %q; is %v", "hello", result)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for task result")
	}

	status, err := r.Status(tk.ID)
	if err != nil {
		t.Fatalf("Status failed with %q", err)
	}
	if status != task.Completed {
		t.Fatalf("Status should be %q; is %q", task.Completed, status)
	}

	result, err := r.Result(tk.ID)
	if err != nil {
		t.Fatalf("Result failed with %q", err)
	}
	if result != "hello" {
		t.Fatalf("Result should be %q; is %v", "hello", result)
	}
}

func TestRunner_failure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockError := errors.New("mock error")

	r := task.NewRunner(1, 4, nil)
	r.RegisterHandler("fail", func(context.Context, map[string]any) (any, error) {
		return nil, mockError
	})

	go r.Run(ctx)

	done := make(chan error, 1)
	tk, err := r.Enqueue("fail", nil, func(_ any, err error) {
		done <- err
	})
	if err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, mockError) {
			t.Fatalf("callback should receive %q; got %q", mockError, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for task failure")
	}

	status, err := r.Status(tk.ID)
	if err != nil {
		t.Fatalf("Status failed with %q", err)
	}
	if status != task.Failed {
		t.Fatalf("Status should be %q; is %q", task.Failed, status)
	}

	if _, err := r.Result(tk.ID); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Fatalf("Result should fail with an error containing %q; got %q", "mock error", err)
	}
}

func TestRunner_noHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := task.NewRunner(1, 4, nil)

	go r.Run(ctx)

	done := make(chan any, 1)
	if _, err := r.Enqueue("unknown", nil, func(result any, err error) {
		if err != nil {
			t.Errorf("callback received error %q", err)
		}
		done <- result
	}); err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	select {
	case result := <-done:
		m, ok := result.(map[string]any)
		if !ok {
			t.Fatalf("result should be a map; is %T", result)
		}
		if m["message"] != "No handler for task type: unknown" {
			t.Fatalf("message should be %q; is %v", "No handler for task type: unknown", m["message"])
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for task result")
	}
}

func TestRunner_queueFull(t *testing.T) {
	r := task.NewRunner(1, 1, nil)

	if _, err := r.Enqueue("echo", nil, nil); err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	if _, err := r.Enqueue("echo", nil, nil); !errors.Is(err, task.ErrQueueFull) {
		t.Fatalf("Enqueue should fail with %q; got %q", task.ErrQueueFull, err)
	}
}

func TestRunner_Stats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := task.NewRunner(2, 16, nil)
	r.RegisterHandler("echo", func(_ context.Context, payload map[string]any) (any, error) {
		return payload, nil
	})

	go r.Run(ctx)

	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		if _, err := r.Enqueue("echo", map[string]any{"n": fmt.Sprint(i)}, func(any, error) {
			done <- struct{}{}
		}); err != nil {
			t.Fatalf("Enqueue failed with %q", err)
		}
	}

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for task %d", i)
		}
	}

	stats := r.Stats()
	if stats.Completed != 5 {
		t.Fatalf("Stats.Completed should be %d; is %d", 5, stats.Completed)
	}
	if stats.Queued != 0 {
		t.Fatalf("Stats.Queued should be %d; is %d", 0, stats.Queued)
	}
}

func TestRunner_cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := task.NewRunner(1, 4, nil)
	r.RegisterHandler("block", func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	tk, err := r.Enqueue("block", nil, nil)
	if err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	<-time.After(20 * time.Millisecond)

	queued, err := r.Enqueue("block", nil, nil)
	if err != nil {
		t.Fatalf("Enqueue failed with %q", err)
	}

	cancel()

	select {
	case err := <-runDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run should return %q; got %q", context.Canceled, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for Run to return")
	}

	<-time.After(20 * time.Millisecond)

	status, err := r.Status(tk.ID)
	if err != nil {
		t.Fatalf("Status failed with %q", err)
	}
	if status != task.Cancelled {
		t.Fatalf("Status of the running task should be %q; is %q", task.Cancelled, status)
	}

	status, err = r.Status(queued.ID)
	if err != nil {
		t.Fatalf("Status failed with %q", err)
	}
	if status != task.Cancelled {
		t.Fatalf("Status of the queued task should be %q; is %q", task.Cancelled, status)
	}
}
