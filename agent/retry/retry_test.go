package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordedSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func unavailable() error {
	return &contractx.Failure{
		Kind:    contractx.KindUnavailable,
		UseCase: contractx.UseCaseChatAdvice,
		Status:  503,
		Err:     errors.New("model is overloaded"),
	}
}

func TestDoRetriesUnavailableThenSucceeds(t *testing.T) {
	t.Parallel()

	rec := &recordedSleep{}
	c := New(DefaultPolicy(), WithSleep(rec.sleep))

	calls := 0
	out, state, err := Do(context.Background(), c, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", unavailable()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
	if state.Attempts != 3 || state.Waited != 3*time.Second {
		t.Fatalf("unexpected state: %+v", state)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.delays) != len(want) || rec.delays[0] != want[0] || rec.delays[1] != want[1] {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
}

func TestDoExhaustsAfterThreeAttempts(t *testing.T) {
	t.Parallel()

	rec := &recordedSleep{}
	c := New(DefaultPolicy(), WithSleep(rec.sleep))

	calls := 0
	_, state, err := Do(context.Background(), c, func(ctx context.Context) (int, error) {
		calls++
		return 0, unavailable()
	})
	if !errors.Is(err, contractx.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if contractx.KindOf(err) != contractx.KindRetriesExhausted {
		t.Fatalf("KindOf() = %s", contractx.KindOf(err))
	}
	if calls != 3 || state.Attempts != 3 {
		t.Fatalf("calls=%d attempts=%d", calls, state.Attempts)
	}
	// no wait after the final attempt
	if len(rec.delays) != 2 {
		t.Fatalf("expected 2 waits, got %v", rec.delays)
	}
	f := contractx.AsFailure(err)
	if f.Attempts != 3 || f.UseCase != contractx.UseCaseChatAdvice {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestDoDoesNotRetryOtherKinds(t *testing.T) {
	t.Parallel()

	kinds := []error{
		contractx.SchemaViolation("missing field"),
		contractx.NewFailure(contractx.KindUnknown, errors.New("boom")),
		errors.New("untagged"),
	}
	for _, want := range kinds {
		rec := &recordedSleep{}
		c := New(DefaultPolicy(), WithSleep(rec.sleep))
		calls := 0
		_, _, err := Do(context.Background(), c, func(ctx context.Context) (int, error) {
			calls++
			return 0, want
		})
		if err != want {
			t.Fatalf("expected error to pass through unchanged, got %v", err)
		}
		if calls != 1 || len(rec.delays) != 0 {
			t.Fatalf("calls=%d delays=%v", calls, rec.delays)
		}
	}
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Policy{MaxAttempts: 3, BaseDelay: time.Hour})

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		_, _, err := Do(ctx, c, func(ctx context.Context) (int, error) {
			calls++
			return 0, unavailable()
		})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if contractx.KindOf(err) != contractx.KindUnknown {
			t.Fatalf("expected unknown, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do() did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestDoWallClockBackoff(t *testing.T) {
	t.Parallel()

	c := New(Policy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond})
	start := time.Now()
	_, _, err := Do(context.Background(), c, func(ctx context.Context) (int, error) {
		return 0, unavailable()
	})
	elapsed := time.Since(start)
	if !errors.Is(err, contractx.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	// 20ms + 40ms
	if elapsed < 60*time.Millisecond {
		t.Fatalf("elapsed %v, expected at least 60ms of backoff", elapsed)
	}
}

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond}
	if got := p.Delay(3); got != 1500*time.Millisecond {
		t.Fatalf("Delay(3) = %v", got)
	}
	if got := p.Delay(0); got != 0 {
		t.Fatalf("Delay(0) = %v", got)
	}
	if got := (Policy{}).attempts(); got != 1 {
		t.Fatalf("attempts() = %d", got)
	}
}
