package page

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
)

type fakeProcess struct {
	mu       sync.Mutex
	opened   int
	closed   []target.ID
	failNext bool
}

func (f *fakeProcess) NewPage(_ context.Context) (target.ID, Executor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return "", nil, errors.New("launch failed")
	}
	f.opened++
	return target.ID(targetIDFor(f.opened)), fakeExecutor{}, nil
}

func (f *fakeProcess) ClosePage(_ context.Context, tid target.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, tid)
}

func targetIDFor(n int) string {
	return "tid-" + string(rune('0'+n))
}

type fakeExecutor struct{}

func (fakeExecutor) Execute(context.Context, string, easyjson.Marshaler, easyjson.Unmarshaler) error {
	return nil
}

func (fakeExecutor) FireAndForget(string, easyjson.Marshaler) {}

func TestPoolAcquireCreatesLazily(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 2, nil)

	h1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	h2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h1.TargetID == h2.TargetID {
		t.Fatal("expected two distinct pages")
	}
	if proc.opened != 2 {
		t.Errorf("opened = %d, want 2", proc.opened)
	}
}

func TestPoolAcquireReturnsLimitReachedWithoutBlocking(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 1, nil)

	h, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolLimitReached) {
		t.Fatalf("err = %v, want ErrPoolLimitReached", err)
	}

	pool.Release(h)
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

func TestPoolDisposeFreesSlotForANewPage(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 1, nil)

	h, _ := pool.Acquire(context.Background())
	pool.Dispose(h)

	if len(proc.closed) != 1 || proc.closed[0] != h.TargetID {
		t.Errorf("closed = %v, want %v closed", proc.closed, h.TargetID)
	}
	h2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after Dispose: %v", err)
	}
	if proc.opened != 2 {
		t.Errorf("opened = %d, want 2 (Dispose should not be reused)", proc.opened)
	}
	_ = h2
}

func TestPoolReleaseReusesPage(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 1, nil)

	h, _ := pool.Acquire(context.Background())
	pool.Release(h)

	h2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h2.TargetID != h.TargetID {
		t.Error("expected the released page to be reused rather than a new one opened")
	}
	if proc.opened != 1 {
		t.Errorf("opened = %d, want 1 (reuse should not open a new page)", proc.opened)
	}
}

func TestPoolCloseClosesIdlePages(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 1, nil)

	h, _ := pool.Acquire(context.Background())
	pool.Release(h)

	pool.Close(context.Background())
	if len(proc.closed) != 1 {
		t.Errorf("closed = %v, want 1 page closed", proc.closed)
	}
}

func TestPoolReleaseAfterCloseClosesImmediately(t *testing.T) {
	proc := &fakeProcess{}
	pool := NewPool(proc, 1, nil)

	h, _ := pool.Acquire(context.Background())
	pool.Close(context.Background())
	pool.Release(h)

	if len(proc.closed) != 1 {
		t.Errorf("closed = %v, want the released page closed immediately", proc.closed)
	}
}
