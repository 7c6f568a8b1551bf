package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) SweepAdmitted(ctx context.Context) (int, int, error) {
	f.calls++
	return 2, 1, f.err
}

func TestNewAccrualRunnerBadSpec(t *testing.T) {
	if _, err := NewAccrualRunner("not a cron spec", &fakeSweeper{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestAccrualRunnerRun(t *testing.T) {
	s := &fakeSweeper{}
	r, err := NewAccrualRunner("0 1 * * *", s, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAccrualRunner: %v", err)
	}
	r.run()
	if s.calls != 1 {
		t.Fatalf("expected 1 sweep call, got %d", s.calls)
	}
}

func TestAccrualRunnerRunError(t *testing.T) {
	s := &fakeSweeper{err: errors.New("db down")}
	r, err := NewAccrualRunner("0 1 * * *", s, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAccrualRunner: %v", err)
	}
	r.run()
	if s.calls != 1 {
		t.Fatalf("expected 1 sweep call, got %d", s.calls)
	}
}
