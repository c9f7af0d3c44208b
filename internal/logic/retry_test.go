package logic

import (
	"errors"
	"testing"
)

func TestWithConflictRetry(t *testing.T) {
	t.Run("exhausted retries surface a conflict", func(t *testing.T) {
		attempts := 0
		err := withConflictRetry(func() error {
			attempts++
			return errStaleState
		})
		if attempts != conflictAttempts {
			t.Fatalf("expected %d attempts, got %d", conflictAttempts, attempts)
		}
		if !IsConflict(err) {
			t.Fatalf("expected conflict error, got %v", err)
		}
	})

	t.Run("transient conflict recovers", func(t *testing.T) {
		attempts := 0
		err := withConflictRetry(func() error {
			attempts++
			if attempts < 2 {
				return errStaleState
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("non-conflict errors fail fast", func(t *testing.T) {
		attempts := 0
		boom := invariantf("余额不足")
		err := withConflictRetry(func() error {
			attempts++
			return boom
		})
		if attempts != 1 {
			t.Fatalf("invariant failures must not be retried, got %d attempts", attempts)
		}
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestIsConflictErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"stale state", errStaleState, true},
		{"wrapped stale state", errors.Join(errors.New("outer"), errStaleState), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"plain error", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isConflictErr(tc.err); got != tc.want {
				t.Fatalf("isConflictErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
