package model

import (
	"testing"
	"time"
)

func TestCancelTransitions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"pending is cancellable", StatusPending, false},
		{"confirmed is cancellable", StatusConfirmed, false},
		{"cancelled is terminal", StatusCancelled, true},
		{"completed is terminal", StatusCompleted, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Booking{Status: tc.status}
			err := b.Cancel(now, "plans changed")
			if tc.wantErr {
				if err != ErrInvalidTransition {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if b.Status != tc.status {
					t.Fatalf("terminal status mutated: %s -> %s", tc.status, b.Status)
				}
				if b.CancelledAt != nil {
					t.Fatalf("cancelled_at set on failed transition")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Status != StatusCancelled {
				t.Fatalf("status = %s, want %s", b.Status, StatusCancelled)
			}
			if b.CancelledAt == nil || !b.CancelledAt.Equal(now) {
				t.Fatalf("cancelled_at = %v, want %v", b.CancelledAt, now)
			}
			if b.CancellationReason != "plans changed" {
				t.Fatalf("reason = %q", b.CancellationReason)
			}
		})
	}
}

func TestCancelDoesNotDoubleApply(t *testing.T) {
	b := Booking{Status: StatusConfirmed}
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := b.Cancel(first, ""); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if b.CancellationReason != "Cancelled by user" {
		t.Fatalf("default reason = %q", b.CancellationReason)
	}
	// A second cancel must fail and must not move cancelled_at.
	if err := b.Cancel(first.Add(time.Hour), "again"); err != ErrInvalidTransition {
		t.Fatalf("second cancel err = %v", err)
	}
	if !b.CancelledAt.Equal(first) {
		t.Fatalf("cancelled_at moved on rejected transition")
	}
	if b.CancellationReason != "Cancelled by user" {
		t.Fatalf("reason overwritten on rejected transition")
	}
}

func TestCompleteTransitions(t *testing.T) {
	for _, status := range []string{StatusPending, StatusConfirmed} {
		b := Booking{Status: status}
		if err := b.Complete(); err != nil {
			t.Fatalf("complete from %s: %v", status, err)
		}
		if b.Status != StatusCompleted {
			t.Fatalf("status = %s", b.Status)
		}
	}
	for _, status := range []string{StatusCancelled, StatusCompleted} {
		b := Booking{Status: status}
		if err := b.Complete(); err != ErrInvalidTransition {
			t.Fatalf("complete from %s err = %v", status, err)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
		if !ValidStatus(s) {
			t.Fatalf("%s should be valid", s)
		}
	}
	if ValidStatus("confirmed") || ValidStatus("") || ValidStatus("HELD") {
		t.Fatal("unexpected status accepted")
	}
}
