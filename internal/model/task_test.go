package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TaskLifecycleStatus
		want     bool
	}{
		{StatusCreated, StatusAssigning, true},
		{StatusCreated, StatusCancelled, true},
		{StatusCreated, StatusRunning, false},
		{StatusAssigning, StatusRunning, true},
		{StatusAssigning, StatusCreated, true}, // assignment-timeout demotion
		{StatusRunning, StatusFinished, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusCreated, false},
		{StatusPaused, StatusCreated, true},
		{StatusFinished, StatusRunning, false},
		{StatusFailed, StatusCreated, false},
		{StatusCancelled, StatusAssigning, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, st := range []TaskLifecycleStatus{StatusFinished, StatusFailed, StatusCancelled} {
		if !st.Terminal() {
			t.Errorf("%s should be terminal", st)
		}
	}
	for _, st := range []TaskLifecycleStatus{StatusCreated, StatusAssigning, StatusRunning, StatusPaused} {
		if st.Terminal() {
			t.Errorf("%s should not be terminal", st)
		}
	}
}

func TestParseLifecycleStatus(t *testing.T) {
	if _, err := ParseLifecycleStatus("Running"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseLifecycleStatus("running"); err == nil {
		t.Fatalf("expected error for lowercase status")
	}
	if _, err := ParseLifecycleStatus("Bogus"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestHistorySaturated(t *testing.T) {
	rec := &MonitoredTaskRecord{HeartbeatHistory: []int{50, 50, 50, 50}}
	if rec.HistorySaturated(5) {
		t.Fatalf("window not full yet, should not be saturated")
	}
	rec.HeartbeatHistory = []int{50, 50, 50, 50, 50}
	if !rec.HistorySaturated(5) {
		t.Fatalf("five equal samples should saturate")
	}
	rec.HeartbeatHistory = []int{50, 50, 51, 50, 50}
	if rec.HistorySaturated(5) {
		t.Fatalf("distinct sample inside window should not saturate")
	}
}

func TestSkaldHeartbeatStuck(t *testing.T) {
	sk := &Skald{HeartbeatHistory: []int{7, 7, 7, 7, 7}}
	if !sk.HeartbeatStuck(5) {
		t.Fatalf("five equal samples should be stuck")
	}
	sk.HeartbeatHistory = []int{7, 7, 7, 7, 8}
	if sk.HeartbeatStuck(5) {
		t.Fatalf("changing heartbeat should not be stuck")
	}
	sk.HeartbeatHistory = []int{7, 7}
	if sk.HeartbeatStuck(5) {
		t.Fatalf("short history should not be stuck")
	}
}

func TestNewTaskDefaults(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	task := NewTask("t1", "W", "api", now)
	if task.Mode != ModePassive {
		t.Fatalf("expected Passive mode, got %s", task.Mode)
	}
	if task.Status != StatusCreated {
		t.Fatalf("expected Created, got %s", task.Status)
	}
	wantDeadline := now.Add(7 * 24 * time.Hour).UnixMilli()
	if task.DeadlineTime != wantDeadline {
		t.Fatalf("deadline = %d, want %d", task.DeadlineTime, wantDeadline)
	}
	if !task.Dispatchable() {
		t.Fatalf("new passive task should be dispatchable")
	}
}

func TestDispatchable(t *testing.T) {
	task := &Task{Mode: ModeActive, Status: StatusCreated}
	if task.Dispatchable() {
		t.Fatalf("active tasks are never dispatched")
	}
	task = &Task{Mode: ModePassive, Status: StatusRunning}
	if task.Dispatchable() {
		t.Fatalf("running tasks are not dispatchable")
	}
	task = &Task{Mode: ModePassive, Status: StatusPaused}
	if !task.Dispatchable() {
		t.Fatalf("paused passive tasks are dispatchable")
	}
}
