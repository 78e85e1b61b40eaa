package pipeline

import (
	"errors"
	"testing"
)

func TestShouldStop_boundary(t *testing.T) {
	const last = 500_000
	if !ShouldStop(2*last-1, last) {
		t.Error("free = 2*last-1 must stop")
	}
	if ShouldStop(2*last, last) {
		t.Error("free = 2*last must continue")
	}
	if ShouldStop(10*last, last) {
		t.Error("plenty of space must continue")
	}
}

func TestDiskGuard_Check(t *testing.T) {
	log := quietLogger()

	if !NewDiskGuard("v", fakeSpace{free: 99}, log, nil).Check(50) {
		t.Error("expected stop")
	}
	if NewDiskGuard("v", fakeSpace{free: 100}, log, nil).Check(50) {
		t.Error("expected continue")
	}
}

func TestDiskGuard_Check_probe_error_continues(t *testing.T) {
	log, buf := newTestLogger()
	g := NewDiskGuard("v", fakeSpace{err: errors.New("statfs failed")}, log, nil)
	if g.Check(50) {
		t.Error("an unreadable probe must not stop capture")
	}
	if len(buf.records(t, "free space unavailable")) != 1 {
		t.Error("expected the probe failure to be logged")
	}
}
