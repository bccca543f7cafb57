package pool

import (
	"reflect"
	"testing"
)

func TestThresholdsGrowLinearly(t *testing.T) {
	s := New(7, 20, 10, false)

	want := []uint64{20, 30, 40, 50, 60, 70, 80}
	for i, w := range want {
		if got := s.Threshold(i); got != w {
			t.Errorf("Threshold(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestDueToStartRespectsThresholds(t *testing.T) {
	tests := []struct {
		name   string
		behind uint64
		want   []int
	}{
		{"below first threshold", 19, nil},
		{"exactly first threshold", 20, []int{0}},
		{"mid range", 45, []int{0, 1, 2}},
		{"all thresholds met", 80, []int{0, 1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(7, 20, 10, false)
			if got := s.DueToStart(tt.behind); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DueToStart(%d) = %v, want %v", tt.behind, got, tt.want)
			}
		})
	}
}

func TestDueToStartClaimsOnlyOnce(t *testing.T) {
	s := New(3, 20, 10, false)

	if got := s.DueToStart(25); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("first DueToStart(25) = %v, want [0]", got)
	}
	if got := s.DueToStart(25); got != nil {
		t.Errorf("second DueToStart(25) = %v, want nil", got)
	}
}

func TestReactivationBeforeExitDoesNotRespawn(t *testing.T) {
	s := New(2, 20, 10, false)
	s.DueToStart(20) // slot 0 active and running

	// worker decided to stop but its goroutine has not exited yet
	s.Deactivate(0)

	if got := s.DueToStart(20); got != nil {
		t.Errorf("DueToStart over a live goroutine = %v, want nil", got)
	}
	if !s.Active(0) {
		t.Error("Active(0) = false after reactivation, want true")
	}

	// after the goroutine exits the slot is claimable again
	s.Deactivate(0)
	s.MarkStopped(0)
	if got := s.DueToStart(20); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("DueToStart after exit = %v, want [0]", got)
	}
}

func TestDueToStopOnTargetFirst(t *testing.T) {
	s := New(3, 20, 10, false)
	s.DueToStart(40) // slots 0..2 active

	if got := s.DueToStop(40, true); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("DueToStop(first=true) = %v, want [0 1 2]", got)
	}
	if n := s.ActiveCount(); n != 0 {
		t.Errorf("ActiveCount() = %d, want 0", n)
	}
}

func TestDueToStopOnStreakDrop(t *testing.T) {
	s := New(3, 20, 10, false)
	s.DueToStart(40) // thresholds 20, 30, 40 all met

	if got := s.DueToStop(25, false); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("DueToStop(behind=25) = %v, want [1 2]", got)
	}
	if !s.Active(0) {
		t.Error("slot 0 deactivated, want still active")
	}
}

func TestForcedModeSuppressesStops(t *testing.T) {
	s := New(3, 20, 10, true)
	s.ActivateAll()

	if got := s.DueToStop(0, true); got != nil {
		t.Errorf("DueToStop in forced mode = %v, want nil", got)
	}
	if !s.ShouldContinue(0, 0) {
		t.Error("ShouldContinue(0, behind=0) in forced mode = false, want true")
	}
}

func TestShouldContinue(t *testing.T) {
	s := New(2, 20, 10, false)
	s.DueToStart(30)

	if !s.ShouldContinue(0, 30) {
		t.Error("ShouldContinue(0, 30) = false, want true")
	}
	if s.ShouldContinue(0, 19) {
		t.Error("ShouldContinue(0, 19) = true, want false")
	}

	s.Deactivate(0)
	if s.ShouldContinue(0, 30) {
		t.Error("ShouldContinue on deactivated slot = true, want false")
	}
}

func TestActivateAllClaimsNonRunning(t *testing.T) {
	s := New(3, 20, 10, true)

	if got := s.ActivateAll(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("ActivateAll() = %v, want [0 1 2]", got)
	}
	if got := s.ActivateAll(); got != nil {
		t.Errorf("second ActivateAll() = %v, want nil", got)
	}
}
