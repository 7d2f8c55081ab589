package probe

import "testing"

func TestDelayEnabled(t *testing.T) {
	if (Delay{}).Enabled() {
		t.Fatal("zero delay reports enabled")
	}
	if !(Delay{Cycles: 1}).Enabled() {
		t.Fatal("one-cycle delay reports disabled")
	}
}

func TestDelayWaitTerminates(t *testing.T) {
	before := spinGuard.Load()
	Delay{Cycles: 500}.Wait()
	if spinGuard.Load()-before < 500 {
		t.Fatalf("wait spun %d cycles, want >= 500", spinGuard.Load()-before)
	}
}
