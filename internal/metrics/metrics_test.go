package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// The teacher repo has no metrics test to ground this on; this follows the
// wider ecosystem convention (testutil.GatherAndCount/ToFloat64 against a
// throwaway registry) also used elsewhere in the pack.
func TestRegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	TriggersAcquiredTotal.Add(3)
	MisfiresTotal.WithLabelValues("fire_once_now").Inc()
	StoredTriggersGauge.WithLabelValues("waiting").Set(7)

	if got := testutil.ToFloat64(TriggersAcquiredTotal); got != 3 {
		t.Fatalf("TriggersAcquiredTotal = %v, want 3", got)
	}
	if got := testutil.ToFloat64(StoredTriggersGauge.WithLabelValues("waiting")); got != 7 {
		t.Fatalf("StoredTriggersGauge{waiting} = %v, want 7", got)
	}

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count == 0 {
		t.Fatal("expected at least one collected metric sample")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err == nil {
		t.Fatal("expected second Register on the same registry to fail")
	}
}
