package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordHelpersDoNotPanic(t *testing.T) {
	RecordClick()
	RecordClickCoerced()
	UpdateQueueSize(3)
	UpdateQueueCapacity(10)
	UpdateQueueUtilization(0.3)
	RecordQueueEnqueue()
	RecordQueueDequeue()
	RecordQueueEnqueueError()
	RecordFlushAppend()
	RecordFlushRetry()
	RecordFlushDropped()
	RecordFlushLatency(1.5)
	UpdateFlushWorkerCount(4)
	RecordSnapshotHit()
	RecordSnapshotMiss()
	RecordSnapshotRefresh()
	RecordSnapshotRefreshDuration(2.5)
	RecordBroadcastDelivery()
	RecordBroadcastDropped()
	UpdateSubscriberCount(2)
	RecordPollRequest()
	RecordPollWakeup()
	RecordPollTimeout()
	UpdateActiveBattles(1)
	RecordRedemption("coins")
	RecordRedemptionFailure("insufficient_funds")
	RecordHTTPRequest("clicks", "POST", "200")
	RecordHTTPRequestDuration("clicks", "POST", "200", 4.2)
}

func TestRegistryContainsCollectors(t *testing.T) {
	families, err := GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "clickarena_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected clickarena-prefixed metrics in registry")
	}
}

func TestNewManagerWithOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("testns"),
		WithSubsystem("testsub"),
		WithHistogramBuckets([]float64{1, 5, 10}),
		WithRegistry(reg),
	)
	if m == nil {
		t.Fatal("expected manager")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	// Counters with zero observations still register; gauges show up after Set.
	m.activeBattles.Set(1)
	families, err = reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "testns_") {
			found = true
		}
	}
	if !found {
		t.Error("expected testns-prefixed metrics in custom registry")
	}
}
