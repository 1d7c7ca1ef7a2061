package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDialogMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogMetrics(reg)
	m.ObserveTurn("idle", "awaiting_existing_treatment_answer")
	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")
	m.ObserveFallback("ok")
	m.ObserveNotification("sent")
	m.ObserveTurnLatency("http", 0.02)
	m.ObserveOpenSlots(17)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	bookings := findFamily(families, "dental_dialog_bookings_total")
	if bookings == nil {
		t.Fatal("bookings family not registered")
	}
	if got := counterFor(bookings, "outcome", "booked"); got != 2 {
		t.Fatalf("expected 2 booked, got %v", got)
	}
	if got := counterFor(bookings, "outcome", "conflict"); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	slots := findFamily(families, "dental_availability_open_slots")
	if slots == nil || slots.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatal("open slots histogram missing")
	}
	if slots.Metric[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one sample, got %d", slots.Metric[0].GetHistogram().GetSampleCount())
	}
}

func TestDialogMetricsNilSafe(t *testing.T) {
	var m *DialogMetrics
	m.ObserveTurn("a", "b")
	m.ObserveBooking("failed")
	m.ObserveFallback("error")
	m.ObserveNotification("error")
	m.ObserveTurnLatency("ws", 0.1)
	m.ObserveOpenSlots(0)
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterFor(family *dto.MetricFamily, label, value string) float64 {
	for _, metric := range family.Metric {
		for _, pair := range metric.Label {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
