package mining

import (
	"testing"
	"time"

	"github.com/pflow-xyz/pflow-miner/eventlog"
)

// Helper: create an order-handling log where every case follows
// receive -> check -> ship.
func createOrderLog() *eventlog.EventLog {
	log := eventlog.NewEventLog()
	baseTime := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		caseID := string(rune('0' + i))
		for j, activity := range []string{"receive", "check", "ship"} {
			log.AddEvent(eventlog.Event{
				CaseID:    caseID,
				Activity:  activity,
				Timestamp: baseTime.Add(time.Duration(i)*time.Hour + time.Duration(j*10)*time.Minute),
			})
		}
	}
	log.SortTraces()
	return log
}

// Helper: same process with a rare expedited variant that skips the check.
func createOrderLogWithVariant() *eventlog.EventLog {
	log := createOrderLog()
	baseTime := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	for j, activity := range []string{"receive", "ship"} {
		log.AddEvent(eventlog.Event{
			CaseID:    "rush",
			Activity:  activity,
			Timestamp: baseTime.Add(time.Duration(j*10) * time.Minute),
		})
	}
	log.SortTraces()
	return log
}

func TestDiscoverSequentialNet(t *testing.T) {
	log := createOrderLog()
	net := DiscoverSequentialNet(log)
	if net == nil {
		t.Fatal("expected a non-nil net")
	}
	if len(net.Transitions) != 3 {
		t.Errorf("expected a transition per activity, got %d", len(net.Transitions))
	}
	// One place before each activity plus explicit start and end.
	if len(net.Places) != 5 {
		t.Errorf("expected 5 places for a 3-activity chain, got %d", len(net.Places))
	}
}

func TestDiscoverCommonPathPicksDominantVariant(t *testing.T) {
	log := createOrderLogWithVariant()
	result, err := Discover(log, "common-path")
	if err != nil {
		t.Fatalf("Discover(common-path): %v", err)
	}
	// The 8 full-process cases dominate the single expedited one.
	if result.MostCommonCount != 8 {
		t.Errorf("expected the dominant variant to cover 8 cases, got %d", result.MostCommonCount)
	}
	if result.NumVariants != 2 {
		t.Errorf("expected 2 variants, got %d", result.NumVariants)
	}
	if _, ok := result.Net.Transitions["check"]; !ok {
		t.Errorf("the dominant variant includes 'check', expected its transition in the net")
	}
}

func TestDiscoverMethods(t *testing.T) {
	log := createOrderLog()

	for _, method := range []string{"sequential", "common-path", "est-miner"} {
		t.Run(method, func(t *testing.T) {
			result, err := Discover(log, method)
			if err != nil {
				t.Fatalf("Discover(%s) failed: %v", method, err)
			}
			if result.Net == nil {
				t.Errorf("Discover(%s) returned nil net", method)
			}
			if result.Method != method {
				t.Errorf("Expected method '%s', got '%s'", method, result.Method)
			}
			if len(result.Net.Transitions) == 0 {
				t.Errorf("Discover(%s) returned a net with no transitions", method)
			}
		})
	}
}

func TestDiscoverEstMinerFindsChain(t *testing.T) {
	log := createOrderLog()
	result, err := Discover(log, "est-miner")
	if err != nil {
		t.Fatalf("Discover(est-miner): %v", err)
	}
	for _, activity := range []string{"receive", "check", "ship"} {
		if _, ok := result.Net.Transitions[activity]; !ok {
			t.Errorf("missing transition %q in the discovered net", activity)
		}
	}
	if result.CoveragePercent != 100 {
		t.Errorf("a single-variant log should be fully covered, got %.1f%%", result.CoveragePercent)
	}
}

func TestDiscoverUnknownMethod(t *testing.T) {
	log := createOrderLog()
	if _, err := Discover(log, "unknown"); err == nil {
		t.Error("Expected error for unknown method")
	}
}

func TestDiscoverEstMinerRejectsEmptyLog(t *testing.T) {
	log := eventlog.NewEventLog()
	if _, err := Discover(log, "est-miner"); err == nil {
		t.Error("Expected error for an empty log")
	}
}
