package health

import (
	"errors"
	"testing"
	"time"
)

func TestRegistryStatuses(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRegistry(started, "instagram", "telegram")

	snap := r.Snapshot()
	if snap["instagram"] != StatusStarting || snap["telegram"] != StatusStarting {
		t.Fatalf("expected starting statuses, got %v", snap)
	}

	r.Reporter("instagram")(StatusRunning)
	r.SetError("telegram", errors.New("boom"))
	snap = r.Snapshot()
	if snap["instagram"] != StatusRunning {
		t.Fatalf("unexpected instagram status %q", snap["instagram"])
	}
	if snap["telegram"] != "error: boom" {
		t.Fatalf("unexpected telegram status %q", snap["telegram"])
	}

	snap["instagram"] = "mutated"
	if r.Snapshot()["instagram"] != StatusRunning {
		t.Fatal("snapshot must be a copy")
	}
	if !r.StartedAt().Equal(started) {
		t.Fatal("unexpected start time")
	}
	if names := r.Subsystems(); len(names) != 2 || names[0] != "instagram" {
		t.Fatalf("unexpected subsystems %v", names)
	}
}
