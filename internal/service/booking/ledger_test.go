package booking

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/storage/memory"
)

func TestLedgerReleaseKeepsResourceHeldWhileLive(t *testing.T) {
	ctx := context.Background()
	resources := memory.NewResourceRepository()
	reservations := memory.NewReservationRepository()
	ledger := NewLedger(resources, reservations)

	if err := resources.Add(ctx, domain.Resource{ID: "room-a", Type: domain.ResourceTypeRoom, Name: "Room A", Capacity: 4, IsAvailable: true}); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"r1", "r2"} {
		if err := reservations.Add(ctx, domain.Reservation{
			ID: id, ResourceID: "room-a", ResourceType: domain.ResourceTypeRoom, RequesterID: "alice",
			StartTime: start, EndTime: start.Add(time.Hour), Status: domain.ReservationStatusApproved,
		}); err != nil {
			t.Fatalf("add reservation %s: %v", id, err)
		}
	}
	if err := ledger.Hold(ctx, "room-a"); err != nil {
		t.Fatalf("hold: %v", err)
	}

	if err := reservations.UpdateStatus(ctx, "r1", domain.ReservationStatusCancelled, start); err != nil {
		t.Fatalf("cancel r1: %v", err)
	}
	available, err := ledger.Release(ctx, "room-a")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if available {
		t.Fatalf("resource must stay held while r2 is live")
	}

	if err := reservations.UpdateStatus(ctx, "r2", domain.ReservationStatusRejected, start); err != nil {
		t.Fatalf("reject r2: %v", err)
	}
	available, err = ledger.Release(ctx, "room-a")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !available {
		t.Fatalf("resource must be released when nothing is live")
	}
	if ok, _ := ledger.IsAvailable(ctx, "room-a"); !ok {
		t.Fatalf("expected stored flag to be true")
	}
}

func TestLedgerHoldUnknownResource(t *testing.T) {
	ledger := NewLedger(memory.NewResourceRepository(), memory.NewReservationRepository())
	if err := ledger.Hold(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
