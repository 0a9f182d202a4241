package service

import (
	"context"
	"errors"
	"testing"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

func newTestLocationService(f *fixture) *LocationService {
	return NewLocationService(f.locations, f.store(), discardLogger)
}

func TestLocationService_List_ConsumerSeesOwn(t *testing.T) {
	f := newFixture()
	svc := newTestLocationService(f)
	mine := f.addLocation("Mine", f.consumer.UserID)
	f.addLocation("Theirs", f.other.UserID)
	f.addLocation("Unowned", 0)

	locs, err := svc.List(context.Background(), f.consumer)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locs) != 1 || locs[0].ID != mine.ID {
		t.Fatalf("expected only own location, got %+v", locs)
	}

	all, _ := svc.List(context.Background(), f.employee)
	if len(all) != 3 {
		t.Errorf("employee should see 3 locations, got %d", len(all))
	}
}

func TestLocationService_Get_Forbidden(t *testing.T) {
	f := newFixture()
	svc := newTestLocationService(f)
	theirs := f.addLocation("Theirs", f.other.UserID)

	if _, err := svc.Get(context.Background(), f.consumer, theirs.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLocationService_Create(t *testing.T) {
	f := newFixture()
	svc := newTestLocationService(f)
	ctx := context.Background()

	if _, err := svc.Create(ctx, f.consumer, ports.CreateLocationInput{Name: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("consumer create: expected ErrForbidden, got %v", err)
	}

	loc, err := svc.Create(ctx, f.employee, ports.CreateLocationInput{Name: "Home", Lat: 1, Lon: 2, OwnerID: ptr(f.consumer.UserID)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if loc.ID == 0 || !loc.OwnedBy(f.consumer.UserID) {
		t.Errorf("unexpected location %+v", loc)
	}

	if _, err := svc.Create(ctx, f.employee, ports.CreateLocationInput{Name: "Office", OwnerID: ptr(f.employee.UserID)}); !errors.Is(err, domain.ErrOwnerMustBeConsumer) {
		t.Errorf("non-consumer owner: expected ErrOwnerMustBeConsumer, got %v", err)
	}
	if _, err := svc.Create(ctx, f.employee, ports.CreateLocationInput{Name: "Ghost", OwnerID: ptr(int64(999))}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing owner: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, f.employee, ports.CreateLocationInput{Name: " "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("blank name: expected ErrInvalidInput, got %v", err)
	}
}

func TestLocationService_Update(t *testing.T) {
	f := newFixture()
	svc := newTestLocationService(f)
	ctx := context.Background()
	loc := f.addLocation("Home", f.consumer.UserID)

	updated, err := svc.Update(ctx, f.employee, loc.ID, ports.UpdateLocationInput{Name: ptr("Cabin"), OwnerID: ptr(f.other.UserID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Cabin" || !updated.OwnedBy(f.other.UserID) {
		t.Errorf("unexpected location %+v", updated)
	}
	if updated.Lat != loc.Lat {
		t.Errorf("untouched fields must be kept, lat=%v", updated.Lat)
	}

	if _, err := svc.Update(ctx, f.employee, loc.ID, ports.UpdateLocationInput{OwnerID: ptr(f.admin.UserID)}); !errors.Is(err, domain.ErrOwnerMustBeConsumer) {
		t.Errorf("admin owner: expected ErrOwnerMustBeConsumer, got %v", err)
	}
	if _, err := svc.Update(ctx, f.consumer, loc.ID, ports.UpdateLocationInput{Name: ptr("x")}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("consumer update: expected ErrForbidden, got %v", err)
	}
}

func TestLocationService_Delete(t *testing.T) {
	f := newFixture()
	svc := newTestLocationService(f)
	ctx := context.Background()
	busy := f.addLocation("Busy", 0)
	empty := f.addLocation("Empty", 0)
	f.addMeter("871234", domain.MeterGas, 10, busy.ID)

	if err := svc.Delete(ctx, f.employee, busy.ID); !errors.Is(err, domain.ErrLocationHasMeters) {
		t.Errorf("expected ErrLocationHasMeters, got %v", err)
	}
	if err := svc.Delete(ctx, f.employee, empty.ID); err != nil {
		t.Errorf("delete empty: %v", err)
	}
	if err := svc.Delete(ctx, f.employee, empty.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLocationService_Delete_AfterSoleMeterRemoved(t *testing.T) {
	f := newFixture()
	locations := newTestLocationService(f)
	meters := newTestMeterService(f)
	ctx := context.Background()
	loc := f.addLocation("Depot", 0)
	f.addMeter("871999", domain.MeterWater, 3, loc.ID)

	if err := locations.Delete(ctx, f.employee, loc.ID); !errors.Is(err, domain.ErrLocationHasMeters) {
		t.Fatalf("with meter: expected ErrLocationHasMeters, got %v", err)
	}
	if err := meters.Delete(ctx, f.admin, "871999"); err != nil {
		t.Fatalf("delete meter: %v", err)
	}
	if err := locations.Delete(ctx, f.employee, loc.ID); err != nil {
		t.Fatalf("after meter removal: %v", err)
	}
	if _, err := f.locations.FindByID(ctx, loc.ID); !errors.Is(err, domain.ErrLocationNotFound) {
		t.Errorf("location should be gone, got %v", err)
	}
}
