package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Laptop", 3, testNow)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Name != "Laptop" {
		t.Errorf("expected name 'Laptop', got %q", item.Name)
	}
	if item.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", item.Quantity)
	}
	if !item.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at %v, got %v", testNow, item.CreatedAt)
	}

	missing, err := GetItem(ctx, database, item.ID+100)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestNegativeQuantityRejectedBySchema(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateItem(ctx, database, "Broken", -1, testNow); err == nil {
		t.Error("expected CHECK constraint to reject negative quantity")
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Camera", 1, testNow)
	later := testNow.Add(time.Hour)
	if err := UpdateItem(ctx, database, item.ID, "Camera kit", 4, later); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Camera kit" || got.Quantity != 4 {
		t.Errorf("expected updated item, got %+v", got)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("expected updated_at %v, got %v", later, got.UpdatedAt)
	}
}

func TestDeleteItemKeepsRequests(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Tripod", 1, testNow)
	req, _ := CreateRequest(ctx, database, item.ID, "ana@example.com", testNow)

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got != nil {
		t.Error("expected item to be gone after hard delete")
	}

	orphan, err := GetRequest(ctx, database, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if orphan == nil {
		t.Fatal("expected request to survive item deletion")
	}
	if orphan.ItemName != "" {
		t.Errorf("expected empty item name for orphaned request, got %q", orphan.ItemName)
	}
}

func TestListItemsWithAvailability(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	projector, _ := CreateItem(ctx, database, "Projector", 2, testNow)
	cable, _ := CreateItem(ctx, database, "Cable", 5, testNow)

	r1, _ := CreateRequest(ctx, database, projector.ID, "a@example.com", testNow)
	r2, _ := CreateRequest(ctx, database, projector.ID, "b@example.com", testNow)
	r3, _ := CreateRequest(ctx, database, cable.ID, "c@example.com", testNow)
	CreateRequest(ctx, database, cable.ID, "d@example.com", testNow) // stays pending

	SetRequestStatus(ctx, database, r1.ID, model.StatusApproved, testNow)
	SetRequestStatus(ctx, database, r2.ID, model.StatusApproved, testNow)
	MarkRequestReturned(ctx, database, r2.ID, testNow)
	SetRequestStatus(ctx, database, r3.ID, model.StatusDenied, testNow)

	items, err := ListItemsWithAvailability(ctx, database)
	if err != nil {
		t.Fatalf("ListItemsWithAvailability: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	byID := map[int64]model.ItemAvailability{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if got := byID[projector.ID].Available; got != 1 {
		t.Errorf("expected projector available 1, got %d", got)
	}
	if got := byID[cable.ID].Available; got != 5 {
		t.Errorf("expected cable available 5, got %d", got)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Photo Item", 1, testNow)
	imageData := []byte("fake image data")
	SetItemImage(ctx, database, item.ID, imageData, "image/jpeg", testNow)

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if !got.HasImage() {
		t.Error("expected item to report an image")
	}
}
