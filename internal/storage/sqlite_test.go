package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "crowdwatch-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func createTestEvent(t *testing.T, store *SQLiteStorage) *models.Event {
	t.Helper()
	event := models.NewEvent("Summer Festival", 100, 200)
	event.ID = uuid.New().String()
	if err := store.Events().Create(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Verify tables exist by querying them
	tables := []string{"users", "events", "snapshots", "alerts", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestEventRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	event := createTestEvent(t, store)

	if event.QRToken == "" {
		t.Error("Create should assign a QR token")
	}

	// GetByID
	got, err := store.Events().GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got == nil {
		t.Fatal("event should exist")
	}
	if got.Name != "Summer Festival" {
		t.Errorf("Name = %q, want %q", got.Name, "Summer Festival")
	}
	if got.SafeThreshold != 100 || got.CrowdedThreshold != 200 {
		t.Errorf("thresholds = %d/%d, want 100/200", got.SafeThreshold, got.CrowdedThreshold)
	}
	if got.LastValidatedAt != nil {
		t.Error("LastValidatedAt should be nil for a new event")
	}

	// GetByQRToken
	byToken, err := store.Events().GetByQRToken(ctx, event.QRToken)
	if err != nil {
		t.Fatalf("get by qr token: %v", err)
	}
	if byToken == nil || byToken.ID != event.ID {
		t.Error("GetByQRToken should resolve the event")
	}

	// Update
	got.CrowdedThreshold = 300
	got.UpdatedAt = time.Now()
	if err := store.Events().Update(ctx, got); err != nil {
		t.Fatalf("update event: %v", err)
	}
	updated, _ := store.Events().GetByID(ctx, event.ID)
	if updated.CrowdedThreshold != 300 {
		t.Errorf("CrowdedThreshold = %d, want 300", updated.CrowdedThreshold)
	}

	// SetLastValidated
	now := time.Now().Truncate(time.Second)
	if err := store.Events().SetLastValidated(ctx, event.ID, now); err != nil {
		t.Fatalf("set last validated: %v", err)
	}
	validated, _ := store.Events().GetByID(ctx, event.ID)
	if validated.LastValidatedAt == nil {
		t.Fatal("LastValidatedAt should be set")
	}

	// Delete
	if err := store.Events().Delete(ctx, event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	gone, err := store.Events().GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("get deleted event: %v", err)
	}
	if gone != nil {
		t.Error("event should be deleted")
	}
}

func TestEventRepository_GetMissing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := store.Events().GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("get missing event: %v", err)
	}
	if got != nil {
		t.Error("missing event should return nil, nil")
	}
}

func TestSnapshotRepository_AppendAndLatest(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	event := createTestEvent(t, store)

	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	counts := []int{50, 80, 120}
	for i, c := range counts {
		snap := &models.Snapshot{
			ID:        uuid.New().String(),
			EventID:   event.ID,
			Headcount: c,
			Source:    models.SourceQR,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Snapshots().Append(ctx, snap); err != nil {
			t.Fatalf("append snapshot: %v", err)
		}
	}

	latest, err := store.Snapshots().Latest(ctx, event.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Headcount != 120 {
		t.Fatalf("Latest headcount = %v, want 120", latest)
	}

	count, err := store.Snapshots().Count(ctx, event.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestSnapshotRepository_OrdersByTimestampNotArrival(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	event := createTestEvent(t, store)
	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	// Insert out of timestamp order: t=3, t=1, t=2
	for _, offset := range []int{3, 1, 2} {
		snap := &models.Snapshot{
			ID:        uuid.New().String(),
			EventID:   event.ID,
			Headcount: offset * 10,
			Source:    models.SourceSensor,
			Timestamp: base.Add(time.Duration(offset) * time.Minute),
		}
		if err := store.Snapshots().Append(ctx, snap); err != nil {
			t.Fatalf("append snapshot: %v", err)
		}
	}

	snaps, err := store.Snapshots().Recent(ctx, event.ID, base, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("len = %d, want 3", len(snaps))
	}
	for i, want := range []int{10, 20, 30} {
		if snaps[i].Headcount != want {
			t.Errorf("snaps[%d].Headcount = %d, want %d", i, snaps[i].Headcount, want)
		}
	}

	// LatestBefore t=3 must be t=2, not insertion-latest
	prev, err := store.Snapshots().LatestBefore(ctx, event.ID, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("latest before: %v", err)
	}
	if prev == nil || prev.Headcount != 20 {
		t.Fatalf("LatestBefore = %v, want headcount 20", prev)
	}
}

func TestSnapshotRepository_CascadeDelete(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	event := createTestEvent(t, store)
	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Headcount: 10,
		Source:    models.SourceAdmin,
		Timestamp: time.Now(),
	}
	if err := store.Snapshots().Append(ctx, snap); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}

	if err := store.Events().Delete(ctx, event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}

	count, err := store.Snapshots().Count(ctx, event.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("snapshots should cascade-delete, got %d", count)
	}
}

func TestAlertRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	event := createTestEvent(t, store)

	alert := &models.Alert{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Type:      models.AlertCapacity,
		Message:   "Capacity reached: 250 >= 200",
		CreatedAt: time.Now(),
	}
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got == nil || got.Type != models.AlertCapacity {
		t.Fatalf("alert = %v, want capacity alert", got)
	}
	if got.Resolved {
		t.Error("new alert should be unresolved")
	}

	// Acknowledge
	if err := store.Alerts().Acknowledge(ctx, alert.ID, "admin"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	acked, _ := store.Alerts().GetByID(ctx, alert.ID)
	if acked.AcknowledgedBy != "admin" {
		t.Errorf("AcknowledgedBy = %q, want %q", acked.AcknowledgedBy, "admin")
	}

	// Resolve
	if err := store.Alerts().Resolve(ctx, alert.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolved, _ := store.Alerts().GetByID(ctx, alert.ID)
	if !resolved.Resolved {
		t.Error("alert should be resolved")
	}

	// Filtered listing
	unresolvedOnly := false
	list, err := store.Alerts().List(ctx, AlertFilter{EventID: event.ID, Resolved: &unresolvedOnly})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("unresolved list = %d entries, want 0", len(list))
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := models.NewUser("operator", "op@example.com", models.RoleManager)
	user.ID = uuid.New().String()
	user.PasswordHash = "notahash"

	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := store.Users().GetByUsername(ctx, "operator")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got == nil || got.Role != models.RoleManager {
		t.Fatalf("user = %v, want manager role", got)
	}

	count, _ := store.Users().Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
}

func TestEnsureAdminUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	admin, err := store.Users().GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin == nil || !admin.IsAdmin() {
		t.Fatal("bootstrap admin user should exist with admin role")
	}

	// Second call is a no-op
	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("second ensure admin: %v", err)
	}
	count, _ := store.Users().Count(context.Background())
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}
