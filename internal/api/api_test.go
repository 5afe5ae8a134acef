package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
	"github.com/good-yellow-bee/crowdwatch/internal/hub"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/predictor"
	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

// testServer creates a test server backed by a temp-dir SQLite database.
func testServer(t *testing.T) (*Server, storage.Storage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		t.Fatalf("migrate storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := hub.New(hub.DefaultOptions())
	coord := crowd.NewCoordinator(store, h, crowd.NewPolicyHolder(crowd.DefaultPolicy()))

	pred := predictor.NewService()
	pred.Load(predictor.HeuristicModel{})

	cfg := &Config{
		Address:          ":0",
		JWTSecret:        []byte("test-jwt-secret-32-bytes-long!!"),
		AccessTokenTTL:   15 * time.Minute,
		RateLimitPerIP:   100,
		RateLimitPerUser: 100,
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
	}

	srv, err := New(cfg, store, coord, h, pred)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	return srv, store
}

// createTestUser creates a user in the database for testing
func createTestUser(t *testing.T, store storage.Storage, username, password string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.NewUser(username, username+"@test.com", role)
	user.ID = "test-" + username
	user.PasswordHash = string(hash)

	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return user
}

// createTestEvent inserts an event directly into the database.
func createTestEvent(t *testing.T, store storage.Storage, name string, safe, crowded int) *models.Event {
	t.Helper()

	event := models.NewEvent(name, safe, crowded)
	event.ID = uuid.New().String()
	event.QRToken = uuid.New().String()

	if err := store.Events().Create(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	return event
}

// login authenticates and returns the access token.
func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Data.AccessToken
}

// handler returns the HTTP handler for the server
func handler(srv *Server) http.Handler {
	return srv.server.Handler
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLogin_Success(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleViewer)

	body := `{"username":"testuser","password":"TestPassword123!"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
			TokenType   string `json:"token_type"`
			Role        string `json:"role"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.AccessToken == "" {
		t.Error("expected non-empty access_token")
	}
	if resp.Data.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.Data.TokenType)
	}
	if resp.Data.Role != "viewer" {
		t.Errorf("role = %q, want viewer", resp.Data.Role)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleViewer)

	body := `{"username":"testuser","password":"wrongpassword"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"username":"nonexistent","password":"password"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProtectedEndpoint_NoToken(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProtectedEndpoint_WithToken(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "testuser", "TestPassword123!", models.RoleViewer)
	token := login(t, srv, "testuser", "TestPassword123!")

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestAdminEndpoint_NonAdmin(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	token := login(t, srv, "viewer", "TestPassword123!")

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAdminEndpoint_Admin(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "admin", "TestPassword123!", models.RoleAdmin)
	token := login(t, srv, "admin", "TestPassword123!")

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestEventCreate_Manager(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "manager", "TestPassword123!", models.RoleManager)
	token := login(t, srv, "manager", "TestPassword123!")

	body := `{"name":"Main Hall","date":"2026-09-01","safe_threshold":100,"crowded_threshold":200}`
	req := httptest.NewRequest("POST", "/api/v1/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			QRToken string `json:"qr_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ID == "" {
		t.Error("expected non-empty event id")
	}
	if resp.Data.QRToken == "" {
		t.Error("expected QR token in create response for manager")
	}
}

func TestEventCreate_ViewerForbidden(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	token := login(t, srv, "viewer", "TestPassword123!")

	body := `{"name":"Main Hall","safe_threshold":100,"crowded_threshold":200}`
	req := httptest.NewRequest("POST", "/api/v1/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestEventList_ViewerSeesNoQRToken(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "viewer", "TestPassword123!")

	req := httptest.NewRequest("GET", "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data []struct {
			Name    string `json:"name"`
			QRToken string `json:"qr_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("events = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].QRToken != "" {
		t.Error("viewer response should not include QR token")
	}
}

func TestIngest_HappyPath(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "sensor1", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "sensor1", "TestPassword123!")

	body := `{"headcount":42,"source":"sensor"}`
	req := httptest.NewRequest("POST", "/api/v1/events/"+event.ID+"/headcount", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Snapshot struct {
				Headcount int    `json:"headcount"`
				Source    string `json:"source"`
			} `json:"snapshot"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Snapshot.Headcount != 42 {
		t.Errorf("headcount = %d, want 42", resp.Data.Snapshot.Headcount)
	}
	if resp.Data.Status != "Green" {
		t.Errorf("status = %q, want Green", resp.Data.Status)
	}
}

func TestIngest_NegativeHeadcount(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "sensor1", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "sensor1", "TestPassword123!")

	body := `{"headcount":-5,"source":"sensor"}`
	req := httptest.NewRequest("POST", "/api/v1/events/"+event.ID+"/headcount", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestIngest_UnknownEvent(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "sensor1", "TestPassword123!", models.RoleViewer)
	token := login(t, srv, "sensor1", "TestPassword123!")

	body := `{"headcount":42,"source":"sensor"}`
	req := httptest.NewRequest("POST", "/api/v1/events/"+uuid.New().String()+"/headcount", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestIngest_CapacityAlert(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "sensor1", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "sensor1", "TestPassword123!")

	body := `{"headcount":250,"source":"sensor"}`
	req := httptest.NewRequest("POST", "/api/v1/events/"+event.ID+"/headcount", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Status string `json:"status"`
			Alert  *struct {
				Type string `json:"alert_type"`
			} `json:"alert"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Status != "Red" {
		t.Errorf("status = %q, want Red", resp.Data.Status)
	}
	if resp.Data.Alert == nil || resp.Data.Alert.Type != string(models.AlertCapacity) {
		t.Errorf("alert = %+v, want capacity alert", resp.Data.Alert)
	}

	// Alert is visible through the alerts listing
	listReq := httptest.NewRequest("GET", "/api/v1/alerts?event_id="+event.ID, nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	handler(srv).ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("alert list status = %d; body: %s", listRec.Code, listRec.Body.String())
	}
	var listResp struct {
		Data []struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode alert list: %v", err)
	}
	if len(listResp.Data) != 1 {
		t.Fatalf("alerts = %d, want 1", len(listResp.Data))
	}
}

func TestScan_IncrementsHeadcount(t *testing.T) {
	srv, store := testServer(t)

	event := createTestEvent(t, store, "Main Hall", 100, 200)

	for i := 1; i <= 2; i++ {
		req := httptest.NewRequest("POST", "/api/v1/scan/"+event.QRToken, nil)
		rec := httptest.NewRecorder()
		handler(srv).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("scan %d status = %d; body: %s", i, rec.Code, rec.Body.String())
		}

		var resp struct {
			Data struct {
				EventName string `json:"event_name"`
				Headcount int    `json:"headcount"`
			} `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode scan response: %v", err)
		}
		if resp.Data.Headcount != i {
			t.Errorf("scan %d headcount = %d, want %d", i, resp.Data.Headcount, i)
		}
	}
}

func TestScan_UnknownToken(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/v1/scan/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStatus_LiveFromFreshSnapshot(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "viewer", "TestPassword123!")

	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Headcount: 150,
		Source:    models.SourceSensor,
		Timestamp: time.Now(),
	}
	if err := store.Snapshots().Append(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/events/"+event.ID+"/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Headcount int    `json:"headcount"`
			Status    string `json:"status"`
			Source    string `json:"source"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Source != "live" {
		t.Errorf("source = %q, want live", resp.Data.Source)
	}
	if resp.Data.Headcount != 150 {
		t.Errorf("headcount = %d, want 150", resp.Data.Headcount)
	}
	if resp.Data.Status != "Yellow" {
		t.Errorf("status = %q, want Yellow", resp.Data.Status)
	}
}

func TestStatus_PredictedWhenStale(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "viewer", "TestPassword123!")

	// Snapshot far older than the status fallback age
	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Headcount: 150,
		Source:    models.SourceSensor,
		Timestamp: time.Now().Add(-2 * time.Hour),
	}
	if err := store.Snapshots().Append(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/events/"+event.ID+"/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Source string `json:"source"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Source != "predicted" {
		t.Errorf("source = %q, want predicted", resp.Data.Source)
	}
}

func TestHistory_ReturnsTimestampOrder(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "viewer", "TestPassword123!")

	base := time.Now().Add(-10 * time.Minute)
	counts := []int{10, 20, 30}
	for i, c := range counts {
		snap := &models.Snapshot{
			ID:        uuid.New().String(),
			EventID:   event.ID,
			Headcount: c,
			Source:    models.SourceSensor,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Snapshots().Append(context.Background(), snap); err != nil {
			t.Fatalf("seed snapshot: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/events/"+event.ID+"/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []struct {
			Headcount int `json:"headcount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(resp.Data))
	}
	for i, c := range counts {
		if resp.Data[i].Headcount != c {
			t.Errorf("snapshot[%d].headcount = %d, want %d", i, resp.Data[i].Headcount, c)
		}
	}
}

func TestValidate_RequiresManager(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "viewer", "TestPassword123!", models.RoleViewer)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "viewer", "TestPassword123!")

	req := httptest.NewRequest("POST", "/api/v1/events/"+event.ID+"/validate", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestValidate_SetsLastValidated(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "manager", "TestPassword123!", models.RoleManager)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "manager", "TestPassword123!")

	req := httptest.NewRequest("POST", "/api/v1/events/"+event.ID+"/validate", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	updated, err := store.Events().GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if updated.LastValidatedAt == nil {
		t.Error("expected LastValidatedAt to be set")
	}
}

func TestAlertAck_RecordsUser(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "manager", "TestPassword123!", models.RoleManager)
	event := createTestEvent(t, store, "Main Hall", 100, 200)
	token := login(t, srv, "manager", "TestPassword123!")

	alert := &models.Alert{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Type:      models.AlertCapacity,
		Message:   "over capacity",
		CreatedAt: time.Now(),
	}
	if err := store.Alerts().Create(context.Background(), alert); err != nil {
		t.Fatalf("seed alert: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/alerts/"+alert.ID+"/ack", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	got, err := store.Alerts().GetByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("reload alert: %v", err)
	}
	if got.AcknowledgedBy != "manager" {
		t.Errorf("acknowledged_by = %q, want manager", got.AcknowledgedBy)
	}
}

func TestEventDelete_AdminOnly(t *testing.T) {
	srv, store := testServer(t)

	createTestUser(t, store, "manager", "TestPassword123!", models.RoleManager)
	createTestUser(t, store, "admin", "TestPassword123!", models.RoleAdmin)
	event := createTestEvent(t, store, "Main Hall", 100, 200)

	managerToken := login(t, srv, "manager", "TestPassword123!")
	req := httptest.NewRequest("DELETE", "/api/v1/events/"+event.ID, nil)
	req.Header.Set("Authorization", "Bearer "+managerToken)
	rec := httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("manager delete status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	adminToken := login(t, srv, "admin", "TestPassword123!")
	req = httptest.NewRequest("DELETE", "/api/v1/events/"+event.ID, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler(srv).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("admin delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
