package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/service"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Mock services for handler tests

type mockProjectService struct {
	project  *models.Project
	projects []*models.Project
	err      error
}

func (m *mockProjectService) CreateProject(ctx context.Context, input *service.CreateProjectInput) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.project, nil
}

func (m *mockProjectService) GetProject(ctx context.Context, projectID, userID string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.project, nil
}

func (m *mockProjectService) UpdateProject(ctx context.Context, input *service.UpdateProjectInput) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.project, nil
}

func (m *mockProjectService) DeleteProject(ctx context.Context, projectID, userID string) (*service.DeleteProjectResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.DeleteProjectResult{Success: true, ProjectID: projectID}, nil
}

func (m *mockProjectService) ListProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.projects, nil
}

type mockTransactionService struct {
	tx           *models.Transaction
	transactions []*models.Transaction
	err          error
}

func (m *mockTransactionService) CreateTransaction(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

func (m *mockTransactionService) ListTransactions(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transactions, nil
}

type mockDashboardService struct {
	snapshot *models.PortfolioSnapshot
	err      error
}

func (m *mockDashboardService) Snapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func createTestServer(projects *mockProjectService, transactions *mockTransactionService, dashboard *mockDashboardService) *Server {
	if projects == nil {
		projects = &mockProjectService{}
	}
	if transactions == nil {
		transactions = &mockTransactionService{}
	}
	if dashboard == nil {
		dashboard = &mockDashboardService{snapshot: models.EmptySnapshot()}
	}

	return NewServer(&ServerConfig{
		Host:             "localhost",
		Port:             "0",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		IdleTimeout:      5 * time.Second,
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		KeepStaleOnError: true,
	}, projects, transactions, dashboard, nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCreateProject_MissingUserID(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{"name": "Downtown Office"})
	req := httptest.NewRequest("POST", "/api/projects", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestCreateProject_InvalidJSON(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/projects", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCreateProject_Success(t *testing.T) {
	projects := &mockProjectService{
		project: &models.Project{
			ID:                 "p1",
			UserID:             "user-123",
			Name:               "Downtown Office",
			Location:           "Springfield",
			ProjectType:        "commercial",
			BaseContractAmount: decimal.RequireFromString("250000"),
		},
	}
	server := createTestServer(projects, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"name":               "Downtown Office",
		"location":           "Springfield",
		"projectType":        "commercial",
		"baseContractAmount": "250000",
	})
	req := httptest.NewRequest("POST", "/api/projects", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Project
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.ID != "p1" {
		t.Errorf("Expected project id p1, got %s", created.ID)
	}
}

func TestCreateProject_ValidationError(t *testing.T) {
	projects := &mockProjectService{
		err: &types.ServiceError{Code: types.ErrCodeValidation, Message: "project name is required"},
	}
	server := createTestServer(projects, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{"name": ""})
	req := httptest.NewRequest("POST", "/api/projects", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	projects := &mockProjectService{
		err: &types.ServiceError{Code: types.ErrCodeNotFound, Message: "project not found or access denied"},
	}
	server := createTestServer(projects, nil, nil)

	req := httptest.NewRequest("GET", "/api/projects/missing", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateTransaction_NotAuthorized(t *testing.T) {
	transactions := &mockTransactionService{
		err: &types.ServiceError{Code: types.ErrCodeNotAuthorized, Message: "project not owned by user"},
	}
	server := createTestServer(nil, transactions, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"projectId":   "p1",
		"kind":        "credit",
		"amount":      "5000",
		"description": "milestone payment",
	})
	req := httptest.NewRequest("POST", "/api/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "intruder")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestCreateTransaction_BadDateFormat(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"projectId":       "p1",
		"kind":            "debit",
		"amount":          "42.50",
		"description":     "lumber",
		"transactionDate": "23/08/2026",
	})
	req := httptest.NewRequest("POST", "/api/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestUnauthenticatedMalformedBodyIsUnauthorized(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	// Identity is checked before the body is read, so a garbage body on an
	// unauthenticated request must still report the missing identity.
	cases := []struct {
		method string
		path   string
	}{
		{"POST", "/api/projects"},
		{"PUT", "/api/projects/p1"},
		{"POST", "/api/transactions"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewReader([]byte("not json")))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestWatchDashboard_MissingUserID(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/dashboard/watch", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestWatchDashboard_StreamsReadyEvent(t *testing.T) {
	snapshot := models.EmptySnapshot()
	snapshot.TotalProjects = 1
	snapshot.TotalPortfolioBalance = decimal.RequireFromString("3500")
	server := createTestServer(nil, nil, &mockDashboardService{snapshot: snapshot})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/dashboard/watch", nil).WithContext(ctx)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		server.router.ServeHTTP(w, req)
		close(done)
	}()

	// The stream runs until the client goes away; give the initial refresh
	// time to land, then disconnect.
	time.AfterFunc(200*time.Millisecond, cancel)
	<-done

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type text/event-stream, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"state":"ready"`) {
		t.Errorf("Expected a ready event on the stream, got %q", body)
	}
	if !strings.Contains(body, `"totalProjects":1`) {
		t.Errorf("Expected the snapshot in the event payload, got %q", body)
	}
}

func TestWatchDashboard_StreamsFailureState(t *testing.T) {
	server := createTestServer(nil, nil, &mockDashboardService{
		err: &types.ServiceError{Code: types.ErrCodeTransientIO, Message: "connection reset"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/dashboard/watch", nil).WithContext(ctx)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		server.router.ServeHTTP(w, req)
		close(done)
	}()

	time.AfterFunc(200*time.Millisecond, cancel)
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"state":"failed"`) {
		t.Errorf("Expected a failed event on the stream, got %q", body)
	}
	if !strings.Contains(body, "connection reset") {
		t.Errorf("Expected the refresh error in the event payload, got %q", body)
	}
}

func TestGetDashboard(t *testing.T) {
	snapshot := models.EmptySnapshot()
	snapshot.TotalProjects = 2
	snapshot.TotalPortfolioBalance = decimal.RequireFromString("3500")
	server := createTestServer(nil, nil, &mockDashboardService{snapshot: snapshot})

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got models.PortfolioSnapshot
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.TotalProjects != 2 {
		t.Errorf("Expected 2 projects, got %d", got.TotalProjects)
	}
	if !got.TotalPortfolioBalance.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("Expected balance 3500, got %s", got.TotalPortfolioBalance)
	}
}

func TestGetDashboard_TransientError(t *testing.T) {
	server := createTestServer(nil, nil, &mockDashboardService{
		err: &types.ServiceError{Code: types.ErrCodeTransientIO, Message: "connection reset"},
	})

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestErrorResponseFormat(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/projects", bytes.NewReader([]byte("invalid")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	var errorResp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if _, ok := errorResp["error"]; !ok {
		t.Error("Expected 'error' field in error response")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	server := NewServer(&ServerConfig{
		Host:           "localhost",
		Port:           "0",
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}, &mockProjectService{}, &mockTransactionService{}, &mockDashboardService{snapshot: models.EmptySnapshot()}, nil)

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-User-ID", "user-123")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited = true
		}
	}

	if !limited {
		t.Error("Expected at least one request to be rate limited")
	}
}

func TestConcurrentRequests(t *testing.T) {
	server := createTestServer(nil, nil, nil)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
