package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/meridian/er/internal/config"
	"github.com/meridian/er/internal/domain/reference"
	"github.com/meridian/er/internal/platform/auth"
	"github.com/meridian/er/internal/platform/events"
	"github.com/meridian/er/internal/platform/resources"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:                env,
		ReferenceSource:    config.SourceCSV,
		CORSOrigins:        []string{"http://localhost:3000"},
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		RequestTimeout:     5 * time.Second,
		BodyLimit:          "1M",
		JWTSigningKey:      "server-test-key",
		SimulationMaxSteps: 500,
	}
}

func testStore() *resources.Store {
	wait := 30.0
	return &resources.Store{
		Visits: []reference.VisitRecord{
			{VisitID: "V1", PatientID: "P1", TriageLevel: reference.TriageUrgent, WaitToDoctorMin: &wait},
			{VisitID: "V2", PatientID: "P2", TriageLevel: reference.TriageEmergency, WaitToDoctorMin: &wait},
		},
	}
}

func do(t *testing.T, env, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	e := newServer(serverDeps{
		cfg:    testConfig(env),
		store:  testStore(),
		pub:    events.NopPublisher{},
		logger: zerolog.Nop(),
	})
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	rec := do(t, "development", http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != rootMessage {
		t.Errorf("message = %q", body["message"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestHealth_ReportsResources(t *testing.T) {
	rec := do(t, "development", http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"visits":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAnalyticsKPIsMounted(t *testing.T) {
	rec := do(t, "development", http.MethodGet, "/analytics/kpis", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"totalPatients":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestSimulationMounted_EmptyRange(t *testing.T) {
	body := `{"Visit_Day":"Monday","Shift":"Day","Triage_Level":"Urgent","patient_volume":40,
		"min_doctors":5,"max_doctors":4,"min_nurses":3,"max_nurses":6,"variable_resource":"doctors"}`
	rec := do(t, "development", http.MethodPost, "/predict/wait_time_simulation", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestUnknownRoute_DetailBody(t *testing.T) {
	rec := do(t, "development", http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"detail"`) {
		t.Errorf("expected detail body, got %s", rec.Body.String())
	}
}

func TestTicketStatus_DevModeAllowed(t *testing.T) {
	rec := do(t, "development", http.MethodPut, "/tickets/1/status?status=called", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTicketStatus_RequiresToken(t *testing.T) {
	rec := do(t, "production", http.MethodPut, "/tickets/1/status?status=called", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTicketStatus_StaffToken(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "nurse-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{auth.RoleStaff},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	h := http.Header{"Authorization": []string{"Bearer " + tok}}
	rec := do(t, "production", http.MethodPut, "/tickets/2/status?status=completed", "", h)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTicketStatus_NonStaffTokenForbidden(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kiosk-3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"patient"},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	h := http.Header{"Authorization": []string{"Bearer " + tok}}
	rec := do(t, "production", http.MethodPut, "/tickets/2/status?status=completed", "", h)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTicketIssue_PublicInProduction(t *testing.T) {
	rec := do(t, "production", http.MethodPost, "/tickets", `{"patientName":"Ada","triageLevel":3}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"queueNumber":104`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
