package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpas-edu/carpas/internal/application/command"
	"github.com/carpas-edu/carpas/internal/application/query"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/memory"
	"github.com/carpas-edu/carpas/internal/interface/http/handlers"
)

// newTestServer wires a full API server onto the in-memory store.
func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })

	deps := Dependencies{
		CreateStudentHandler:      command.NewCreateStudentHandler(store),
		UpdateStudentHandler:      command.NewUpdateStudentHandler(store),
		DeleteStudentHandler:      command.NewDeleteStudentHandler(store),
		CreateCourseHandler:       command.NewCreateCourseHandler(store),
		UpdateCourseHandler:       command.NewUpdateCourseHandler(store),
		DeleteCourseHandler:       command.NewDeleteCourseHandler(store),
		EnrollStudentHandler:      command.NewEnrollStudentHandler(store),
		WithdrawEnrollmentHandler: command.NewWithdrawEnrollmentHandler(store),
		RecordAttendanceHandler:   command.NewRecordAttendanceHandler(store),
		AddMarkHandler:            command.NewAddMarkHandler(store),
		RemoveMarkHandler:         command.NewRemoveMarkHandler(store),

		ListStudentsHandler:          query.NewListStudentsHandler(store),
		ListCoursesHandler:           query.NewListCoursesHandler(store),
		GetStudentSummaryHandler:     query.NewGetStudentSummaryHandler(store),
		GetCoursePerformanceHandler:  query.NewGetCoursePerformanceHandler(store),
		GetEnrollmentProgressHandler: query.NewGetEnrollmentProgressHandler(store),
		FindAtRiskHandler:            query.NewFindAtRiskHandler(store),

		HealthChecker: handlers.NewNoopHealthChecker(),
	}

	srv := NewServer(cfg, deps)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with an optional JSON body and decodes the envelope.
func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}) (int, JSONResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope JSONResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func dataField(t *testing.T, envelope JSONResponse, key string) interface{} {
	t.Helper()
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok, "data is not an object: %#v", envelope.Data)
	return data[key]
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		status, envelope := doJSON(t, ts.Client(), http.MethodGet, ts.URL+path, nil)
		assert.Equal(t, http.StatusOK, status, path)
		assert.True(t, envelope.Success, path)
	}
}

func TestStudentLifecycle(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := ts.Client()

	// Create
	status, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "CS2021001",
		"full_name": "Alice Johnson",
		"semester":  3,
	})
	require.Equal(t, http.StatusCreated, status)
	id, _ := dataField(t, envelope, "id").(string)
	require.NotEmpty(t, id)

	// Duplicate roll number conflicts
	status, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "cs2021001",
		"full_name": "Impostor",
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "conflict", envelope.Error.Code)

	// Invalid payload fails validation
	status, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "CS2021002",
		"full_name": "",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// Update
	status, envelope = doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/students/"+id, map[string]interface{}{
		"department": "Computer Science",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Computer Science", dataField(t, envelope, "department"))
	assert.Equal(t, "CS2021001", dataField(t, envelope, "roll_no"))

	// List
	status, envelope = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/students?search=alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), dataField(t, envelope, "total_count"))

	// Summary by roll number
	status, envelope = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/students/CS2021001/summary?by=roll_no", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), dataField(t, envelope, "enrollment_count"))

	// Delete
	status, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/students/"+id, nil)
	require.Equal(t, http.StatusOK, status)

	// Gone now
	status, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/students/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEnrollmentFlow(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := ts.Client()

	_, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "CS2021001",
		"full_name": "Alice Johnson",
	})
	studentID, _ := dataField(t, envelope, "id").(string)

	_, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/courses", map[string]interface{}{
		"code":    "CS301",
		"title":   "Operating Systems",
		"credits": 4,
	})
	courseID, _ := dataField(t, envelope, "id").(string)

	// Enroll
	status, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments", map[string]interface{}{
		"student_id":  studentID,
		"course_id":   courseID,
		"enrolled_on": "2026-08-01",
	})
	require.Equal(t, http.StatusCreated, status)
	enrollmentID, _ := dataField(t, envelope, "id").(string)
	require.NotEmpty(t, enrollmentID)

	// Enrolling twice conflicts
	status, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments", map[string]interface{}{
		"student_id": studentID,
		"course_id":  courseID,
	})
	assert.Equal(t, http.StatusConflict, status)

	// Record attendance
	status, envelope = doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/attendance", map[string]interface{}{
		"total_classes":    20,
		"attended_classes": 12,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(60), dataField(t, envelope, "percent"))

	// Attendance above total fails validation
	status, _ = doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/attendance", map[string]interface{}{
		"total_classes":    5,
		"attended_classes": 9,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// Add a mark
	status, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/marks", map[string]interface{}{
		"assessment": "Mid Sem",
		"obtained":   30,
		"max_score":  100,
	})
	require.Equal(t, http.StatusCreated, status)
	markID, _ := dataField(t, envelope, "id").(string)

	// Progress reflects both
	status, envelope = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/progress", nil)
	require.Equal(t, http.StatusOK, status)
	progress, ok := dataField(t, envelope, "progress").(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(60), progress["attendance_percent"])
	assert.Equal(t, float64(30), progress["marks_percent"])

	// Same progress addressable by pair
	status, _ = doJSON(t, client, http.MethodGet,
		ts.URL+"/api/v1/enrollments/progress?student_id="+studentID+"&course_id="+courseID, nil)
	assert.Equal(t, http.StatusOK, status)

	// At risk: 60% attendance and 30% marks are both below the defaults
	status, envelope = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/analytics/at-risk", nil)
	require.Equal(t, http.StatusOK, status)
	entries, ok := dataField(t, envelope, "entries").([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)

	// Course performance aggregates
	status, envelope = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/courses/CS301/performance?by=code", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), dataField(t, envelope, "enrolled_count"))
	assert.Equal(t, float64(30), dataField(t, envelope, "average_marks_percent"))

	// Remove the mark, then withdraw
	status, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/marks/"+markID, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/enrollments/"+enrollmentID, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/progress", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteStudentCascadeQueryParam(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := ts.Client()

	_, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "CS2021001",
		"full_name": "Alice Johnson",
	})
	studentID, _ := dataField(t, envelope, "id").(string)

	_, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/courses", map[string]interface{}{
		"code":  "CS301",
		"title": "Operating Systems",
	})
	courseID, _ := dataField(t, envelope, "id").(string)

	_, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments", map[string]interface{}{
		"student_id": studentID,
		"course_id":  courseID,
	})

	// Without cascade the delete is rejected
	status, _ := doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/students/"+studentID, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, envelope = doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/students/"+studentID+"?cascade=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), dataField(t, envelope, "removed_enrollments"))
}

func TestWriteEndpointsRequireAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKeys = []string{"secret"}
	ts := newTestServer(t, cfg)
	client := ts.Client()

	// Reads stay open
	status, _ := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/students", nil)
	assert.Equal(t, http.StatusOK, status)

	// Writes without a key are rejected
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/students",
		bytes.NewReader([]byte(`{"roll_no":"CS2021001","full_name":"Alice"}`)))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// With the key they pass
	req, err = http.NewRequest(http.MethodPost, ts.URL+"/api/v1/students",
		bytes.NewReader([]byte(`{"roll_no":"CS2021001","full_name":"Alice"}`)))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestMarkMaxScoreDefaults(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	client := ts.Client()

	_, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/students", map[string]interface{}{
		"roll_no":   "CS2021001",
		"full_name": "Alice Johnson",
	})
	studentID, _ := dataField(t, envelope, "id").(string)

	_, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/courses", map[string]interface{}{
		"code":  "CS301",
		"title": "Operating Systems",
	})
	courseID, _ := dataField(t, envelope, "id").(string)

	_, envelope = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments", map[string]interface{}{
		"student_id": studentID,
		"course_id":  courseID,
	})
	enrollmentID, _ := dataField(t, envelope, "id").(string)
	require.NotEmpty(t, enrollmentID)

	// Omitted max_score falls back to 100.
	status, envelope := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/marks", map[string]interface{}{
		"assessment": "Mid Sem",
		"obtained":   72.5,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(100), dataField(t, envelope, "max_score"))

	// An explicit zero is not "use the default" - it fails validation.
	status, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/marks", map[string]interface{}{
		"assessment": "End Sem",
		"obtained":   10,
		"max_score":  0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/enrollments/"+enrollmentID+"/marks", map[string]interface{}{
		"assessment": "End Sem",
		"obtained":   10,
		"max_score":  -5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRequestIDIsUUID(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	id := resp.Header.Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "request id %q is not a UUID", id)
}

func TestShutdownStopsRateLimiter(t *testing.T) {
	cfg := DefaultConfig()
	require.Greater(t, cfg.RateLimitPerMinute, 0)

	srv := NewServer(cfg, Dependencies{HealthChecker: handlers.NewNoopHealthChecker()})
	require.NotNil(t, srv.rateLimiter)

	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case <-srv.rateLimiter.done:
		// cleanup goroutine has been told to exit
	default:
		t.Fatal("rate limiter cleanup still running after shutdown")
	}

	// A second shutdown is a no-op, not a double close.
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestBadJSONBodyIsRejected(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	resp, err := ts.Client().Post(ts.URL+"/api/v1/students", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
