package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/carpas-edu/carpas/internal/application/command"
	"github.com/carpas-edu/carpas/internal/application/query"
	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
	"github.com/carpas-edu/carpas/pkg/dateutil"
	"github.com/carpas-edu/carpas/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}

	info := map[string]interface{}{
		"name":        "CARPAS API",
		"version":     "v1",
		"description": "REST API for the Course and Academic Records Processing System",
		"endpoints": map[string]string{
			"health":      "/health",
			"students":    "/api/v1/students",
			"courses":     "/api/v1/courses",
			"enrollments": "/api/v1/enrollments",
			"at_risk":     "/api/v1/analytics/at-risk",
			"stats":       "/api/v1/stats",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := query.ListStudentsQuery{
		Department: getQueryParam(r, "department", ""),
		Semester:   getQueryParamInt(r, "semester", 0),
		Search:     getQueryParam(r, "search", ""),
		SortBy:     getQueryParam(r, "sort_by", ""),
		SortDesc:   getQueryParamBool(r, "sort_desc"),
		Limit:      getQueryParamInt(r, "limit", 0),
		Offset:     getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.ListStudentsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleCreateStudent handles POST /api/v1/students
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.CreateStudentCommand{
		RollNo:     req.RollNo,
		FullName:   req.FullName,
		Department: req.Department,
		Semester:   req.Semester,
		Email:      req.Email,
		Phone:      req.Phone,
	}

	st, err := s.deps.CreateStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newStudentView(st))
}

// handleUpdateStudent handles PUT /api/v1/students/{id}
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.UpdateStudentCommand{
		StudentID:  r.PathValue("id"),
		RollNo:     req.RollNo,
		FullName:   req.FullName,
		Department: req.Department,
		Semester:   req.Semester,
		Email:      req.Email,
		Phone:      req.Phone,
	}

	st, err := s.deps.UpdateStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateStudent(r, st.ID)
	writeJSON(w, http.StatusOK, newStudentView(st))
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteStudentCommand{
		StudentID: r.PathValue("id"),
		Cascade:   getQueryParamBool(r, "cascade"),
	}

	result, err := s.deps.DeleteStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Cascaded removals touch course aggregates too.
	if result.RemovedEnrollments > 0 {
		s.invalidateAll(r)
	} else {
		s.invalidateStudent(r, cmd.StudentID)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStudentSummary handles GET /api/v1/students/{id} and
// GET /api/v1/students/{id}/summary. With ?by=roll_no the path segment is
// treated as a roll number instead of an internal ID.
func (s *Server) handleGetStudentSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q := query.GetStudentSummaryQuery{}
	if getQueryParam(r, "by", "") == "roll_no" {
		q.RollNo = id
	} else {
		q.StudentID = id
	}

	// Cache lookup is only possible when addressed by internal ID.
	if s.deps.Analytics != nil && q.StudentID != "" {
		if cached, err := s.deps.Analytics.GetStudentSummary(r.Context(), q.StudentID); err == nil {
			writeJSONWithMeta(w, r, http.StatusOK, cached, &ResponseMeta{Cached: true})
			return
		}
	}

	result, err := s.deps.GetStudentSummaryHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.SetStudentSummary(r.Context(), result.Student.ID, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListCourses handles GET /api/v1/courses
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := query.ListCoursesQuery{
		Semester: getQueryParamInt(r, "semester", 0),
		Search:   getQueryParam(r, "search", ""),
		SortBy:   getQueryParam(r, "sort_by", ""),
		SortDesc: getQueryParamBool(r, "sort_desc"),
		Limit:    getQueryParamInt(r, "limit", 0),
		Offset:   getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.ListCoursesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleCreateCourse handles POST /api/v1/courses
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.CreateCourseCommand{
		Code:     req.Code,
		Title:    req.Title,
		Semester: req.Semester,
		Credits:  req.Credits,
	}

	c, err := s.deps.CreateCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newCourseView(c))
}

// handleUpdateCourse handles PUT /api/v1/courses/{id}
func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var req updateCourseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.UpdateCourseCommand{
		CourseID: r.PathValue("id"),
		Code:     req.Code,
		Title:    req.Title,
		Semester: req.Semester,
		Credits:  req.Credits,
	}

	c, err := s.deps.UpdateCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateCourse(r, c.ID)
	writeJSON(w, http.StatusOK, newCourseView(c))
}

// handleDeleteCourse handles DELETE /api/v1/courses/{id}
func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteCourseCommand{
		CourseID: r.PathValue("id"),
		Cascade:  getQueryParamBool(r, "cascade"),
	}

	result, err := s.deps.DeleteCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if result.RemovedEnrollments > 0 {
		s.invalidateAll(r)
	} else {
		s.invalidateCourse(r, cmd.CourseID)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetCoursePerformance handles GET /api/v1/courses/{id} and
// GET /api/v1/courses/{id}/performance. With ?by=code the path segment is
// treated as a course code instead of an internal ID.
func (s *Server) handleGetCoursePerformance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q := query.GetCoursePerformanceQuery{}
	if getQueryParam(r, "by", "") == "code" {
		q.Code = id
	} else {
		q.CourseID = id
	}

	if s.deps.Analytics != nil && q.CourseID != "" {
		if cached, err := s.deps.Analytics.GetCoursePerformance(r.Context(), q.CourseID); err == nil {
			writeJSONWithMeta(w, r, http.StatusOK, cached, &ResponseMeta{Cached: true})
			return
		}
	}

	result, err := s.deps.GetCoursePerformanceHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.SetCoursePerformance(r.Context(), result.Course.ID, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleEnrollStudent handles POST /api/v1/enrollments
func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	enrolledOn, ok := s.parseOptionalDate(w, req.EnrolledOn)
	if !ok {
		return
	}

	cmd := command.EnrollStudentCommand{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		EnrolledOn: enrolledOn,
	}

	e, err := s.deps.EnrollStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.InvalidateEnrollment(r.Context(), e.StudentID, e.CourseID, e.ID)
	}

	writeJSON(w, http.StatusCreated, newEnrollmentView(e))
}

// handleWithdrawEnrollment handles DELETE /api/v1/enrollments/{id}
func (s *Server) handleWithdrawEnrollment(w http.ResponseWriter, r *http.Request) {
	cmd := command.WithdrawEnrollmentCommand{
		EnrollmentID: r.PathValue("id"),
	}

	if err := s.deps.WithdrawEnrollmentHandler.Handle(r.Context(), cmd); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateAll(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// handleWithdrawByPair handles DELETE /api/v1/enrollments?student_id=&course_id=
func (s *Server) handleWithdrawByPair(w http.ResponseWriter, r *http.Request) {
	cmd := command.WithdrawEnrollmentCommand{
		StudentID: getQueryParam(r, "student_id", ""),
		CourseID:  getQueryParam(r, "course_id", ""),
	}

	if err := s.deps.WithdrawEnrollmentHandler.Handle(r.Context(), cmd); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateAll(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// handleGetEnrollmentProgress handles GET /api/v1/enrollments/{id}/progress
func (s *Server) handleGetEnrollmentProgress(w http.ResponseWriter, r *http.Request) {
	s.serveProgress(w, r, query.GetEnrollmentProgressQuery{
		EnrollmentID: r.PathValue("id"),
	})
}

// handleGetProgressByPair handles GET /api/v1/enrollments/progress?student_id=&course_id=
func (s *Server) handleGetProgressByPair(w http.ResponseWriter, r *http.Request) {
	s.serveProgress(w, r, query.GetEnrollmentProgressQuery{
		StudentID: getQueryParam(r, "student_id", ""),
		CourseID:  getQueryParam(r, "course_id", ""),
	})
}

// serveProgress executes a progress query with a cache in front of it.
func (s *Server) serveProgress(w http.ResponseWriter, r *http.Request, q query.GetEnrollmentProgressQuery) {
	if s.deps.Analytics != nil && q.EnrollmentID != "" {
		if cached, err := s.deps.Analytics.GetProgress(r.Context(), q.EnrollmentID); err == nil {
			writeJSONWithMeta(w, r, http.StatusOK, cached, &ResponseMeta{Cached: true})
			return
		}
	}

	result, err := s.deps.GetEnrollmentProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.SetProgress(r.Context(), result.Progress.EnrollmentID, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE & MARK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRecordAttendance handles PUT /api/v1/enrollments/{id}/attendance
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.RecordAttendanceCommand{
		EnrollmentID:    r.PathValue("id"),
		TotalClasses:    req.TotalClasses,
		AttendedClasses: req.AttendedClasses,
	}

	att, err := s.deps.RecordAttendanceHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateAll(r)
	writeJSON(w, http.StatusOK, newAttendanceView(att))
}

// handleAddMark handles POST /api/v1/enrollments/{id}/marks
func (s *Server) handleAddMark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	recordedOn, ok := s.parseOptionalDate(w, req.RecordedOn)
	if !ok {
		return
	}

	maxScore := enrollment.DefaultMaxScore
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}

	cmd := command.AddMarkCommand{
		EnrollmentID: r.PathValue("id"),
		Assessment:   req.Assessment,
		Obtained:     req.Obtained,
		MaxScore:     maxScore,
		RecordedOn:   recordedOn,
	}

	m, err := s.deps.AddMarkHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateAll(r)
	writeJSON(w, http.StatusCreated, newMarkView(m))
}

// handleRemoveMark handles DELETE /api/v1/marks/{id}
func (s *Server) handleRemoveMark(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveMarkCommand{
		MarkID: r.PathValue("id"),
	}

	if err := s.deps.RemoveMarkHandler.Handle(r.Context(), cmd); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateAll(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleFindAtRisk handles GET /api/v1/analytics/at-risk
func (s *Server) handleFindAtRisk(w http.ResponseWriter, r *http.Request) {
	q := query.FindAtRiskQuery{
		AttendanceBelow: getQueryParamFloat(r, "attendance_below", s.config.AtRiskAttendanceBelow),
		MarksBelow:      getQueryParamFloat(r, "marks_below", s.config.AtRiskMarksBelow),
		CourseID:        getQueryParam(r, "course_id", ""),
	}

	// Normalize the thresholds first so the cache key matches what the
	// query handler will actually use.
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}

	if s.deps.Analytics != nil {
		if cached, err := s.deps.Analytics.GetAtRisk(r.Context(), q); err == nil {
			writeJSONWithMeta(w, r, http.StatusOK, cached, &ResponseMeta{Cached: true})
			return
		}
	}

	result, err := s.deps.FindAtRiskHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.SetAtRisk(r.Context(), q, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStats handles GET /api/v1/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":  s.Uptime().String(),
			"running": s.IsRunning(),
		},
	}

	if students, err := s.deps.ListStudentsHandler.Handle(r.Context(), query.ListStudentsQuery{Limit: 1}); err == nil {
		stats["students"] = map[string]interface{}{"total": students.TotalCount}
	}

	if courses, err := s.deps.ListCoursesHandler.Handle(r.Context(), query.ListCoursesQuery{Limit: 1}); err == nil {
		stats["courses"] = map[string]interface{}{"total": courses.TotalCount}
	}

	if atRisk, err := s.deps.FindAtRiskHandler.Handle(r.Context(), query.FindAtRiskQuery{}); err == nil {
		stats["at_risk"] = map[string]interface{}{
			"count":   len(atRisk.Entries),
			"scanned": atRisk.ScannedCount,
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type createStudentRequest struct {
	RollNo     string `json:"roll_no"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Semester   int    `json:"semester"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Pointer fields distinguish "not sent" from "set to empty".
type updateStudentRequest struct {
	RollNo     *string `json:"roll_no"`
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Semester   *int    `json:"semester"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
}

type createCourseRequest struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Semester int    `json:"semester"`
	Credits  int    `json:"credits"`
}

type updateCourseRequest struct {
	Code     *string `json:"code"`
	Title    *string `json:"title"`
	Semester *int    `json:"semester"`
	Credits  *int    `json:"credits"`
}

type enrollRequest struct {
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	EnrolledOn string `json:"enrolled_on"`
}

type attendanceRequest struct {
	TotalClasses    int `json:"total_classes"`
	AttendedClasses int `json:"attended_classes"`
}

type markRequest struct {
	Assessment string  `json:"assessment"`
	Obtained   float64 `json:"obtained"`
	// A pointer so an omitted max_score (default 100) can be told apart
	// from an explicit zero, which is rejected.
	MaxScore   *float64 `json:"max_score"`
	RecordedOn string   `json:"recorded_on"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE VIEWS
// The domain entities carry no serialization tags, so command results get
// their own JSON shapes here.
// ══════════════════════════════════════════════════════════════════════════════

type studentView struct {
	ID         string    `json:"id"`
	RollNo     string    `json:"roll_no"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department,omitempty"`
	Semester   int       `json:"semester,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newStudentView(s *student.Student) studentView {
	return studentView{
		ID:         s.ID,
		RollNo:     string(s.RollNo),
		FullName:   s.FullName,
		Department: s.Department,
		Semester:   int(s.Semester),
		Email:      string(s.Email),
		Phone:      s.Phone,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

type courseView struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Semester  int       `json:"semester,omitempty"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCourseView(c *course.Course) courseView {
	return courseView{
		ID:        c.ID,
		Code:      string(c.Code),
		Title:     c.Title,
		Semester:  int(c.Semester),
		Credits:   int(c.Credits),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type enrollmentView struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledOn string    `json:"enrolled_on"`
	CreatedAt  time.Time `json:"created_at"`
}

func newEnrollmentView(e *enrollment.Enrollment) enrollmentView {
	return enrollmentView{
		ID:         e.ID,
		StudentID:  e.StudentID,
		CourseID:   e.CourseID,
		EnrolledOn: dateutil.Format(e.EnrolledOn),
		CreatedAt:  e.CreatedAt,
	}
}

type attendanceView struct {
	ID              string    `json:"id"`
	EnrollmentID    string    `json:"enrollment_id"`
	TotalClasses    int       `json:"total_classes"`
	AttendedClasses int       `json:"attended_classes"`
	Percent         *float64  `json:"percent"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newAttendanceView(a *enrollment.Attendance) attendanceView {
	v := attendanceView{
		ID:              a.ID,
		EnrollmentID:    a.EnrollmentID,
		TotalClasses:    a.TotalClasses,
		AttendedClasses: a.AttendedClasses,
		UpdatedAt:       a.UpdatedAt,
	}
	if pct, ok := a.Percent(); ok {
		v.Percent = &pct
	}
	return v
}

type markView struct {
	ID           string  `json:"id"`
	EnrollmentID string  `json:"enrollment_id"`
	Assessment   string  `json:"assessment"`
	Obtained     float64 `json:"obtained"`
	MaxScore     float64 `json:"max_score"`
	Percent      float64 `json:"percent"`
	RecordedOn   string  `json:"recorded_on"`
}

func newMarkView(m *enrollment.Mark) markView {
	return markView{
		ID:           m.ID,
		EnrollmentID: m.EnrollmentID,
		Assessment:   m.Assessment,
		Obtained:     m.Obtained,
		MaxScore:     m.MaxScore,
		Percent:      m.Percent(),
		RecordedOn:   dateutil.Format(m.RecordedOn),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes a request body, writing a 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// parseOptionalDate parses a civil date in ISO or RFC 3339 form.
// An empty string yields the zero time, which commands treat as "today".
func (s *Server) parseOptionalDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if t, err := dateutil.Parse(value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return dateutil.Truncate(t), true
	}
	writeJSONError(w, http.StatusBadRequest, "invalid_request", "Dates must be in YYYY-MM-DD or RFC 3339 form")
	return time.Time{}, false
}

// writeServiceError maps application errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// Invalidation helpers. No-ops when the cache is not configured.

func (s *Server) invalidateStudent(r *http.Request, studentID string) {
	if s.deps.Analytics != nil {
		s.deps.Analytics.InvalidateStudent(r.Context(), studentID)
	}
}

func (s *Server) invalidateCourse(r *http.Request, courseID string) {
	if s.deps.Analytics != nil {
		s.deps.Analytics.InvalidateCourse(r.Context(), courseID)
	}
}

func (s *Server) invalidateAll(r *http.Request) {
	if s.deps.Analytics != nil {
		s.deps.Analytics.InvalidateAll(r.Context())
	}
}
