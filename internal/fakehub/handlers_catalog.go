package fakehub

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frenchtutorhub/hub/pkg/httpx"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
)

var seedTime = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func (h *Hub) seedCatalogue() {
	grammar := &hubsdk.Category{ID: 1, Name: "Grammar", Description: "Structure and tenses"}
	speaking := &hubsdk.Category{ID: 2, Name: "Speaking", Description: "Conversation practice"}

	h.courses = []hubsdk.Course{
		{ID: 1, Title: "French for Beginners", Description: "Greetings, numbers and everyday phrases.", Price: "49.99", Published: true, Teacher: 7, TeacherName: "Claire Martin", Category: speaking, Level: "beginner", Featured: true},
		{ID: 2, Title: "Intermediate Grammar", Description: "Past tenses and the subjunctive.", Price: "79.00", Published: true, Teacher: 7, TeacherName: "Claire Martin", Category: grammar, Level: "intermediate", Featured: true},
		{ID: 3, Title: "Business French", Description: "Meetings, email and negotiation.", Price: "129.00", Published: true, Teacher: 8, TeacherName: "Luc Bernard", Category: speaking, Level: "advanced"},
		{ID: 4, Title: "DELF B2 Preparation", Description: "Exam strategy and mock papers.", Price: "99.00", Published: true, Teacher: 8, TeacherName: "Luc Bernard", Category: grammar, Level: "advanced", Featured: true},
	}
	for i := range h.courses {
		h.courses[i].CreatedAt = seedTime.AddDate(0, 0, i)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Hub) findCourseLocked(id int64) (hubsdk.Course, bool) {
	for _, c := range h.courses {
		if c.ID == id {
			return c, true
		}
	}
	return hubsdk.Course{}, false
}

func (h *Hub) enrolledLocked(userID, courseID int64) bool {
	for _, e := range h.enrollments {
		if e.Student == userID && e.Course == courseID && e.IsActive {
			return true
		}
	}
	return false
}

func (h *Hub) enrollLocked(userID int64, course hubsdk.Course) hubsdk.Enrollment {
	h.nextID++
	c := course
	e := hubsdk.Enrollment{
		ID:            h.nextID,
		Student:       userID,
		Course:        course.ID,
		CourseDetails: &c,
		EnrolledAt:    time.Now().UTC(),
		IsActive:      true,
	}
	h.enrollments = append(h.enrollments, e)
	return e
}

// ============================================================================
// Courses
// ============================================================================

func (h *Hub) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	featured := q.Get("featured") == "true"
	level := q.Get("level")
	category := strings.ToLower(q.Get("category"))
	search := strings.ToLower(q.Get("search"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	h.mu.Lock()
	out := make([]hubsdk.Course, 0, len(h.courses))
	for _, c := range h.courses {
		switch {
		case featured && !c.Featured:
			continue
		case level != "" && c.Level != level:
			continue
		case category != "" && (c.Category == nil || strings.ToLower(c.Category.Name) != category):
			continue
		case search != "" && !strings.Contains(strings.ToLower(c.Title+" "+c.Description), search):
			continue
		}
		out = append(out, c)
	}
	h.mu.Unlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Hub) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	h.mu.Lock()
	course, found := h.findCourseLocked(id)
	h.mu.Unlock()
	if !found {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, course)
}

func (h *Hub) handleCourseContent(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	h.mu.Lock()
	course, found := h.findCourseLocked(id)
	enrolled := h.enrolledLocked(acct.user.ID, id)
	h.mu.Unlock()

	switch {
	case !found:
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
	case !enrolled:
		httpx.WriteDetail(w, http.StatusForbidden, "You are not enrolled in this course.")
	default:
		httpx.WriteJSON(w, http.StatusOK, hubsdk.CourseContent{
			Videos:      []hubsdk.ContentItem{{ID: id*10 + 1, Title: course.Title + ": introduction", URL: "https://videos.example/" + strconv.FormatInt(id, 10), Order: 1}},
			PDFs:        []hubsdk.ContentItem{{ID: id*10 + 2, Title: "Workbook", Order: 2}},
			Assignments: []hubsdk.ContentItem{},
			Quizzes:     []hubsdk.ContentItem{},
		})
	}
}

// ============================================================================
// Enrollments
// ============================================================================

func (h *Hub) handleEnroll(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Course int64 `json:"course"`
	}
	if !decodeBody(r, &req) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	course, found := h.findCourseLocked(req.Course)
	if !found {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if h.enrolledLocked(acct.user.ID, course.ID) {
		httpx.WriteDetail(w, http.StatusBadRequest, "You are already enrolled in this course.")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, h.enrollLocked(acct.user.ID, course))
}

func (h *Hub) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	out := make([]hubsdk.Enrollment, 0)
	for _, e := range h.enrollments {
		if e.Student == acct.user.ID {
			out = append(out, e)
		}
	}
	h.mu.Unlock()

	// Paginated like the backend's default list pagination.
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"next":     nil,
		"previous": nil,
		"results":  out,
	})
}

func (h *Hub) handleAccountEnrollments(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	out := make([]hubsdk.Enrollment, 0)
	for i := len(h.enrollments) - 1; i >= 0; i-- {
		if e := h.enrollments[i]; e.Student == acct.user.ID {
			out = append(out, e)
		}
	}
	h.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Hub) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	var req struct {
		Progress *int `json:"progress"`
	}
	if !decodeBody(r, &req) || req.Progress == nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string][]string{"progress": {"This field is required."}})
		return
	}
	if *req.Progress < 0 || *req.Progress > 100 {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string][]string{"progress": {"Ensure this value is between 0 and 100."}})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.enrollments {
		e := &h.enrollments[i]
		if e.ID == id && e.Student == acct.user.ID {
			e.Progress = *req.Progress
			httpx.WriteJSON(w, http.StatusOK, *e)
			return
		}
	}
	httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
}

// ============================================================================
// Payments
// ============================================================================

func (h *Hub) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		CourseID int64 `json:"course_id"`
	}
	if !decodeBody(r, &req) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	course, found := h.findCourseLocked(req.CourseID)
	if !found {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	h.nextID++
	now := time.Now().UTC()
	h.payments = append(h.payments, hubsdk.Payment{
		ID:        h.nextID,
		User:      acct.user.ID,
		Course:    course.ID,
		Amount:    course.Price,
		Status:    "pending",
		CreatedAt: now,
		UpdatedAt: now,
	})

	httpx.WriteJSON(w, http.StatusOK, hubsdk.PaymentIntent{
		ClientSecret: "pi_" + strconv.FormatInt(h.nextID, 10) + "_secret",
		OrderID:      h.nextID,
	})
}

func (h *Hub) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		OrderID int64 `json:"order_id"`
	}
	if !decodeBody(r, &req) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.payments {
		p := &h.payments[i]
		if p.ID != req.OrderID || p.User != acct.user.ID {
			continue
		}
		if p.Status != "completed" {
			p.Status = "completed"
			p.UpdatedAt = time.Now().UTC()
			if course, ok := h.findCourseLocked(p.Course); ok && !h.enrolledLocked(p.User, p.Course) {
				h.enrollLocked(p.User, course)
			}
		}
		httpx.WriteJSON(w, http.StatusOK, hubsdk.PaymentStatus{Status: "success"})
		return
	}
	httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
}

func (h *Hub) userPaymentsLocked(userID int64) []hubsdk.Payment {
	out := make([]hubsdk.Payment, 0)
	for _, p := range h.payments {
		if p.User == userID {
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	out := h.userPaymentsLocked(acct.user.ID)
	h.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Hub) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	payments := h.userPaymentsLocked(acct.user.ID)
	out := make([]hubsdk.Order, 0, len(payments))
	for _, p := range payments {
		o := hubsdk.Order{ID: p.ID, Amount: p.Amount, Status: p.Status, CreatedAt: p.CreatedAt}
		if c, ok := h.findCourseLocked(p.Course); ok {
			o.Course = &hubsdk.CourseSummary{ID: c.ID, Title: c.Title, Price: c.Price, Description: c.Description, CreatedAt: c.CreatedAt}
		}
		out = append(out, o)
	}
	h.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ============================================================================
// Live Sessions
// ============================================================================

func (h *Hub) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	now := time.Now()
	h.mu.Lock()
	out := make([]hubsdk.LiveSession, 0)
	for _, s := range h.sessions {
		if s.Student == acct.user.ID && s.TimeSlotDetails != nil && s.TimeSlotDetails.EndTime.After(now) {
			out = append(out, s)
		}
	}
	h.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Hub) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *hubsdk.LiveSession) {
		httpx.WriteJSON(w, http.StatusOK, *s)
	})
}

func (h *Hub) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *hubsdk.LiveSession) {
		if s.MeetingURL == "" {
			s.MeetingID = strconv.FormatInt(8_000_000_000+s.ID, 10)
			s.MeetingURL = "https://zoom.example/j/" + s.MeetingID
			s.MeetingPassword = "bonjour"
		}
		s.Status = "in_progress"
		s.UpdatedAt = time.Now().UTC()
		httpx.WriteJSON(w, http.StatusOK, *s)
	})
}

// withSession runs fn with the caller's session under the hub lock.
func (h *Hub) withSession(w http.ResponseWriter, r *http.Request, fn func(*hubsdk.LiveSession)) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.sessions {
		if h.sessions[i].ID == id && h.sessions[i].Student == acct.user.ID {
			fn(&h.sessions[i])
			return
		}
	}
	httpx.WriteDetail(w, http.StatusNotFound, "Not found.")
}
