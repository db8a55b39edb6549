package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/ozidan13/codehub/pkg/utils"
	"github.com/rs/zerolog"
)

type stubBookingService struct {
	bookResult       *models.BookingDetail
	bookErr          error
	updateResult     *models.BookingDetail
	updateErr        error
	listResult       []models.MentorshipBooking
	getResult        *models.BookingDetail
	getErr           error
	lastRecorded     services.BookRecordedInput
	lastFaceToFace   services.BookFaceToFaceInput
	lastPatch        services.AdminUpdateInput
	lastActorID      int64
	lastRole         string
	lastBookingID    int64
	lastStatus       models.BookingStatus
	faceToFaceCalled bool
	recordedCalled   bool
}

func (s *stubBookingService) BookRecorded(_ context.Context, studentID int64, input services.BookRecordedInput) (*models.BookingDetail, error) {
	s.recordedCalled = true
	s.lastActorID = studentID
	s.lastRecorded = input
	return s.bookResult, s.bookErr
}

func (s *stubBookingService) BookFaceToFace(_ context.Context, studentID int64, input services.BookFaceToFaceInput) (*models.BookingDetail, error) {
	s.faceToFaceCalled = true
	s.lastActorID = studentID
	s.lastFaceToFace = input
	return s.bookResult, s.bookErr
}

func (s *stubBookingService) AdminUpdate(_ context.Context, bookingID int64, patch services.AdminUpdateInput) (*models.BookingDetail, error) {
	s.lastBookingID = bookingID
	s.lastPatch = patch
	return s.updateResult, s.updateErr
}

func (s *stubBookingService) List(_ context.Context, actorID int64, role string, status models.BookingStatus) ([]models.MentorshipBooking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastStatus = status
	return s.listResult, nil
}

func (s *stubBookingService) Get(_ context.Context, actorID int64, role string, bookingID int64) (*models.BookingDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	return s.getResult, s.getErr
}

func TestCreateFaceToFaceBooking(t *testing.T) {
	sessionDate := time.Date(2030, 1, 6, 9, 0, 0, 0, time.UTC)
	service := &stubBookingService{
		bookResult: &models.BookingDetail{MentorshipBooking: models.MentorshipBooking{
			ID:          91,
			StudentID:   42,
			SessionType: models.SessionFaceToFace,
			Status:      models.BookingPending,
			Amount:      models.MustMoney("250"),
			SessionDate: &sessionDate,
		}},
	}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Post("/api/v1/booking", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", strings.NewReader(`{
		"sessionType": "face_to_face",
		"mentorId": 7,
		"slotId": 12,
		"whatsappNumber": "+201000000000",
		"duration": 60,
		"notes": "system design"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !service.faceToFaceCalled || service.recordedCalled {
		t.Fatalf("expected face-to-face booking path")
	}
	if service.lastFaceToFace.SlotID != 12 || service.lastFaceToFace.MentorID != 7 || service.lastFaceToFace.DurationMinutes != 60 {
		t.Fatalf("unexpected input %+v", service.lastFaceToFace)
	}

	var body struct {
		Booking struct {
			ID     int64  `json:"id"`
			Amount string `json:"amount"`
			Status string `json:"status"`
		} `json:"booking"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Booking.ID != 91 || body.Booking.Amount != "250.00" || body.Booking.Status != "PENDING" {
		t.Fatalf("unexpected booking %+v", body.Booking)
	}
}

func TestCreateBookingSlotTakenIsBadRequest(t *testing.T) {
	service := &stubBookingService{bookErr: services.ErrSlotAlreadyBooked}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Post("/api/v1/booking", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", strings.NewReader(`{"sessionType":"FACE_TO_FACE","mentorId":7,"slotId":12,"whatsappNumber":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Error.Code != "SlotAlreadyBooked" {
		t.Fatalf("expected SlotAlreadyBooked, got %+v", body)
	}
}

func TestCreateBookingUnknownSessionType(t *testing.T) {
	service := &stubBookingService{}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Post("/api/v1/booking", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", strings.NewReader(`{"sessionType":"GROUP"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.faceToFaceCalled || service.recordedCalled {
		t.Fatalf("expected no service call")
	}
}

func TestListBookingsPassesNormalizedStatus(t *testing.T) {
	service := &stubBookingService{listResult: []models.MentorshipBooking{}}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleAdmin, "1")
	app.Get("/api/v1/booking", handler.List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/booking?status=confirm", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastStatus != models.BookingConfirmed || service.lastRole != utils.RoleAdmin {
		t.Fatalf("unexpected list call status=%q role=%q", service.lastStatus, service.lastRole)
	}
}

func TestGetBookingHiddenFromOtherStudents(t *testing.T) {
	service := &stubBookingService{getErr: services.ErrBookingNotFound}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Get("/api/v1/booking/:id", handler.Get)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/booking/91", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 91 || service.lastActorID != 42 {
		t.Fatalf("unexpected get call booking=%d actor=%d", service.lastBookingID, service.lastActorID)
	}
}

func TestUpdateBookingBuildsPatch(t *testing.T) {
	service := &stubBookingService{
		updateResult: &models.BookingDetail{MentorshipBooking: models.MentorshipBooking{ID: 91, Status: models.BookingConfirmed}},
	}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleAdmin, "1")
	app.Patch("/api/v1/booking", handler.Update)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/booking", strings.NewReader(`{
		"bookingId": 91,
		"status": "confirm",
		"meetingLink": "https://meet.example.com/x",
		"availableDateId": 15
	}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	patch := service.lastPatch
	if service.lastBookingID != 91 || patch.Status == nil || *patch.Status != models.BookingConfirmed {
		t.Fatalf("unexpected patch %+v", patch)
	}
	if patch.AvailableDateID == nil || *patch.AvailableDateID != 15 || patch.MeetingLink == nil {
		t.Fatalf("unexpected patch fields %+v", patch)
	}
	if patch.SessionDate != nil || patch.VideoLink != nil {
		t.Fatalf("expected untouched fields to stay nil")
	}
}

func TestUpdateBookingRejectsBadSessionDate(t *testing.T) {
	service := &stubBookingService{}
	handler := &BookingHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleAdmin, "1")
	app.Patch("/api/v1/booking", handler.Update)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/booking", strings.NewReader(`{"bookingId": 91, "sessionDate": "tomorrow"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 0 {
		t.Fatalf("expected service not to be called")
	}
}
