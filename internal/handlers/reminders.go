package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pawkit/pet-reminders/internal/alerts"
	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/middleware"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/queue"
	"github.com/pawkit/pet-reminders/internal/schedule"
	"github.com/pawkit/pet-reminders/internal/scheduling"
	"github.com/pawkit/pet-reminders/internal/validation"
)

// ReminderHandler handles reminder-related requests
type ReminderHandler struct {
	service      *scheduling.Service
	reminderRepo database.ReminderRepositoryInterface
	petRepo      database.PetRepositoryInterface
	gateway      alerts.Gateway
	jobQueue     queue.JobQueue
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(
	service *scheduling.Service,
	reminderRepo database.ReminderRepositoryInterface,
	petRepo database.PetRepositoryInterface,
	gateway alerts.Gateway,
	jobQueue queue.JobQueue,
) *ReminderHandler {
	return &ReminderHandler{
		service:      service,
		reminderRepo: reminderRepo,
		petRepo:      petRepo,
		gateway:      gateway,
		jobQueue:     jobQueue,
	}
}

// RegisterRoutes registers reminder routes on the given router
// The router should already have the /reminders prefix
func (h *ReminderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListReminders).Methods("GET")
	r.HandleFunc("", h.CreateReminder).Methods("POST")
	r.HandleFunc("/{id}", h.GetReminder).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateReminder).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteReminder).Methods("DELETE")
	r.HandleFunc("/{id}/upcoming", h.UpcomingOccurrences).Methods("GET")
	r.HandleFunc("/{id}/refresh", h.RefreshReminder).Methods("POST")
	r.HandleFunc("/{id}/notifications", h.SetNotifications).Methods("PATCH")
}

const (
	// MaxReminderTitleLength is the maximum length for a reminder title
	MaxReminderTitleLength = 200
	// MaxReminderNotesLength is the maximum length for reminder notes
	MaxReminderNotesLength = 2000
	// DefaultUpcomingLimit is the default number of upcoming occurrences returned
	DefaultUpcomingLimit = 20
	// MaxUpcomingLimit is the maximum number of upcoming occurrences returned
	MaxUpcomingLimit = 200
)

// CreateReminderRequest represents a create reminder request
type CreateReminderRequest struct {
	PetID                string   `json:"pet_id" validate:"required"`
	Title                string   `json:"title" validate:"required,min=1,max=200"`
	Notes                string   `json:"notes" validate:"max=2000"`
	ScheduleType         string   `json:"schedule_type" validate:"required,schedule_type"`
	TimesOfDay           []string `json:"times_of_day" validate:"required,min=1"`
	AnchorDate           *string  `json:"anchor_date,omitempty"`
	WeekdayMask          *int     `json:"weekday_mask,omitempty"`
	StepDays             *int     `json:"step_days,omitempty"`
	StartDate            string   `json:"start_date" validate:"required"`
	EndDate              *string  `json:"end_date,omitempty"`
	Timezone             string   `json:"timezone" validate:"required,timezone"`
	NotificationsEnabled *bool    `json:"notifications_enabled,omitempty"`
}

// UpdateReminderRequest represents a partial reminder update
type UpdateReminderRequest struct {
	Title        *string   `json:"title,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	ScheduleType *string   `json:"schedule_type,omitempty"`
	TimesOfDay   *[]string `json:"times_of_day,omitempty"`
	AnchorDate   *string   `json:"anchor_date,omitempty"`
	WeekdayMask  *int      `json:"weekday_mask,omitempty"`
	StepDays     *int      `json:"step_days,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"`
	EndDate      *string   `json:"end_date,omitempty"`
	Timezone     *string   `json:"timezone,omitempty"`
}

// SetNotificationsRequest toggles alert delivery for a reminder
type SetNotificationsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ListReminders lists reminders for one of the owner's pets
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	petID, err := uuid.Parse(r.URL.Query().Get("pet_id"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "pet_id query parameter is required")
		return
	}

	ctx := r.Context()
	if !h.ownsPet(ctx, w, owner, petID) {
		return
	}

	reminders, err := h.reminderRepo.GetByPetID(ctx, petID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
		return
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}

	respondJSON(w, http.StatusOK, reminders)
}

// CreateReminder creates a reminder and materializes its occurrence window
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	var req CreateReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	petID, err := uuid.Parse(req.PetID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid pet ID")
		return
	}

	ctx := r.Context()
	if !h.ownsPet(ctx, w, owner, petID) {
		return
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	times, err := validation.ParseTimesOfDay(req.TimesOfDay)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	startDate, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid start_date")
		return
	}

	reminder := &models.Reminder{
		ID:                   uuid.New(),
		PetID:                petID,
		OwnerID:              owner,
		Title:                title,
		Notes:                validation.SanitizeText(req.Notes),
		ScheduleType:         schedule.Kind(req.ScheduleType),
		TimesOfDay:           times,
		StartDate:            startDate,
		Timezone:             req.Timezone,
		NotificationsEnabled: true,
	}
	if req.NotificationsEnabled != nil {
		reminder.NotificationsEnabled = *req.NotificationsEnabled
	}

	if !applyScheduleParams(w, reminder, req.AnchorDate, req.WeekdayMask, req.StepDays, req.EndDate) {
		return
	}

	if err := h.service.Create(ctx, reminder); err != nil {
		if errors.Is(err, schedule.ErrInvalidDefinition) || errors.Is(err, schedule.ErrInvalidTimeOfDay) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create reminder")
		return
	}

	h.enqueueReconcile(ctx, owner, reminder.ID)
	respondJSON(w, http.StatusCreated, reminder)
}

// GetReminder retrieves a reminder by ID
func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, reminder)
}

// UpdateReminder applies a partial edit. Schedule-shaping changes rebuild the
// future occurrence window; title and notes edits do not.
func (h *ReminderHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	var req UpdateReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(title) > MaxReminderTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxReminderTitleLength))
			return
		}
		reminder.Title = title
	}
	if req.Notes != nil {
		notes := validation.SanitizeText(*req.Notes)
		if len(notes) > MaxReminderNotesLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Notes exceed maximum length of %d characters", MaxReminderNotesLength))
			return
		}
		reminder.Notes = notes
	}
	if req.ScheduleType != nil {
		if err := validation.ValidateScheduleType(*req.ScheduleType); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		reminder.ScheduleType = schedule.Kind(*req.ScheduleType)
	}
	if req.TimesOfDay != nil {
		times, err := validation.ParseTimesOfDay(*req.TimesOfDay)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		reminder.TimesOfDay = times
	}
	if req.StartDate != nil {
		startDate, err := schedule.ParseDate(*req.StartDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid start_date")
			return
		}
		reminder.StartDate = startDate
	}
	if req.Timezone != nil {
		if err := validation.ValidateTimezone(*req.Timezone); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		reminder.Timezone = *req.Timezone
	}
	if !applyScheduleParams(w, reminder, req.AnchorDate, req.WeekdayMask, req.StepDays, req.EndDate) {
		return
	}

	rebuilt, err := h.service.Update(r.Context(), reminder)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidDefinition) || errors.Is(err, schedule.ErrInvalidTimeOfDay) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update reminder")
		return
	}

	// Even a title-only edit changes the text of pending alerts.
	_ = rebuilt
	h.enqueueReconcile(r.Context(), owner, reminder.ID)

	respondJSON(w, http.StatusOK, reminder)
}

// DeleteReminder removes a reminder, its occurrence history and its alerts
func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), reminder.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete reminder")
		return
	}

	// Best effort: the reminder row is gone either way.
	if err := h.gateway.CancelAll(r.Context(), reminder.ID); err != nil {
		log.Printf("Failed to cancel alerts for deleted reminder %s: %v", reminder.ID, err)
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": reminder.ID.String()})
}

// UpcomingOccurrences lists the reminder's pending occurrences, soonest first
func (h *ReminderHandler) UpcomingOccurrences(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	limit := DefaultUpcomingLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			if parsed > MaxUpcomingLimit {
				limit = MaxUpcomingLimit
			} else {
				limit = parsed
			}
		}
	}

	occurrences, err := h.service.Upcoming(r.Context(), reminder.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve occurrences")
		return
	}
	if occurrences == nil {
		occurrences = []*models.Occurrence{}
	}

	respondJSON(w, http.StatusOK, occurrences)
}

// RefreshReminder queues an asynchronous rebuild of the occurrence window
func (h *ReminderHandler) RefreshReminder(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	job := queue.NewJob(queue.JobTypeReexpand, owner, reminder.ID)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue refresh")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String()})
}

// SetNotifications toggles alert delivery and queues a reconcile pass
func (h *ReminderHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	reminder, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	var req SetNotificationsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "enabled is required")
		return
	}

	if err := h.reminderRepo.UpdateNotificationsEnabled(r.Context(), reminder.ID, *req.Enabled); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update notifications")
		return
	}
	reminder.NotificationsEnabled = *req.Enabled

	h.enqueueReconcile(r.Context(), owner, reminder.ID)
	respondJSON(w, http.StatusOK, reminder)
}

// loadOwned fetches the {id} path reminder and enforces ownership, writing
// the error response itself when the lookup fails.
func (h *ReminderHandler) loadOwned(w http.ResponseWriter, r *http.Request, owner uuid.UUID) (*models.Reminder, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return nil, false
	}

	reminder, err := h.reminderRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminder")
		return nil, false
	}

	if reminder.OwnerID != owner {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Reminder does not belong to owner")
		return nil, false
	}
	return reminder, true
}

func (h *ReminderHandler) ownsPet(ctx context.Context, w http.ResponseWriter, owner, petID uuid.UUID) bool {
	pet, err := h.petRepo.GetByID(ctx, petID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Pet not found")
			return false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pet")
		return false
	}
	if pet.OwnerID != owner {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Pet does not belong to owner")
		return false
	}
	return true
}

func (h *ReminderHandler) enqueueReconcile(ctx context.Context, owner, reminderID uuid.UUID) {
	if h.jobQueue == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeReconcile, owner, reminderID)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		log.Printf("Failed to enqueue reconcile for reminder %s: %v", reminderID, err)
	}
}

// applyScheduleParams copies the optional schedule parameters onto the model,
// validating each. Returns false after writing an error response.
func applyScheduleParams(w http.ResponseWriter, reminder *models.Reminder, anchorDate *string, weekdayMask, stepDays *int, endDate *string) bool {
	if anchorDate != nil {
		d, err := schedule.ParseDate(*anchorDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid anchor_date")
			return false
		}
		reminder.AnchorDate = &d
	}
	if weekdayMask != nil {
		if err := validation.ValidateWeekdayMask(*weekdayMask); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return false
		}
		mask := schedule.WeekdayMask(*weekdayMask)
		reminder.WeekdayMask = &mask
	}
	if stepDays != nil {
		if *stepDays < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "step_days must be at least 1")
			return false
		}
		reminder.StepDays = stepDays
	}
	if endDate != nil {
		d, err := schedule.ParseDate(*endDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid end_date")
			return false
		}
		reminder.EndDate = &d
	}
	return true
}

// decodeBody decodes a JSON request body, writing the error response itself
// on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}
