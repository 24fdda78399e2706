package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pawkit/pet-reminders/internal/alerts"
	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/middleware"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/queue"
	"github.com/pawkit/pet-reminders/internal/schedule"
	"github.com/pawkit/pet-reminders/internal/scheduling"
)

type reminderTestEnv struct {
	handler  *ReminderHandler
	reminder *mockReminderRepo
	occ      *mockOccurrenceRepo
	jobs     *mockJobQueue
	gateway  *alerts.MemoryGateway
	owner    uuid.UUID
	pet      *models.Pet
}

// newReminderEnv wires a ReminderHandler over mock repositories and a real
// scheduling service, with one pet owned by env.owner.
func newReminderEnv() *reminderTestEnv {
	owner := uuid.New()
	pet := &models.Pet{ID: uuid.New(), OwnerID: owner, Name: "Biscuit"}

	reminderRepo := &mockReminderRepo{}
	occRepo := &mockOccurrenceRepo{}
	petRepo := &mockPetRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
			if id == pet.ID {
				return pet, nil
			}
			return nil, database.ErrNotFound
		},
	}
	jobs := &mockJobQueue{}
	gateway := alerts.NewMemoryGateway()

	svc := scheduling.NewService(reminderRepo, occRepo, 0, nil)
	h := NewReminderHandler(svc, reminderRepo, petRepo, gateway, jobs)

	return &reminderTestEnv{
		handler:  h,
		reminder: reminderRepo,
		occ:      occRepo,
		jobs:     jobs,
		gateway:  gateway,
		owner:    owner,
		pet:      pet,
	}
}

func (env *reminderTestEnv) serve(owner uuid.UUID, req *http.Request) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	env.handler.RegisterRoutes(router.PathPrefix("/reminders").Subrouter())
	if owner != uuid.Nil {
		req = req.WithContext(middleware.WithOwner(req.Context(), owner))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (env *reminderTestEnv) existingReminder() *models.Reminder {
	reminder := &models.Reminder{
		ID:                   uuid.New(),
		PetID:                env.pet.ID,
		OwnerID:              env.owner,
		Title:                "Evening meds",
		ScheduleType:         schedule.KindDaily,
		TimesOfDay:           []schedule.TimeOfDay{{Hour: 18}},
		StartDate:            schedule.Date{Year: 2025, Month: time.June, Day: 1},
		Timezone:             "UTC",
		NotificationsEnabled: true,
	}
	env.reminder.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
		if id == reminder.ID {
			copied := *reminder
			return &copied, nil
		}
		return nil, database.ErrNotFound
	}
	return reminder
}

func (env *reminderTestEnv) enqueuedTypes() []queue.JobType {
	var types []queue.JobType
	for _, job := range env.jobs.enqueued {
		types = append(types, job.Type)
	}
	return types
}

func TestCreateReminder(t *testing.T) {
	t.Parallel()

	startDate := time.Now().UTC().Format("2006-01-02")

	tests := []struct {
		name       string
		mutate     func(env *reminderTestEnv, body map[string]any)
		wantStatus int
	}{
		{
			name:       "creates reminder and queues reconcile",
			wantStatus: http.StatusCreated,
		},
		{
			name: "rejects unknown schedule type",
			mutate: func(env *reminderTestEnv, body map[string]any) {
				body["schedule_type"] = "hourly"
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "rejects malformed time of day",
			mutate: func(env *reminderTestEnv, body map[string]any) {
				body["times_of_day"] = []string{"25:00"}
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "rejects unknown timezone",
			mutate: func(env *reminderTestEnv, body map[string]any) {
				body["timezone"] = "Mars/Olympus_Mons"
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "rejects weekly without weekday mask",
			mutate: func(env *reminderTestEnv, body map[string]any) {
				body["schedule_type"] = "weekly"
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "403 for another owner's pet",
			mutate: func(env *reminderTestEnv, body map[string]any) {
				env.pet.OwnerID = uuid.New()
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt // capture range variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newReminderEnv()

			var inserted []*models.Occurrence
			env.occ.insertBatchFunc = func(ctx context.Context, occurrences []*models.Occurrence) error {
				inserted = occurrences
				return nil
			}

			body := map[string]any{
				"pet_id":        env.pet.ID.String(),
				"title":         "Morning meds",
				"schedule_type": "daily",
				"times_of_day":  []string{"08:00"},
				"start_date":    startDate,
				"timezone":      "UTC",
			}
			if tt.mutate != nil {
				tt.mutate(env, body)
			}

			w := env.serve(env.owner, newTestRequest("POST", "/reminders", body))
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (body: %s)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				if len(env.jobs.enqueued) != 0 {
					t.Errorf("Expected no jobs on failure, got %v", env.enqueuedTypes())
				}
				return
			}

			if len(inserted) == 0 {
				t.Error("Expected occurrences to be materialized on create")
			}
			types := env.enqueuedTypes()
			if len(types) != 1 || types[0] != queue.JobTypeReconcile {
				t.Errorf("Expected one reconcile job, got %v", types)
			}
		})
	}
}

func TestUpdateReminder_TitleOnlyDoesNotRebuild(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	replaced := false
	env.occ.replaceFromFunc = func(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error {
		replaced = true
		return nil
	}

	body := map[string]any{"title": "Evening meds (new dose)"}
	w := env.serve(env.owner, newTestRequest("PATCH", "/reminders/"+reminder.ID.String(), body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	if replaced {
		t.Error("Title-only edit must not rebuild the occurrence window")
	}
	types := env.enqueuedTypes()
	if len(types) != 1 || types[0] != queue.JobTypeReconcile {
		t.Errorf("Expected one reconcile job, got %v", types)
	}
}

func TestUpdateReminder_ScheduleChangeRebuilds(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	replaced := false
	env.occ.replaceFromFunc = func(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error {
		if reminderID != reminder.ID {
			t.Errorf("Expected rebuild for %s, got %s", reminder.ID, reminderID)
		}
		replaced = true
		return nil
	}

	body := map[string]any{"times_of_day": []string{"09:30"}}
	w := env.serve(env.owner, newTestRequest("PATCH", "/reminders/"+reminder.ID.String(), body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	if !replaced {
		t.Error("Schedule edit must rebuild the occurrence window")
	}
}

func TestUpdateReminder_Ownership(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	w := env.serve(uuid.New(), newTestRequest("PATCH", "/reminders/"+reminder.ID.String(), map[string]any{"title": "x"}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403, got %d", w.Code)
	}

	w = env.serve(env.owner, newTestRequest("PATCH", "/reminders/"+uuid.New().String(), map[string]any{"title": "x"}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
}

func TestRefreshReminder_QueuesReexpand(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	w := env.serve(env.owner, newTestRequest("POST", "/reminders/"+reminder.ID.String()+"/refresh", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d (body: %s)", w.Code, w.Body.String())
	}

	if len(env.jobs.enqueued) != 1 {
		t.Fatalf("Expected one job, got %d", len(env.jobs.enqueued))
	}
	job := env.jobs.enqueued[0]
	if job.Type != queue.JobTypeReexpand {
		t.Errorf("Expected %s job, got %s", queue.JobTypeReexpand, job.Type)
	}
	if job.ReminderID != reminder.ID {
		t.Errorf("Expected job for reminder %s, got %s", reminder.ID, job.ReminderID)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	if data["job_id"] == "" {
		t.Error("Expected job_id in response")
	}
}

func TestSetNotifications(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	var gotEnabled *bool
	env.reminder.updateEnabledFunc = func(ctx context.Context, id uuid.UUID, enabled bool) error {
		gotEnabled = &enabled
		return nil
	}

	w := env.serve(env.owner, newTestRequest("PATCH", "/reminders/"+reminder.ID.String()+"/notifications", map[string]any{"enabled": false}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	if gotEnabled == nil || *gotEnabled {
		t.Error("Expected notifications to be disabled")
	}
	types := env.enqueuedTypes()
	if len(types) != 1 || types[0] != queue.JobTypeReconcile {
		t.Errorf("Expected one reconcile job, got %v", types)
	}
}

func TestUpcomingOccurrences_Limit(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	var gotLimit int
	env.occ.upcomingFunc = func(ctx context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error) {
		gotLimit = limit
		return nil, nil
	}

	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{name: "defaults", query: "", wantLimit: DefaultUpcomingLimit},
		{name: "explicit limit", query: "?limit=5", wantLimit: 5},
		{name: "clamps oversized limit", query: "?limit=100000", wantLimit: MaxUpcomingLimit},
		{name: "ignores garbage limit", query: "?limit=soon", wantLimit: DefaultUpcomingLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(env.owner, newTestRequest("GET", "/reminders/"+reminder.ID.String()+"/upcoming"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("Expected limit %d, got %d", tt.wantLimit, gotLimit)
			}
		})
	}
}

func TestDeleteReminder_CancelsAlerts(t *testing.T) {
	t.Parallel()

	env := newReminderEnv()
	reminder := env.existingReminder()

	env.gateway.SetAuthorizationState(alerts.AuthorizationAuthorized)
	if _, err := env.gateway.ScheduleAt(context.Background(), alerts.ScheduleRequest{
		ReminderID: reminder.ID,
		At:         time.Now().Add(time.Hour),
		Title:      reminder.Title,
	}); err != nil {
		t.Fatalf("Failed to seed alert: %v", err)
	}

	deleted := false
	env.reminder.deleteFunc = func(ctx context.Context, id uuid.UUID) error {
		deleted = true
		return nil
	}

	w := env.serve(env.owner, newTestRequest("DELETE", "/reminders/"+reminder.ID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	if !deleted {
		t.Error("Expected repository delete to be called")
	}
	if got := env.gateway.Scheduled(reminder.ID); len(got) != 0 {
		t.Errorf("Expected alerts to be canceled, %d remain", len(got))
	}
}
