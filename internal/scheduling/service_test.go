package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/schedule"
)

// fixedNow is the clock every test pins the service to: midday June 10 2025 UTC.
var fixedNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func newTestService(horizonDays int) (*Service, *fakeReminderStore, *fakeOccurrenceStore) {
	reminders := newFakeReminderStore()
	occurrences := newFakeOccurrenceStore()
	svc := NewService(reminders, occurrences, horizonDays, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, reminders, occurrences
}

func dailyReminder(start schedule.Date, times ...schedule.TimeOfDay) *models.Reminder {
	return &models.Reminder{
		ID:                   uuid.New(),
		PetID:                uuid.New(),
		OwnerID:              uuid.New(),
		Title:                "Give heartworm pill",
		ScheduleType:         schedule.KindDaily,
		TimesOfDay:           times,
		StartDate:            start,
		Timezone:             "UTC",
		NotificationsEnabled: true,
	}
}

func TestServiceCreateMaterializesWindow(t *testing.T) {
	t.Parallel()

	svc, _, occurrences := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})

	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Daily from June 1 through June 20 (today + 10 days) inclusive.
	got := occurrences.byReminder(reminder.ID)
	if len(got) != 20 {
		t.Fatalf("expected 20 occurrences, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].OccursAt.Before(got[i].OccursAt) {
			t.Errorf("occurrences out of order at %d: %v >= %v", i, got[i-1].OccursAt, got[i].OccursAt)
		}
	}
	for _, occ := range got {
		if occ.Status != models.OccurrenceStatusPending {
			t.Errorf("expected pending status, got %q", occ.Status)
		}
		if occ.PetID != reminder.PetID || occ.OwnerID != reminder.OwnerID {
			t.Errorf("occurrence did not inherit pet/owner IDs")
		}
	}
}

func TestServiceCreateRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()

	svc, reminders, _ := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1)) // no times of day

	err := svc.Create(context.Background(), reminder)
	if err == nil {
		t.Fatal("expected error for definition with no times of day")
	}
	if _, getErr := reminders.GetByID(context.Background(), reminder.ID); getErr == nil {
		t.Error("invalid reminder must not be persisted")
	}
}

func TestServiceUpdateTitleOnlySkipsRebuild(t *testing.T) {
	t.Parallel()

	svc, _, occurrences := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})
	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := occurrences.byReminder(reminder.ID)

	edited := *reminder
	edited.Title = "Give flea treatment"
	edited.Notes = "with food"

	rebuilt, err := svc.Update(context.Background(), &edited)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rebuilt {
		t.Error("title/notes edit must not rebuild occurrences")
	}

	after := occurrences.byReminder(reminder.ID)
	if len(after) != len(before) {
		t.Fatalf("occurrence count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("occurrence %d was regenerated on a title-only edit", i)
		}
	}
}

func TestServiceUpdateScheduleRebuildsFutureOnly(t *testing.T) {
	t.Parallel()

	svc, _, occurrences := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})
	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Mark the June 5 occurrence done before editing the schedule.
	var doneID uuid.UUID
	for _, occ := range occurrences.byReminder(reminder.ID) {
		if occ.OccursAt.Day() == 5 {
			doneID = occ.ID
			if err := occurrences.UpdateStatus(context.Background(), occ.ID, models.OccurrenceStatusDone); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
		}
	}

	edited := *reminder
	edited.TimesOfDay = []schedule.TimeOfDay{{Hour: 9}}

	rebuilt, err := svc.Update(context.Background(), &edited)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !rebuilt {
		t.Fatal("time-of-day edit must rebuild occurrences")
	}

	today := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	for _, occ := range occurrences.byReminder(reminder.ID) {
		if occ.OccursAt.Before(today) {
			if occ.OccursAt.Hour() != 8 {
				t.Errorf("past occurrence at %v was regenerated", occ.OccursAt)
			}
			if occ.ID == doneID && occ.Status != models.OccurrenceStatusDone {
				t.Error("done status on past occurrence was lost")
			}
		} else {
			if occ.OccursAt.Hour() != 9 {
				t.Errorf("future occurrence at %v not regenerated with new time", occ.OccursAt)
			}
			if occ.Status != models.OccurrenceStatusPending {
				t.Errorf("regenerated occurrence has status %q", occ.Status)
			}
		}
	}
}

func TestServiceReexpandIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, _, occurrences := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})
	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Reexpand(context.Background(), reminder.ID, nil); err != nil {
		t.Fatalf("Reexpand() error = %v", err)
	}
	first := occurrences.byReminder(reminder.ID)

	if err := svc.Reexpand(context.Background(), reminder.ID, nil); err != nil {
		t.Fatalf("Reexpand() error = %v", err)
	}
	second := occurrences.byReminder(reminder.ID)

	if len(first) != len(second) {
		t.Fatalf("re-expansion changed occurrence count: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].OccursAt.Equal(second[i].OccursAt) {
			t.Errorf("re-expansion changed instant %d: %v -> %v", i, first[i].OccursAt, second[i].OccursAt)
		}
	}
}

func TestServiceReexpandPreservesHistory(t *testing.T) {
	t.Parallel()

	svc, _, occurrences := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})
	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, occ := range occurrences.byReminder(reminder.ID) {
		if occ.OccursAt.Day() == 3 {
			if err := occurrences.UpdateStatus(context.Background(), occ.ID, models.OccurrenceStatusDismissed); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
		}
	}

	if err := svc.Reexpand(context.Background(), reminder.ID, nil); err != nil {
		t.Fatalf("Reexpand() error = %v", err)
	}

	var found bool
	for _, occ := range occurrences.byReminder(reminder.ID) {
		if occ.OccursAt.Day() == 3 {
			found = true
			if occ.Status != models.OccurrenceStatusDismissed {
				t.Errorf("dismissed past occurrence reset to %q", occ.Status)
			}
		}
	}
	if !found {
		t.Error("past occurrence was deleted by re-expansion")
	}
}

func TestServiceDeleteRemovesReminder(t *testing.T) {
	t.Parallel()

	svc, reminders, _ := newTestService(10)
	reminder := dailyReminder(schedule.NewDate(2025, time.June, 1), schedule.TimeOfDay{Hour: 8})
	if err := svc.Create(context.Background(), reminder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := reminders.GetByID(context.Background(), reminder.ID); err == nil {
		t.Error("reminder still present after delete")
	}
}
