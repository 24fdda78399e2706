package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pawkit/pet-reminders/internal/alerts"
	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/queue"
	"github.com/pawkit/pet-reminders/internal/scheduling"
)

// ReminderSyncer processes reminder sync jobs: occurrence re-expansion and
// alert reconciliation.
type ReminderSyncer struct {
	service      *scheduling.Service
	reconciler   *scheduling.Reconciler
	reminderRepo database.ReminderRepositoryInterface
	jobQueue     queue.JobQueue // For re-enqueueing jobs with delays
}

// NewReminderSyncer creates a new reminder syncer
func NewReminderSyncer(
	service *scheduling.Service,
	reconciler *scheduling.Reconciler,
	reminderRepo database.ReminderRepositoryInterface,
	jobQueue queue.JobQueue,
) *ReminderSyncer {
	return &ReminderSyncer{
		service:      service,
		reconciler:   reconciler,
		reminderRepo: reminderRepo,
		jobQueue:     jobQueue,
	}
}

// ProcessReexpandJob rebuilds the occurrence window for the job's reminder.
func (s *ReminderSyncer) ProcessReexpandJob(ctx context.Context, job *queue.Job) error {
	reminder, err := s.reminderRepo.GetByID(ctx, job.ReminderID)
	if err != nil {
		return fmt.Errorf("failed to get reminder: %w", err)
	}

	// Verify reminder belongs to owner
	if reminder.OwnerID != job.OwnerID {
		return fmt.Errorf("reminder does not belong to owner")
	}

	if err := s.service.Reexpand(ctx, job.ReminderID, nil); err != nil {
		return fmt.Errorf("failed to re-expand reminder: %w", err)
	}

	log.Printf("Re-expanded reminder %s for owner %s", job.ReminderID, job.OwnerID)

	// A fresh window means the scheduled alerts are stale; chain a
	// reconcile job rather than reconciling inline so a relay outage
	// cannot fail the expansion.
	if s.jobQueue != nil {
		reconcileJob := queue.NewJob(queue.JobTypeReconcile, job.OwnerID, job.ReminderID)
		if err := s.jobQueue.Enqueue(ctx, reconcileJob); err != nil {
			log.Printf("Failed to enqueue follow-up reconcile for reminder %s: %v", job.ReminderID, err)
		}
	}
	return nil
}

// ProcessReconcileJob syncs the reminder's scheduled alerts with its stored
// occurrences.
func (s *ReminderSyncer) ProcessReconcileJob(ctx context.Context, job *queue.Job) error {
	reminder, err := s.reminderRepo.GetByID(ctx, job.ReminderID)
	if err != nil {
		return fmt.Errorf("failed to get reminder: %w", err)
	}

	if reminder.OwnerID != job.OwnerID {
		return fmt.Errorf("reminder does not belong to owner")
	}

	result, err := s.reconciler.Reconcile(ctx, job.ReminderID)
	if err != nil {
		return fmt.Errorf("failed to reconcile reminder: %w", err)
	}

	log.Printf("Reconciled reminder %s: scheduled %d alert(s), %d failure(s)",
		job.ReminderID, result.Scheduled, len(result.Failed))
	for _, f := range result.Failed {
		log.Printf("Alert for occurrence %s at %v not scheduled: %s", f.OccurrenceID, f.At, f.Reason)
	}
	return nil
}

// ProcessJob processes a job based on its type
func (s *ReminderSyncer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeReexpand:
		if err := s.ProcessReexpandJob(ctx, job); err != nil {
			return s.handleJobError(ctx, msg, job, err, "re-expansion")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeReconcile:
		if err := s.ProcessReconcileJob(ctx, job); err != nil {
			return s.handleJobError(ctx, msg, job, err, "reconciliation")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing with retry logic
func (s *ReminderSyncer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	// A deleted reminder makes the job moot: ack and move on.
	if errors.Is(err, database.ErrNotFound) {
		log.Printf("Reminder for %s job %s no longer exists, dropping job", jobType, job.ID)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for missing reminder: %v", ackErr)
		}
		return nil
	}

	// Denied notification permission will not heal on retry; the job is
	// re-run when the owner flips the permission, not by the queue.
	if errors.Is(err, alerts.ErrAuthorizationDenied) {
		log.Printf("Notification authorization denied for %s job %s, dropping job", jobType, job.ID)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack denied-authorization job: %v", ackErr)
		}
		return nil
	}

	// Transient failure: re-enqueue with backoff while retries remain.
	if job.CanRetry() && s.jobQueue != nil {
		retryDelay := retryBackoff(job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			OwnerID:    job.OwnerID,
			ReminderID: job.ReminderID,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if enqueueErr := s.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			log.Printf("Failed to re-enqueue %s job %s: %v", jobType, job.ID, enqueueErr)
			return fmt.Errorf("failed to re-enqueue after error: %w", enqueueErr)
		}

		log.Printf("Re-enqueued %s job %s for retry %d/%d at %v",
			jobType, job.ID, delayedJob.RetryCount, job.MaxRetries, notBefore)
		return nil
	}

	// Out of retries: dead-letter the message.
	log.Printf("%s job %s exhausted retries (%d/%d), sending to DLQ: %v",
		jobType, job.ID, job.RetryCount, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack exhausted job: %v", nackErr)
	}
	return fmt.Errorf("%s failed (job %s): %w", jobType, job.ID, err)
}

// retryBackoff doubles the delay per attempt: 30s, 1m, 2m, ...
func retryBackoff(retryCount int) time.Duration {
	delay := 30 * time.Second
	for i := 0; i < retryCount; i++ {
		delay *= 2
	}
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}
