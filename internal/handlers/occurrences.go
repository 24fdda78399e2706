package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/middleware"
	"github.com/pawkit/pet-reminders/internal/models"
)

// MaxWindowDays caps the span of a single occurrence window query
const MaxWindowDays = 120

// OccurrenceHandler handles occurrence-related requests
type OccurrenceHandler struct {
	occurrenceRepo database.OccurrenceRepositoryInterface
	petRepo        database.PetRepositoryInterface
}

// NewOccurrenceHandler creates a new occurrence handler
func NewOccurrenceHandler(occurrenceRepo database.OccurrenceRepositoryInterface, petRepo database.PetRepositoryInterface) *OccurrenceHandler {
	return &OccurrenceHandler{occurrenceRepo: occurrenceRepo, petRepo: petRepo}
}

// RegisterRoutes registers occurrence routes on the given router
// The router should already have the /occurrences prefix
func (h *OccurrenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.QueryWindow).Methods("GET")
	r.HandleFunc("/{id}/complete", h.CompleteOccurrence).Methods("POST")
	r.HandleFunc("/{id}/dismiss", h.DismissOccurrence).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteOccurrence).Methods("DELETE")
}

// QueryWindow lists a pet's occurrences in the half-open [from, to) window,
// ordered by fire time
func (h *OccurrenceHandler) QueryWindow(w http.ResponseWriter, r *http.Request) {
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

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "from must be an RFC 3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "to must be an RFC 3339 timestamp")
		return
	}
	if !to.After(from) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "to must be after from")
		return
	}
	if to.Sub(from) > MaxWindowDays*24*time.Hour {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Window exceeds maximum span")
		return
	}

	ctx := r.Context()
	pet, err := h.petRepo.GetByID(ctx, petID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Pet not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pet")
		return
	}
	if pet.OwnerID != owner {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Pet does not belong to owner")
		return
	}

	occurrences, err := h.occurrenceRepo.QueryWindow(ctx, petID, from.UTC(), to.UTC())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve occurrences")
		return
	}
	if occurrences == nil {
		occurrences = []*models.Occurrence{}
	}

	respondJSON(w, http.StatusOK, occurrences)
}

// CompleteOccurrence marks an occurrence done
func (h *OccurrenceHandler) CompleteOccurrence(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.OccurrenceStatusDone)
}

// DismissOccurrence marks an occurrence dismissed without completing it
func (h *OccurrenceHandler) DismissOccurrence(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.OccurrenceStatusDismissed)
}

// DeleteOccurrence removes a single occurrence row. The next re-expansion of
// its reminder will regenerate it if it still falls inside the window.
func (h *OccurrenceHandler) DeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	occurrence, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	if err := h.occurrenceRepo.Delete(r.Context(), occurrence.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Occurrence not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete occurrence")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": occurrence.ID.String()})
}

func (h *OccurrenceHandler) setStatus(w http.ResponseWriter, r *http.Request, status models.OccurrenceStatus) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	occurrence, ok := h.loadOwned(w, r, owner)
	if !ok {
		return
	}

	if err := h.occurrenceRepo.UpdateStatus(r.Context(), occurrence.ID, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Occurrence not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update occurrence")
		return
	}
	occurrence.Status = status

	respondJSON(w, http.StatusOK, occurrence)
}

func (h *OccurrenceHandler) loadOwned(w http.ResponseWriter, r *http.Request, owner uuid.UUID) (*models.Occurrence, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid occurrence ID")
		return nil, false
	}

	occurrence, err := h.occurrenceRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Occurrence not found")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve occurrence")
		return nil, false
	}

	if occurrence.OwnerID != owner {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Occurrence does not belong to owner")
		return nil, false
	}
	return occurrence, true
}
