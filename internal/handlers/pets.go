package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/middleware"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/validation"
)

// PetHandler handles pet-related requests
type PetHandler struct {
	petRepo database.PetRepositoryInterface
}

// NewPetHandler creates a new pet handler
func NewPetHandler(petRepo database.PetRepositoryInterface) *PetHandler {
	return &PetHandler{petRepo: petRepo}
}

// RegisterRoutes registers pet routes on the given router
// The router should already have the /pets prefix (e.g., from apiRouter.PathPrefix("/pets"))
func (h *PetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListPets).Methods("GET")
	r.HandleFunc("", h.CreatePet).Methods("POST")
	r.HandleFunc("/{id}", h.GetPet).Methods("GET")
	r.HandleFunc("/{id}", h.DeletePet).Methods("DELETE")
}

const (
	// MaxPetNameLength is the maximum length for a pet name
	MaxPetNameLength = 200
)

// CreatePetRequest represents a create pet request
type CreatePetRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Species string `json:"species" validate:"max=100"`
}

// ListPets lists pets for the authenticated owner
func (h *PetHandler) ListPets(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	pets, err := h.petRepo.GetByOwnerID(r.Context(), owner)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pets")
		return
	}
	if pets == nil {
		pets = []*models.Pet{}
	}

	respondJSON(w, http.StatusOK, pets)
}

// CreatePet creates a new pet
func (h *PetHandler) CreatePet(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	var req CreatePetRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
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

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}
	req.Species = validation.SanitizeText(req.Species)

	pet := &models.Pet{
		ID:      uuid.New(),
		OwnerID: owner,
		Name:    req.Name,
		Species: req.Species,
	}

	if err := h.petRepo.Create(r.Context(), pet); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create pet")
		return
	}

	respondJSON(w, http.StatusCreated, pet)
}

// GetPet retrieves a pet by ID
func (h *PetHandler) GetPet(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid pet ID")
		return
	}

	pet, err := h.petRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Pet not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve pet")
		return
	}

	// Verify pet belongs to owner
	if pet.OwnerID != owner {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Pet does not belong to owner")
		return
	}

	respondJSON(w, http.StatusOK, pet)
}

// DeletePet deletes a pet together with its reminders and occurrences
func (h *PetHandler) DeletePet(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r)
	if owner == uuid.Nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Owner not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid pet ID")
		return
	}

	pet, err := h.petRepo.GetByID(r.Context(), id)
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

	if err := h.petRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete pet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}
