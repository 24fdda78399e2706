package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pawkit/pet-reminders/internal/models"
)

func TestOwnerID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sub      string
		validate func(*testing.T, uuid.UUID)
	}{
		{
			name: "uuid subject passes through",
			sub:  "a3bb189e-8bf9-3888-9912-ace4e6543002",
			validate: func(t *testing.T, got uuid.UUID) {
				want := uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002")
				if got != want {
					t.Errorf("Expected %s, got %s", want, got)
				}
			},
		},
		{
			name: "opaque subject maps deterministically",
			sub:  "auth0|5f7c8ec7c33c6c004bbafe82",
			validate: func(t *testing.T, got uuid.UUID) {
				if got == uuid.Nil {
					t.Fatal("Expected non-nil owner ID")
				}
				again := OwnerID(&models.JWTClaims{Sub: "auth0|5f7c8ec7c33c6c004bbafe82"})
				if got != again {
					t.Errorf("Expected stable mapping, got %s then %s", got, again)
				}
			},
		},
		{
			name: "different subjects get different owners",
			sub:  "user-one",
			validate: func(t *testing.T, got uuid.UUID) {
				other := OwnerID(&models.JWTClaims{Sub: "user-two"})
				if got == other {
					t.Error("Expected distinct owner IDs for distinct subjects")
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt // capture range variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := OwnerID(&models.JWTClaims{Sub: tt.sub})
			tt.validate(t, got)
		})
	}
}
