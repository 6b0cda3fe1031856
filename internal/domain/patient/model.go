package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Species     *string    `db:"species" json:"species,omitempty"`
	Breed       *string    `db:"breed" json:"breed,omitempty"`
	Sex         *string    `db:"sex" json:"sex,omitempty"`
	WeightKG    *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	WeightLB    *float64   `db:"weight_lb" json:"weight_lb,omitempty"`
	OwnerName   *string    `db:"owner_name" json:"owner_name,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
