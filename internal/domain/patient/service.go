package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Species != nil {
		if canonical, ok := NormalizeSpecies(*p.Species); ok {
			p.Species = &canonical
		}
	}
	if p.Sex != nil {
		if canonical, ok := NormalizeSex(*p.Sex); ok {
			p.Sex = &canonical
		}
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ApplyExtracted merges patient fields extracted from an uploaded document
// into the stored record. Fields are normalized first; anything that does
// not normalize is skipped entirely rather than guessed at. Returns the
// names of the fields that were applied.
func (s *Service) ApplyExtracted(ctx context.Context, id uuid.UUID, fields map[string]string) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", err)
	}

	var applied []string
	if v, ok := fields["name"]; ok && v != "" && p.Name == "" {
		p.Name = v
		applied = append(applied, "name")
	}
	if v, ok := fields["species"]; ok {
		if canonical, ok := NormalizeSpecies(v); ok {
			p.Species = &canonical
			applied = append(applied, "species")
		}
	}
	if v, ok := fields["breed"]; ok && v != "" {
		p.Breed = &v
		applied = append(applied, "breed")
	}
	if v, ok := fields["sex"]; ok {
		if canonical, ok := NormalizeSex(v); ok {
			p.Sex = &canonical
			applied = append(applied, "sex")
		}
	}
	if v, ok := fields["weight"]; ok {
		if w, ok := ParseWeight(v); ok {
			p.WeightKG = &w.KG
			p.WeightLB = &w.LB
			applied = append(applied, "weight")
		}
	}

	if len(applied) == 0 {
		return nil, nil
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return applied, nil
}
