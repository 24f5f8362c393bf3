package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/google/uuid"
)

// ProfileRepository implements profiles.Repository over a Store.
type ProfileRepository struct {
	s  *Store
	db dbx.DBTX
}

func (r *ProfileRepository) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	defer r.s.lockFor(r.db)()

	for _, existing := range r.s.profiles {
		if existing.Login == p.Login || existing.Email == p.Email {
			return nil, common.ErrDuplicateSubject
		}
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	r.s.profiles[p.ID] = *p
	return p, nil
}

func (r *ProfileRepository) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	defer r.s.lockFor(r.db)()

	for _, p := range r.s.profiles {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *ProfileRepository) GetByID(_ context.Context, id string) (*models.Profile, error) {
	defer r.s.lockFor(r.db)()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Exists(_ context.Context, login, email string) (bool, error) {
	defer r.s.lockFor(r.db)()

	for _, p := range r.s.profiles {
		if p.Login == login || p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProfileRepository) Deactivate(_ context.Context, id string) (bool, error) {
	defer r.s.lockFor(r.db)()

	p, ok := r.s.profiles[id]
	if !ok || !p.Active {
		return false, nil
	}
	p.Active = false
	r.s.profiles[id] = p
	return true, nil
}
