package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/surgepay/core/school"
)

type schoolRepository struct {
	schools  *schoolTable
	students *studentTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{schools: db.school, students: db.student}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.schools.Lock()
	defer repo.schools.Unlock()

	sch.ID = uuid.New().String()
	sch.Teachers, sch.Students = nil, nil
	repo.schools.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) DeleteSchool(_ context.Context, id string) error {
	repo.schools.Lock()
	defer repo.schools.Unlock()

	if _, ok := repo.schools.table[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.schools.table, id)

	repo.students.Lock()
	delete(repo.students.table, id)
	repo.students.Unlock()
	return nil
}

func (repo *schoolRepository) GetSchoolByOwner(_ context.Context, ownerID string) (school.School, error) {
	repo.schools.RLock()
	defer repo.schools.RUnlock()

	for _, sch := range repo.schools.table {
		if sch.OwnerID == ownerID {
			return *sch, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) AddStudents(_ context.Context, schoolID string, names ...string) ([]school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	existing := repo.students.table[schoolID]
	added := make([]school.Student, 0, len(names))
	now := time.Now().UTC()
next:
	for _, name := range names {
		for _, st := range existing {
			if st.FullName == name {
				continue next
			}
		}
		st := school.Student{ID: uuid.New().String(), SchoolID: schoolID, FullName: name, CreatedAt: now}
		existing = append(existing, st)
		added = append(added, st)
	}
	repo.students.table[schoolID] = existing
	return added, nil
}

func (repo *schoolRepository) ListStudents(_ context.Context, schoolID string) ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()
	return append([]school.Student(nil), repo.students.table[schoolID]...), nil
}
