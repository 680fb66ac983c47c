package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core/school"
)

const schoolColumns = `id, name, motto, address, logo, owner_id, created_at`

type schoolRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Motto     string    `db:"motto"`
	Address   string    `db:"address"`
	Logo      string    `db:"logo"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r schoolRow) toSchool() school.School {
	return school.School{
		ID:        r.ID,
		Name:      r.Name,
		Motto:     r.Motto,
		Address:   r.Address,
		Logo:      r.Logo,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type studentRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	FullName  string    `db:"full_name"`
	CreatedAt time.Time `db:"created_at"`
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	row := schoolRow{
		ID:        uuid.New().String(),
		Name:      sch.Name,
		Motto:     sch.Motto,
		Address:   sch.Address,
		Logo:      sch.Logo,
		OwnerID:   sch.OwnerID,
		CreatedAt: sch.CreatedAt.UTC(),
	}
	q := `INSERT INTO schools (` + schoolColumns + `)
		VALUES (:id, :name, :motto, :address, :logo, :owner_id, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return row.toSchool(), nil
}

// DeleteSchool removes the school; its students go with it (ON DELETE CASCADE).
func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return school.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting school")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo *schoolRepository) GetSchoolByOwner(ctx context.Context, ownerID string) (school.School, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return school.School{}, school.ErrNotFound
	}
	var row schoolRow
	q := `SELECT ` + schoolColumns + ` FROM schools WHERE owner_id = $1`
	if err := repo.db.GetContext(ctx, &row, q, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "selecting school by owner")
	}
	return row.toSchool(), nil
}

// AddStudents inserts the named students in one transaction; names already recorded are skipped.
func (repo *schoolRepository) AddStudents(ctx context.Context, schoolID string, names ...string) ([]school.Student, error) {
	if len(names) == 0 {
		return []school.Student{}, nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO students (id, school_id, full_name, created_at)
		VALUES (:id, :school_id, :full_name, :created_at)
		ON CONFLICT (school_id, full_name) DO NOTHING`)
	if err != nil {
		return nil, errors.Wrap(err, "preparing student insert")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stmt.Close()

	now := time.Now().UTC()
	added := make([]school.Student, 0, len(names))
	for _, name := range names {
		row := studentRow{ID: uuid.New().String(), SchoolID: schoolID, FullName: name, CreatedAt: now}
		res, err := stmt.ExecContext(ctx, row)
		if err != nil {
			return nil, errors.Wrap(err, "inserting student")
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			added = append(added, school.Student(row))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing students")
	}
	return added, nil
}

func (repo *schoolRepository) ListStudents(ctx context.Context, schoolID string) ([]school.Student, error) {
	var rows []studentRow
	q := `SELECT id, school_id, full_name, created_at FROM students WHERE school_id = $1 ORDER BY created_at, full_name`
	if err := repo.db.SelectContext(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, school.Student(r))
	}
	return students, nil
}
