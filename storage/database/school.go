package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	query := `
		INSERT INTO schools (name, code, email_domain, is_active, created_at, updated_at)
		VALUES (:name, :code, :email_domain, :is_active, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, query, sch)
	if err != nil {
		if perr, ok := err.(*pq.Error); ok && perr.Code == uniqueViolation {
			return school.School{}, school.ErrCodeExists
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&sch.ID); err != nil {
			return school.School{}, errors.Wrap(err, "scanning school id")
		}
	}
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id int64) (school.School, error) {
	var sch school.School
	err := repo.db.GetContext(ctx, &sch, `SELECT * FROM schools WHERE id = $1`, id)
	return sch, repo.mapGetErr(err, "finding school by id")
}

func (repo *schoolRepository) GetSchoolByCode(ctx context.Context, code string) (school.School, error) {
	var sch school.School
	err := repo.db.GetContext(ctx, &sch, `SELECT * FROM schools WHERE code = $1`, code)
	return sch, repo.mapGetErr(err, "finding school by code")
}

func (repo *schoolRepository) QueryAllSchools(ctx context.Context) ([]school.School, error) {
	var schools []school.School
	if err := repo.db.SelectContext(ctx, &schools, `SELECT * FROM schools ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	return schools, nil
}

func (repo *schoolRepository) mapGetErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
