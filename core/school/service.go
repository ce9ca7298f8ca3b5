package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
)

var (
	// errors
	ErrNotFound   = errors.New("school not found")
	ErrCodeExists = errors.New("a school with this code already exists")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id int64) (School, error)
		GetSchoolByCode(ctx context.Context, code string) (School, error)
		QueryAllSchools(ctx context.Context) ([]School, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		Name:        ns.Name,
		Code:        ns.Code,
		EmailDomain: ns.EmailDomain,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sch, err := svc.repo.CreateSchool(ctx, sch)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return School{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return School{}, err
	}
	return sch, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]School, error) {
	return svc.repo.QueryAllSchools(ctx)
}
