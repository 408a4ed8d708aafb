package repo

import (
	"context"

	"gorm.io/gorm"

	"go-servicereq/internal/domain"
)

type ReportRepo struct{ db *gorm.DB }

func NewReportRepo(db *gorm.DB) *ReportRepo { return &ReportRepo{db: db} }

func (r *ReportRepo) Create(ctx context.Context, rep *domain.ServiceReport) error {
	return translate(r.db.WithContext(ctx).Create(rep).Error)
}

func (r *ReportRepo) find(ctx context.Context, where string, args ...any) (*domain.ServiceReport, error) {
	var rep domain.ServiceReport
	ok, err := first(r.db.WithContext(ctx).Where(where, args...), &rep)
	if !ok {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepo) FindByID(ctx context.Context, id int64) (*domain.ServiceReport, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *ReportRepo) FindByServiceReqID(ctx context.Context, serviceReqID int64) (*domain.ServiceReport, error) {
	return r.find(ctx, "service_req_id = ?", serviceReqID)
}

func (r *ReportRepo) List(ctx context.Context) ([]domain.ServiceReport, error) {
	rows := []domain.ServiceReport{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
