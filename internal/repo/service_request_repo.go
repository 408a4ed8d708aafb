package repo

import (
	"context"

	"gorm.io/gorm"

	"go-servicereq/internal/domain"
)

type ServiceRequestRepo struct{ db *gorm.DB }

func NewServiceRequestRepo(db *gorm.DB) *ServiceRequestRepo { return &ServiceRequestRepo{db: db} }

func (r *ServiceRequestRepo) Create(ctx context.Context, req *domain.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *ServiceRequestRepo) FindByID(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	ok, err := first(r.db.WithContext(ctx).Where("id = ?", id), &req)
	if !ok {
		return nil, err
	}
	return &req, nil
}

func (r *ServiceRequestRepo) list(ctx context.Context, where string, args ...any) ([]domain.ServiceRequest, error) {
	q := r.db.WithContext(ctx).Model(&domain.ServiceRequest{})
	if where != "" {
		q = q.Where(where, args...)
	}
	rows := []domain.ServiceRequest{}
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ServiceRequestRepo) List(ctx context.Context) ([]domain.ServiceRequest, error) {
	return r.list(ctx, "")
}

func (r *ServiceRequestRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.ServiceRequest, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *ServiceRequestRepo) ListByProductID(ctx context.Context, productID int64) ([]domain.ServiceRequest, error) {
	return r.list(ctx, "product_id = ?", productID)
}

func (r *ServiceRequestRepo) ListByUserAndProduct(ctx context.Context, userID, productID int64) ([]domain.ServiceRequest, error) {
	return r.list(ctx, "user_id = ? AND product_id = ?", userID, productID)
}

func (r *ServiceRequestRepo) Update(ctx context.Context, req *domain.ServiceRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *ServiceRequestRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ServiceRequest{}).Error
}
