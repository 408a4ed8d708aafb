package repo

import (
	"context"

	"gorm.io/gorm"

	"go-servicereq/internal/domain"
)

type UserDataRepo struct{ db *gorm.DB }

func NewUserDataRepo(db *gorm.DB) *UserDataRepo { return &UserDataRepo{db: db} }

func (r *UserDataRepo) FindByID(ctx context.Context, userID int64) (*domain.UserData, error) {
	var u domain.UserData
	ok, err := first(r.db.WithContext(ctx).Where("user_id = ?", userID), &u)
	if !ok {
		return nil, err
	}
	return &u, nil
}

func (r *UserDataRepo) FindByIDs(ctx context.Context, userIDs []int64) (map[int64]domain.UserData, error) {
	out := make(map[int64]domain.UserData, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.UserData
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.UserID] = u
	}
	return out, nil
}

func (r *UserDataRepo) Create(ctx context.Context, u *domain.UserData) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}
