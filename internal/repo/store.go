package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go-servicereq/internal/domain"
)

// Store is the GORM-backed domain.Store.
type Store struct {
	db       *gorm.DB
	users    *UserDataRepo
	requests *ServiceRequestRepo
	reports  *ReportRepo
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		users:    NewUserDataRepo(db),
		requests: NewServiceRequestRepo(db),
		reports:  NewReportRepo(db),
	}
}

func (s *Store) Users() domain.UserDataRepository          { return s.users }
func (s *Store) Requests() domain.ServiceRequestRepository { return s.requests }
func (s *Store) Reports() domain.ReportRepository          { return s.reports }

func (s *Store) Tx(ctx context.Context, fn func(domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
		return errors.Join(domain.ErrDuplicate, err)
	}
	return err
}

// isDupKey catches unique violations from dialects GORM does not translate.
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

// first runs q.First and reports a missing row as (false, nil).
func first(q *gorm.DB, dest any) (bool, error) {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
