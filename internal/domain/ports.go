package domain

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by repositories when a unique key is violated.
var ErrDuplicate = errors.New("duplicate key")

// Find* methods return (nil, nil) when the row does not exist.
type UserDataRepository interface {
	FindByID(ctx context.Context, userID int64) (*UserData, error)
	FindByIDs(ctx context.Context, userIDs []int64) (map[int64]UserData, error)
	Create(ctx context.Context, u *UserData) error
}

type ServiceRequestRepository interface {
	Create(ctx context.Context, r *ServiceRequest) error
	FindByID(ctx context.Context, id int64) (*ServiceRequest, error)
	List(ctx context.Context) ([]ServiceRequest, error)
	ListByUserID(ctx context.Context, userID int64) ([]ServiceRequest, error)
	ListByProductID(ctx context.Context, productID int64) ([]ServiceRequest, error)
	ListByUserAndProduct(ctx context.Context, userID, productID int64) ([]ServiceRequest, error)
	Update(ctx context.Context, r *ServiceRequest) error
	Delete(ctx context.Context, id int64) error
}

type ReportRepository interface {
	Create(ctx context.Context, r *ServiceReport) error
	FindByID(ctx context.Context, id int64) (*ServiceReport, error)
	FindByServiceReqID(ctx context.Context, serviceReqID int64) (*ServiceReport, error)
	List(ctx context.Context) ([]ServiceReport, error)
}

// Store groups the repositories. Tx runs fn against a Store bound to one
// transaction; fn's error rolls it back.
type Store interface {
	Users() UserDataRepository
	Requests() ServiceRequestRepository
	Reports() ReportRepository
	Tx(ctx context.Context, fn func(s Store) error) error
}

type AuthGateway interface {
	Validate(ctx context.Context, token string) (TokenInfo, error)
}

type ProductDirectory interface {
	MyProducts(ctx context.Context, token string) ([]Product, error)
	// ProductByID returns (nil, nil) when the Product service answers but does
	// not report success for the lookup.
	ProductByID(ctx context.Context, token string, id int64) (*Product, error)
}

type UserDirectory interface {
	CurrentUser(ctx context.Context, token string) (*UserProfile, error)
}
