// Package servicereq orchestrates service requests and their reports on top of
// the Auth, Product and User services and the local store.
package servicereq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-servicereq/internal/domain"
	"go-servicereq/internal/events"
)

const (
	msgUnauthorizedDataAccess = "UNAUTHORIZED_DATA_ACCESS"
	msgDeleteInvalid          = "ITEM REQUESTED TO DELETE IS INVALID"
	msgUpdateInvalid          = "ITEM REQUESTED TO UPDATE IS INVALID"
)

// RequestInput is the body of a new service request.
type RequestInput struct {
	ProductID   int64  `json:"productId" binding:"required,gt=0"`
	Problem     string `json:"problem" binding:"max=255"`
	Description string `json:"description"`
}

// UpdateInput carries the editable fields of a request.
type UpdateInput struct {
	Problem     string `json:"problem" binding:"max=255"`
	Description string `json:"description"`
}

// ReportInput is the body of a resolution report.
type ReportInput struct {
	ServiceReqID     int64   `json:"serviceReqId" binding:"required,gt=0"`
	ServiceType      string  `json:"serviceType" binding:"max=64"`
	ActionTaken      string  `json:"actionTaken"`
	DiagnosisDetails string  `json:"diagnosisDetails"`
	Paid             bool    `json:"paid"`
	VisitFees        float64 `json:"visitFees" binding:"gte=0"`
	RepairDetails    string  `json:"repairDetails"`
}

type Options struct {
	// FirstProductOnly restricts product-scoped listings to the first product
	// the caller owns, as older deployments did.
	FirstProductOnly bool
}

type Deps struct {
	Auth     domain.AuthGateway
	Products domain.ProductDirectory
	Users    domain.UserDirectory
	Store    domain.Store
	Events   events.Publisher
	Log      *zap.Logger
}

type Service struct {
	auth     domain.AuthGateway
	products domain.ProductDirectory
	users    domain.UserDirectory
	store    domain.Store
	events   events.Publisher
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func New(d Deps, opts Options) *Service {
	s := &Service{
		auth:     d.Auth,
		products: d.Products,
		users:    d.Users,
		store:    d.Store,
		events:   d.Events,
		log:      d.Log,
		opts:     opts,
		now:      time.Now,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("servicereq")
	return s
}

// authorize validates token and returns denied when the Auth service says it
// is not valid. Transport failures are returned unchanged.
func (s *Service) authorize(ctx context.Context, token string, denied error) (domain.TokenInfo, error) {
	info, err := s.auth.Validate(ctx, token)
	if err != nil {
		return info, err
	}
	if !info.Valid {
		return info, denied
	}
	return info, nil
}

// SubmitRequest records a new Pending request for a product the caller can see.
// Admins cannot submit.
func (s *Service) SubmitRequest(ctx context.Context, token string, in RequestInput) (domain.ServiceResponse, error) {
	info, err := s.authorize(ctx, token, domain.ErrUnauthorized)
	if err != nil {
		return domain.ServiceResponse{}, err
	}
	if info.Role.IsAdmin() {
		return domain.ServiceResponse{}, domain.ErrUnauthorized
	}
	product, err := s.products.ProductByID(ctx, token, in.ProductID)
	if err != nil {
		return domain.ServiceResponse{}, err
	}
	if product == nil {
		return domain.ServiceResponse{}, domain.ErrUnauthorized
	}
	profile, err := s.users.CurrentUser(ctx, token)
	if err != nil {
		return domain.ServiceResponse{}, err
	}

	var (
		created domain.ServiceRequest
		owner   domain.UserData
	)
	err = s.store.Tx(ctx, func(st domain.Store) error {
		u, err := ensureUser(ctx, st, profile)
		if err != nil {
			return err
		}
		req := domain.ServiceRequest{
			ProductID:   in.ProductID,
			UserID:      u.UserID,
			RequestDate: s.now(),
			Problem:     in.Problem,
			Description: in.Description,
			Status:      domain.StatusPending,
		}
		if err := st.Requests().Create(ctx, &req); err != nil {
			return err
		}
		created, owner = req, u
		return nil
	})
	if err != nil {
		return domain.ServiceResponse{}, fmt.Errorf("submit request: %w", err)
	}
	s.log.Info("service request created",
		zap.Int64("id", created.ID), zap.Int64("product_id", created.ProductID), zap.Int64("user_id", created.UserID))
	s.publish(ctx, events.RequestCreated, created)
	return domain.NewServiceResponse(created, owner), nil
}

// ensureUser returns the local UserData for profile, creating it on first
// sight. A concurrent insert of the same id is resolved by re-reading.
func ensureUser(ctx context.Context, st domain.Store, profile *domain.UserProfile) (domain.UserData, error) {
	existing, err := st.Users().FindByID(ctx, profile.ID)
	if err != nil {
		return domain.UserData{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	u := domain.UserData{UserID: profile.ID, Name: profile.Name, Email: profile.Email, Mobile: profile.Mobile}
	// nested Tx is a savepoint, so a failed insert leaves the outer transaction usable
	err = st.Tx(ctx, func(inner domain.Store) error {
		return inner.Users().Create(ctx, &u)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		existing, err = st.Users().FindByID(ctx, profile.ID)
		if err != nil {
			return domain.UserData{}, err
		}
		if existing == nil {
			return domain.UserData{}, fmt.Errorf("user %d vanished after duplicate insert", profile.ID)
		}
		return *existing, nil
	}
	if err != nil {
		return domain.UserData{}, err
	}
	return u, nil
}

// ListMyProductRequests lists the requests raised against the caller's products.
func (s *Service) ListMyProductRequests(ctx context.Context, token string) ([]domain.ServiceResponse, error) {
	if _, err := s.authorize(ctx, token, domain.InvalidDataAccess(msgUnauthorizedDataAccess)); err != nil {
		return nil, err
	}
	products, err := s.products.MyProducts(ctx, token)
	if err != nil {
		return nil, err
	}
	var out []domain.ServiceResponse
	err = s.store.Tx(ctx, func(st domain.Store) error {
		rows, err := s.productRequests(ctx, st, products)
		if err != nil {
			return err
		}
		out, err = s.withUsers(ctx, st, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMyRequests lists the requests the caller raised.
func (s *Service) ListMyRequests(ctx context.Context, token string) ([]domain.ServiceRequest, error) {
	if _, err := s.authorize(ctx, token, domain.InvalidDataAccess(msgUnauthorizedDataAccess)); err != nil {
		return nil, err
	}
	profile, err := s.users.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.Requests().ListByUserID(ctx, profile.ID)
}

// ListAllRequests lists every request. Admin only.
func (s *Service) ListAllRequests(ctx context.Context, token string) ([]domain.ServiceRequest, error) {
	denied := domain.InvalidDataAccess(msgUnauthorizedDataAccess)
	info, err := s.authorize(ctx, token, denied)
	if err != nil {
		return nil, err
	}
	if !info.Role.IsAdmin() {
		return nil, denied
	}
	return s.store.Requests().List(ctx)
}

// DeleteRequest removes a request. Admins may remove any request, other
// callers only their own.
func (s *Service) DeleteRequest(ctx context.Context, token string, id int64) (domain.ServiceRequest, error) {
	var deleted domain.ServiceRequest
	err := s.mutateOwned(ctx, token, id, msgDeleteInvalid, func(st domain.Store, req *domain.ServiceRequest) error {
		deleted = *req
		return st.Requests().Delete(ctx, req.ID)
	})
	if err != nil {
		return domain.ServiceRequest{}, err
	}
	s.log.Info("service request deleted", zap.Int64("id", id))
	s.publish(ctx, events.RequestDeleted, deleted)
	return deleted, nil
}

// UpdateRequest overwrites problem and description. Same access rule as
// DeleteRequest.
func (s *Service) UpdateRequest(ctx context.Context, token string, id int64, in UpdateInput) (domain.ServiceRequest, error) {
	var updated domain.ServiceRequest
	err := s.mutateOwned(ctx, token, id, msgUpdateInvalid, func(st domain.Store, req *domain.ServiceRequest) error {
		req.Problem = in.Problem
		req.Description = in.Description
		updated = *req
		return st.Requests().Update(ctx, req)
	})
	if err != nil {
		return domain.ServiceRequest{}, err
	}
	s.log.Info("service request updated", zap.Int64("id", id))
	s.publish(ctx, events.RequestUpdated, updated)
	return updated, nil
}

// mutateOwned loads request id inside a transaction and hands it to fn when the
// caller may change it; otherwise it fails with RequestNotExists(missing).
func (s *Service) mutateOwned(ctx context.Context, token string, id int64, missing string,
	fn func(st domain.Store, req *domain.ServiceRequest) error) error {
	info, err := s.authorize(ctx, token, domain.InvalidDataAccess(msgUnauthorizedDataAccess))
	if err != nil {
		return err
	}
	admin := info.Role.IsAdmin()
	var owner int64
	if !admin {
		profile, err := s.users.CurrentUser(ctx, token)
		if err != nil {
			return err
		}
		owner = profile.ID
	}
	return s.store.Tx(ctx, func(st domain.Store) error {
		req, err := st.Requests().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if req == nil || (!admin && req.UserID != owner) {
			return domain.RequestNotExists(missing)
		}
		return fn(st, req)
	})
}

// RequestsByUserID lists a user's requests. Admins see all of them, other
// callers only those against products they own.
func (s *Service) RequestsByUserID(ctx context.Context, token string, userID int64) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	err := s.requestsByUser(ctx, token, userID, func(_ domain.Store, rows []domain.ServiceRequest) error {
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) requestsByUser(ctx context.Context, token string, userID int64,
	fn func(st domain.Store, rows []domain.ServiceRequest) error) error {
	info, err := s.authorize(ctx, token, domain.ErrInvalidDataAccess)
	if err != nil {
		return err
	}
	if info.Role.IsAdmin() {
		return s.store.Tx(ctx, func(st domain.Store) error {
			rows, err := st.Requests().ListByUserID(ctx, userID)
			if err != nil {
				return err
			}
			return fn(st, rows)
		})
	}
	products, err := s.products.MyProducts(ctx, token)
	if err != nil {
		return err
	}
	return s.store.Tx(ctx, func(st domain.Store) error {
		parts := make([][]domain.ServiceRequest, 0, len(products))
		for _, p := range products {
			rows, err := st.Requests().ListByUserAndProduct(ctx, userID, p.ID)
			if err != nil {
				return err
			}
			parts = append(parts, rows)
		}
		return fn(st, aggregate(parts, s.opts.FirstProductOnly))
	})
}

// CreateReport files the resolution report of a request against one of the
// caller's products and marks the request Resolved.
func (s *Service) CreateReport(ctx context.Context, token string, in ReportInput) (domain.ServiceReport, error) {
	if _, err := s.authorize(ctx, token, domain.ErrInvalidDataAccess); err != nil {
		return domain.ServiceReport{}, err
	}
	products, err := s.products.MyProducts(ctx, token)
	if err != nil {
		return domain.ServiceReport{}, err
	}

	var (
		report   domain.ServiceReport
		resolved domain.ServiceRequest
	)
	err = s.store.Tx(ctx, func(st domain.Store) error {
		owned, err := s.productRequests(ctx, st, products)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			return domain.ErrNoRequestFound
		}
		existing, err := st.Reports().FindByServiceReqID(ctx, in.ServiceReqID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrServiceAlreadyProvided
		}
		var target *domain.ServiceRequest
		for i := range owned {
			if owned[i].ID == in.ServiceReqID {
				target = &owned[i]
				break
			}
		}
		if target == nil {
			return domain.ErrNoRequestFound
		}

		report = domain.ServiceReport{
			ServiceReqID:     in.ServiceReqID,
			ServiceType:      in.ServiceType,
			ActionTaken:      in.ActionTaken,
			DiagnosisDetails: in.DiagnosisDetails,
			Paid:             in.Paid,
			VisitFees:        in.VisitFees,
			RepairDetails:    in.RepairDetails,
		}
		if err := st.Reports().Create(ctx, &report); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.ErrServiceAlreadyProvided
			}
			return err
		}
		target.Status = domain.StatusResolved
		resolved = *target
		return st.Requests().Update(ctx, target)
	})
	if err != nil {
		return domain.ServiceReport{}, err
	}
	s.log.Info("service report filed", zap.Int64("report_id", report.ID), zap.Int64("request_id", report.ServiceReqID))
	s.publish(ctx, events.RequestResolved, resolved)
	return report, nil
}

// ReportsByUserID lists the reports of the requests RequestsByUserID would return.
func (s *Service) ReportsByUserID(ctx context.Context, token string, userID int64) ([]domain.ServiceReport, error) {
	var out []domain.ServiceReport
	err := s.requestsByUser(ctx, token, userID, func(st domain.Store, rows []domain.ServiceRequest) error {
		var err error
		out, err = s.reportsFor(ctx, st, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllReports lists every report for admins, and the reports of requests
// against the caller's products otherwise.
func (s *Service) AllReports(ctx context.Context, token string) ([]domain.ServiceReport, error) {
	info, err := s.authorize(ctx, token, domain.ErrInvalidDataAccess)
	if err != nil {
		return nil, err
	}
	if info.Role.IsAdmin() {
		return s.store.Reports().List(ctx)
	}
	products, err := s.products.MyProducts(ctx, token)
	if err != nil {
		return nil, err
	}
	var out []domain.ServiceReport
	err = s.store.Tx(ctx, func(st domain.Store) error {
		owned, err := s.productRequests(ctx, st, products)
		if err != nil {
			return err
		}
		out, err = s.reportsFor(ctx, st, owned)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReportByID returns one report. Non-admins only see reports of requests
// against their products.
func (s *Service) ReportByID(ctx context.Context, token string, id int64) (domain.ServiceReport, error) {
	info, err := s.authorize(ctx, token, domain.ErrInvalidDataAccess)
	if err != nil {
		return domain.ServiceReport{}, err
	}
	if info.Role.IsAdmin() {
		rep, err := s.store.Reports().FindByID(ctx, id)
		if err != nil {
			return domain.ServiceReport{}, err
		}
		if rep == nil {
			return domain.ServiceReport{}, domain.ErrReportNotFound
		}
		return *rep, nil
	}
	products, err := s.products.MyProducts(ctx, token)
	if err != nil {
		return domain.ServiceReport{}, err
	}
	var out *domain.ServiceReport
	err = s.store.Tx(ctx, func(st domain.Store) error {
		owned, err := s.productRequests(ctx, st, products)
		if err != nil {
			return err
		}
		rep, err := st.Reports().FindByID(ctx, id)
		if err != nil || rep == nil {
			return err
		}
		for _, r := range owned {
			if r.ID == rep.ServiceReqID {
				out = rep
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.ServiceReport{}, err
	}
	if out == nil {
		return domain.ServiceReport{}, domain.ErrInvalidDataAccess
	}
	return *out, nil
}

// productRequests collects the requests raised against products, in product
// order then id order.
func (s *Service) productRequests(ctx context.Context, st domain.Store, products []domain.Product) ([]domain.ServiceRequest, error) {
	parts := make([][]domain.ServiceRequest, 0, len(products))
	for _, p := range products {
		rows, err := st.Requests().ListByProductID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rows)
		if s.opts.FirstProductOnly {
			break
		}
	}
	return aggregate(parts, s.opts.FirstProductOnly), nil
}

// aggregate concatenates parts in order, or keeps only the first one.
func aggregate[T any](parts [][]T, firstOnly bool) []T {
	out := []T{}
	for i, p := range parts {
		if firstOnly && i > 0 {
			break
		}
		out = append(out, p...)
	}
	return out
}

// withUsers joins rows with their UserData. A row whose user is missing keeps
// only the id.
func (s *Service) withUsers(ctx context.Context, st domain.Store, rows []domain.ServiceRequest) ([]domain.ServiceResponse, error) {
	out := make([]domain.ServiceResponse, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			ids = append(ids, r.UserID)
		}
	}
	users, err := st.Users().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		u, ok := users[r.UserID]
		if !ok {
			s.log.Warn("user data missing for request", zap.Int64("request_id", r.ID), zap.Int64("user_id", r.UserID))
			u = domain.UserData{UserID: r.UserID}
		}
		out = append(out, domain.NewServiceResponse(r, u))
	}
	return out, nil
}

// reportsFor returns the reports of rows in row order, skipping rows that have none.
func (s *Service) reportsFor(ctx context.Context, st domain.Store, rows []domain.ServiceRequest) ([]domain.ServiceReport, error) {
	out := make([]domain.ServiceReport, 0, len(rows))
	for _, r := range rows {
		rep, err := st.Reports().FindByServiceReqID(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if rep == nil {
			s.log.Warn("no report for request", zap.Int64("request_id", r.ID))
			continue
		}
		out = append(out, *rep)
	}
	return out, nil
}

// publish runs after commit. Publisher errors never fail the operation.
func (s *Service) publish(ctx context.Context, t events.Type, r domain.ServiceRequest) {
	if err := s.events.Publish(ctx, events.NewEvent(t, r, s.now())); err != nil {
		s.log.Warn("publish event", zap.String("type", string(t)), zap.Int64("request_id", r.ID), zap.Error(err))
	}
}
