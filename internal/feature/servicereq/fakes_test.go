package servicereq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go-servicereq/internal/domain"
	"go-servicereq/internal/events"
)

// memStore is an in-memory domain.Store. Tx snapshots the tables and restores
// them when fn fails.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]domain.UserData
	requests map[int64]domain.ServiceRequest
	reports  map[int64]domain.ServiceReport
	nextReq  int64
	nextRep  int64

	// hideUser makes the next FindByID of that user miss, as if another
	// transaction inserted it concurrently.
	hideUser map[int64]bool
	txs      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]domain.UserData{},
		requests: map[int64]domain.ServiceRequest{},
		reports:  map[int64]domain.ServiceReport{},
		hideUser: map[int64]bool{},
	}
}

func (m *memStore) Users() domain.UserDataRepository          { return memUsers{m} }
func (m *memStore) Requests() domain.ServiceRequestRepository { return memRequests{m} }
func (m *memStore) Reports() domain.ReportRepository          { return memReports{m} }

func (m *memStore) Tx(_ context.Context, fn func(domain.Store) error) error {
	m.mu.Lock()
	m.txs++
	users, requests, reports := cloneMap(m.users), cloneMap(m.requests), cloneMap(m.reports)
	nextReq, nextRep := m.nextReq, m.nextRep
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.requests, m.reports = users, requests, reports
		m.nextReq, m.nextRep = nextReq, nextRep
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedValues[V any](in map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []V{}
	for _, id := range ids {
		if keep == nil || keep(in[id]) {
			out = append(out, in[id])
		}
	}
	return out
}

var errDup = errors.Join(domain.ErrDuplicate, errors.New("unique violation"))

type memUsers struct{ m *memStore }

func (r memUsers) FindByID(_ context.Context, id int64) (*domain.UserData, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.hideUser[id] {
		delete(r.m.hideUser, id)
		return nil, nil
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) FindByIDs(_ context.Context, ids []int64) (map[int64]domain.UserData, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[int64]domain.UserData{}
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r memUsers) Create(_ context.Context, u *domain.UserData) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[u.UserID]; ok {
		return errDup
	}
	r.m.users[u.UserID] = *u
	return nil
}

type memRequests struct{ m *memStore }

func (r memRequests) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextReq++
	req.ID = r.m.nextReq
	r.m.requests[req.ID] = *req
	return nil
}

func (r memRequests) FindByID(_ context.Context, id int64) (*domain.ServiceRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r memRequests) list(keep func(domain.ServiceRequest) bool) []domain.ServiceRequest {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return sortedValues(r.m.requests, keep)
}

func (r memRequests) List(context.Context) ([]domain.ServiceRequest, error) {
	return r.list(nil), nil
}

func (r memRequests) ListByUserID(_ context.Context, userID int64) ([]domain.ServiceRequest, error) {
	return r.list(func(x domain.ServiceRequest) bool { return x.UserID == userID }), nil
}

func (r memRequests) ListByProductID(_ context.Context, productID int64) ([]domain.ServiceRequest, error) {
	return r.list(func(x domain.ServiceRequest) bool { return x.ProductID == productID }), nil
}

func (r memRequests) ListByUserAndProduct(_ context.Context, userID, productID int64) ([]domain.ServiceRequest, error) {
	return r.list(func(x domain.ServiceRequest) bool { return x.UserID == userID && x.ProductID == productID }), nil
}

func (r memRequests) Update(_ context.Context, req *domain.ServiceRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.requests[req.ID]; !ok {
		return fmt.Errorf("request %d not found", req.ID)
	}
	r.m.requests[req.ID] = *req
	return nil
}

func (r memRequests) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.requests, id)
	return nil
}

type memReports struct{ m *memStore }

func (r memReports) Create(_ context.Context, rep *domain.ServiceReport) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.reports {
		if x.ServiceReqID == rep.ServiceReqID {
			return errDup
		}
	}
	r.m.nextRep++
	rep.ID = r.m.nextRep
	r.m.reports[rep.ID] = *rep
	return nil
}

func (r memReports) FindByID(_ context.Context, id int64) (*domain.ServiceReport, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rep, ok := r.m.reports[id]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (r memReports) FindByServiceReqID(_ context.Context, reqID int64) (*domain.ServiceReport, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.reports {
		if x.ServiceReqID == reqID {
			return &x, nil
		}
	}
	return nil, nil
}

func (r memReports) List(context.Context) ([]domain.ServiceReport, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return sortedValues(r.m.reports, nil), nil
}

// fakeAuth treats unknown tokens as invalid.
type fakeAuth struct {
	tokens map[string]domain.TokenInfo
	err    error
	calls  int
}

func (a *fakeAuth) Validate(_ context.Context, token string) (domain.TokenInfo, error) {
	a.calls++
	if a.err != nil {
		return domain.TokenInfo{}, a.err
	}
	return a.tokens[token], nil
}

type fakeProducts struct {
	owned   map[string][]domain.Product
	catalog map[int64]domain.Product
}

func (p *fakeProducts) MyProducts(_ context.Context, token string) ([]domain.Product, error) {
	return p.owned[token], nil
}

func (p *fakeProducts) ProductByID(_ context.Context, _ string, id int64) (*domain.Product, error) {
	pr, ok := p.catalog[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

type fakeUsers map[string]domain.UserProfile

func (u fakeUsers) CurrentUser(_ context.Context, token string) (*domain.UserProfile, error) {
	p, ok := u[token]
	if !ok {
		return nil, fmt.Errorf("no profile for %q", token)
	}
	return &p, nil
}

type recorder struct {
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []events.Type {
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
