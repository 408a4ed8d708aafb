package domain

import "time"

type ServiceStatus string

const (
	StatusPending  ServiceStatus = "Pending"
	StatusResolved ServiceStatus = "Resolved"
)

// UserData is the local copy of a user profile owned by the User service.
type UserData struct {
	UserID int64  `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Name   string `gorm:"size:128" json:"name"`
	Email  string `gorm:"size:191" json:"email"`
	Mobile string `gorm:"size:32" json:"mobile"`
}

func (UserData) TableName() string { return "user_data" }

type ServiceRequest struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	ProductID   int64         `gorm:"index;not null" json:"productId"`
	UserID      int64         `gorm:"index;not null" json:"userId"`
	RequestDate time.Time     `gorm:"not null" json:"requestDate"`
	Problem     string        `gorm:"size:255" json:"problem"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ServiceStatus `gorm:"size:16;not null;default:Pending" json:"status"`
}

func (ServiceRequest) TableName() string { return "service_requests" }

// ServiceResponse is a ServiceRequest joined with the requester's UserData.
type ServiceResponse struct {
	ID          int64         `json:"id"`
	ProductID   int64         `json:"productId"`
	User        UserData      `json:"user"`
	RequestDate time.Time     `json:"requestDate"`
	Problem     string        `json:"problem"`
	Description string        `json:"description"`
	Status      ServiceStatus `json:"status"`
}

func NewServiceResponse(r ServiceRequest, u UserData) ServiceResponse {
	return ServiceResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		User:        u,
		RequestDate: r.RequestDate,
		Problem:     r.Problem,
		Description: r.Description,
		Status:      r.Status,
	}
}

// ServiceReport is the resolution record of a ServiceRequest. A request has at most one.
type ServiceReport struct {
	ID               int64   `gorm:"primaryKey" json:"id"`
	ServiceReqID     int64   `gorm:"uniqueIndex;not null" json:"serviceReqId"`
	ServiceType      string  `gorm:"size:64" json:"serviceType"`
	ActionTaken      string  `gorm:"type:text" json:"actionTaken"`
	DiagnosisDetails string  `gorm:"type:text" json:"diagnosisDetails"`
	Paid             bool    `json:"paid"`
	VisitFees        float64 `json:"visitFees"`
	RepairDetails    string  `gorm:"type:text" json:"repairDetails"`
}

func (ServiceReport) TableName() string { return "service_reports" }

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{&UserData{}, &ServiceRequest{}, &ServiceReport{}}
}

// TokenInfo is what the Auth service says about a bearer token.
type TokenInfo struct {
	Valid bool
	Role  Role
	Email string
}

type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UserProfile struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}
