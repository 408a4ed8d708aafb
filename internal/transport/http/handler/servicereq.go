package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-servicereq/internal/domain"
	"go-servicereq/internal/feature/servicereq"
	mdw "go-servicereq/internal/transport/http/middleware"
	resp "go-servicereq/internal/transport/http/response"
	"go-servicereq/internal/upstream"
)

// Orchestrator is the part of servicereq.Service the routes use.
type Orchestrator interface {
	SubmitRequest(ctx context.Context, token string, in servicereq.RequestInput) (domain.ServiceResponse, error)
	ListMyProductRequests(ctx context.Context, token string) ([]domain.ServiceResponse, error)
	ListMyRequests(ctx context.Context, token string) ([]domain.ServiceRequest, error)
	ListAllRequests(ctx context.Context, token string) ([]domain.ServiceRequest, error)
	DeleteRequest(ctx context.Context, token string, id int64) (domain.ServiceRequest, error)
	UpdateRequest(ctx context.Context, token string, id int64, in servicereq.UpdateInput) (domain.ServiceRequest, error)
	RequestsByUserID(ctx context.Context, token string, userID int64) ([]domain.ServiceRequest, error)
	CreateReport(ctx context.Context, token string, in servicereq.ReportInput) (domain.ServiceReport, error)
	ReportsByUserID(ctx context.Context, token string, userID int64) ([]domain.ServiceReport, error)
	AllReports(ctx context.Context, token string) ([]domain.ServiceReport, error)
	ReportByID(ctx context.Context, token string, id int64) (domain.ServiceReport, error)
}

type ServiceReqHandler struct {
	svc Orchestrator
	log *zap.Logger
}

func NewServiceReqHandler(svc Orchestrator, l *zap.Logger) *ServiceReqHandler {
	return &ServiceReqHandler{svc: svc, log: l.Named("http")}
}

type none struct{}

// Mount registers the /servicereq routes on g. g must already require a bearer token.
func (h *ServiceReqHandler) Mount(g *gin.RouterGroup) {
	Register(g, h.fail, Action[servicereq.RequestInput, domain.ServiceResponse]{
		Method: http.MethodPost,
		Binder: BindJSON,
		Handler: func(c *gin.Context, token string, in *servicereq.RequestInput) (domain.ServiceResponse, error) {
			return h.svc.SubmitRequest(c.Request.Context(), token, *in)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceResponse]{
		Method: http.MethodGet,
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceResponse, error) {
			return h.svc.ListMyProductRequests(c.Request.Context(), token)
		},
		Render: func(_ *gin.Context, out []domain.ServiceResponse) resp.Message {
			return resp.OK(resp.TextDataFound, out)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceRequest]{
		Method: http.MethodGet,
		Path:   "/my-requests",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceRequest, error) {
			return h.svc.ListMyRequests(c.Request.Context(), token)
		},
		Render: func(_ *gin.Context, out []domain.ServiceRequest) resp.Message {
			if len(out) == 0 {
				return resp.OK(resp.TextNoRequestsRaised, []domain.ServiceRequest{})
			}
			return resp.OK(resp.TextDataFound, out)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceRequest]{
		Method: http.MethodGet,
		Path:   "/all",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceRequest, error) {
			return h.svc.ListAllRequests(c.Request.Context(), token)
		},
		Render: func(_ *gin.Context, out []domain.ServiceRequest) resp.Message {
			return foundOrNone(resp.TextDataFound, out)
		},
	})

	Register(g, h.fail, Action[none, domain.ServiceRequest]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) (domain.ServiceRequest, error) {
			id, err := pathID(c, "id")
			if err != nil {
				return domain.ServiceRequest{}, err
			}
			return h.svc.DeleteRequest(c.Request.Context(), token, id)
		},
		Render: func(c *gin.Context, out domain.ServiceRequest) resp.Message {
			return resp.OK(fmt.Sprintf("ITEM WITH ID %d DELETED", pathIDOf(c)), out)
		},
	})

	Register(g, h.fail, Action[servicereq.UpdateInput, domain.ServiceRequest]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: BindJSON,
		Handler: func(c *gin.Context, token string, in *servicereq.UpdateInput) (domain.ServiceRequest, error) {
			id, err := pathID(c, "id")
			if err != nil {
				return domain.ServiceRequest{}, err
			}
			return h.svc.UpdateRequest(c.Request.Context(), token, id, *in)
		},
		Render: func(c *gin.Context, out domain.ServiceRequest) resp.Message {
			return resp.OK(fmt.Sprintf("ITEM WITH ID %d UPDATED", pathIDOf(c)), out)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceRequest]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceRequest, error) {
			userID, err := pathID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.RequestsByUserID(c.Request.Context(), token, userID)
		},
		Render: func(c *gin.Context, out []domain.ServiceRequest) resp.Message {
			if len(out) == 0 {
				return resp.OK(fmt.Sprintf("NO REQUEST FOUND FOR USER ID %d", pathIDOf(c)), []domain.ServiceRequest{})
			}
			return resp.OK(fmt.Sprintf("USER'S REQUEST WITH ID %d", pathIDOf(c)), out)
		},
	})

	Register(g, h.fail, Action[servicereq.ReportInput, domain.ServiceReport]{
		Method: http.MethodPost,
		Path:   "/report",
		Binder: BindJSON,
		Handler: func(c *gin.Context, token string, in *servicereq.ReportInput) (domain.ServiceReport, error) {
			return h.svc.CreateReport(c.Request.Context(), token, *in)
		},
		Render: func(_ *gin.Context, out domain.ServiceReport) resp.Message {
			return resp.OK(resp.TextDataSaved, out)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceReport]{
		Method: http.MethodGet,
		Path:   "/report/user/:userId",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceReport, error) {
			userID, err := pathID(c, "userId")
			if err != nil {
				return nil, err
			}
			return h.svc.ReportsByUserID(c.Request.Context(), token, userID)
		},
		Render: func(_ *gin.Context, out []domain.ServiceReport) resp.Message {
			return foundOrNone(resp.TextDataFoundSpaced, out)
		},
	})

	Register(g, h.fail, Action[none, []domain.ServiceReport]{
		Method: http.MethodGet,
		Path:   "/report",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) ([]domain.ServiceReport, error) {
			return h.svc.AllReports(c.Request.Context(), token)
		},
		Render: func(_ *gin.Context, out []domain.ServiceReport) resp.Message {
			return foundOrNone(resp.TextDataFoundSpaced, out)
		},
	})

	Register(g, h.fail, Action[none, domain.ServiceReport]{
		Method: http.MethodGet,
		Path:   "/report/:reportId",
		Binder: BindNone,
		Handler: func(c *gin.Context, token string, _ *none) (domain.ServiceReport, error) {
			id, err := pathID(c, "reportId")
			if err != nil {
				return domain.ServiceReport{}, err
			}
			return h.svc.ReportByID(c.Request.Context(), token, id)
		},
		Render: func(_ *gin.Context, out domain.ServiceReport) resp.Message {
			return resp.OK(resp.TextDataFoundSpaced, out)
		},
	})
}

// foundOrNone answers an empty list with NO DATA FOUND and a null payload.
func foundOrNone[T any](found string, out []T) resp.Message {
	if len(out) == 0 {
		return resp.OK(resp.TextNoDataFound, nil)
	}
	return resp.OK(found, out)
}

// fail maps an error onto the envelope.
func (h *ServiceReqHandler) fail(c *gin.Context, err error) {
	var (
		ae *AErr
		ue *upstream.Error
		de *domain.Error
	)
	switch {
	case errors.As(err, &ae):
		resp.JSON(c, resp.New(ae.Code, ae.Text, ae.Error()))
	case errors.As(err, &ue):
		h.log.Warn("upstream call failed",
			zap.String("rid", mdw.RequestIDOf(c)),
			zap.String("service", ue.Service),
			zap.Stringer("kind", ue.Kind),
			zap.Int("status", ue.StatusCode),
			zap.Error(err))
		resp.JSON(c, resp.New(ue.HTTPStatus(), resp.TextAuthorizationError, ue.Message))
	case errors.As(err, &de):
		resp.JSON(c, domainMessage(de))
	case errors.Is(err, context.DeadlineExceeded):
		resp.JSON(c, resp.Error(http.StatusGatewayTimeout, resp.TextTimeout))
	default:
		_ = c.Error(err)
		h.log.Error("request failed", zap.String("rid", mdw.RequestIDOf(c)), zap.Error(err))
		resp.JSON(c, resp.Error(http.StatusInternalServerError, resp.TextInternalError))
	}
}

func domainMessage(e *domain.Error) resp.Message {
	switch e.Kind {
	case domain.KindUnauthorized:
		return resp.Error(http.StatusUnauthorized, resp.TextAuthorizationError)
	case domain.KindInvalidDataAccess:
		return resp.Error(http.StatusUnauthorized, e.Error())
	case domain.KindRequestNotExists, domain.KindNoRequestFound, domain.KindReportNotFound:
		return resp.Error(http.StatusNotFound, e.Error())
	case domain.KindServiceAlreadyProvided:
		return resp.Error(http.StatusBadRequest, e.Error())
	default:
		return resp.Error(http.StatusInternalServerError, resp.TextInternalError)
	}
}
