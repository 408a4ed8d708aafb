package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"go-servicereq/internal/domain"
)

type ProductClient struct{ c client }

func NewProductClient(baseURL string, timeout time.Duration, l *zap.Logger) *ProductClient {
	return &ProductClient{c: newClient("product", baseURL, timeout, l)}
}

// MyProducts lists the products the token's owner is registered against.
func (p *ProductClient) MyProducts(ctx context.Context, token string) ([]domain.Product, error) {
	var env envelope
	if err := p.c.get(ctx, "/products/my-products", token, &env); err != nil {
		return nil, err
	}
	products := []domain.Product{}
	if !env.hasPayload() {
		return products, nil
	}
	if err := json.Unmarshal(env.Payload, &products); err != nil {
		return nil, &Error{Service: p.c.service, Kind: FailMalformed, Message: "decode products", Err: err}
	}
	return products, nil
}

func (p *ProductClient) ProductByID(ctx context.Context, token string, id int64) (*domain.Product, error) {
	var env envelope
	if err := p.c.get(ctx, "/products/"+strconv.FormatInt(id, 10), token, &env); err != nil {
		return nil, err
	}
	if env.StatusCode != http.StatusOK {
		return nil, nil
	}
	product := domain.Product{ID: id}
	if env.hasPayload() {
		if err := json.Unmarshal(env.Payload, &product); err != nil {
			return nil, &Error{Service: p.c.service, Kind: FailMalformed, Message: "decode product", Err: err}
		}
	}
	return &product, nil
}

type UserClient struct{ c client }

func NewUserClient(baseURL string, timeout time.Duration, l *zap.Logger) *UserClient {
	return &UserClient{c: newClient("user", baseURL, timeout, l)}
}

func (u *UserClient) CurrentUser(ctx context.Context, token string) (*domain.UserProfile, error) {
	var env envelope
	if err := u.c.get(ctx, "/users/me", token, &env); err != nil {
		return nil, err
	}
	var profile domain.UserProfile
	if env.hasPayload() {
		if err := json.Unmarshal(env.Payload, &profile); err != nil {
			return nil, &Error{Service: u.c.service, Kind: FailMalformed, Message: "decode user", Err: err}
		}
	}
	if profile.ID == 0 {
		return nil, &Error{Service: u.c.service, Kind: FailMalformed, Message: "user payload has no id"}
	}
	return &profile, nil
}
