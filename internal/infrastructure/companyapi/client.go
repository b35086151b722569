// Package companyapi cliente HTTP/JSON del directorio remoto de empresas.
package companyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
)

// Client implementa repository.CompanyAPI contra /api/companies.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ repository.CompanyAPI = (*Client)(nil)

// NewClient crea el cliente. timeout acota cada petición (0 = 10s).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError respuesta no exitosa del directorio que no corresponde a un error de dominio.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("companyapi: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) VerifyIdentifier(ctx context.Context, identifier string) (*entity.Company, error) {
	var out entity.Company
	path := "/api/companies/verify/" + url.PathEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, identifier, password string) (*entity.LoginResult, error) {
	var out dto.CompanyLoginResponse
	body := dto.CompanyLoginRequest{Identifier: identifier, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/companies/login", "", body, &out, statusErrors{http.StatusUnauthorized: domain.ErrInvalidCredentials}); err != nil {
		return nil, err
	}
	return &entity.LoginResult{
		Company:      out.Company,
		Subscription: out.Subscription,
		Tokens: entity.TokenPair{
			AccessToken:  out.AccessToken,
			RefreshToken: out.RefreshToken,
			ExpiresIn:    out.ExpiresIn,
		},
	}, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/companies/logout", accessToken, nil, nil, nil)
}

func (c *Client) GetCompanyDetails(ctx context.Context, accessToken string) (*entity.Company, error) {
	var out entity.Company
	if err := c.do(ctx, http.MethodGet, "/api/companies/me", accessToken, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSubscription(ctx context.Context, accessToken string) (*entity.Subscription, error) {
	var out entity.Subscription
	if err := c.do(ctx, http.MethodGet, "/api/companies/me/subscription", accessToken, nil, &out, statusErrors{http.StatusNotFound: domain.ErrNotFound}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*entity.TokenPair, error) {
	var out entity.TokenPair
	body := dto.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/companies/refresh", "", body, &out, statusErrors{http.StatusUnauthorized: domain.ErrRefreshFailed}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping consulta GET /health; lo usa el monitor de conectividad.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("companyapi: health HTTP %d", resp.StatusCode)
	}
	return nil
}

// statusErrors traduce códigos HTTP a errores de dominio para un endpoint concreto.
type statusErrors map[int]error

var defaultStatusErrors = statusErrors{
	http.StatusNotFound:     domain.ErrInvalidIdentifier,
	http.StatusForbidden:    domain.ErrCompanyInactive,
	http.StatusUnauthorized: domain.ErrUnauthorized,
}

// do ejecuta la petición; overrides ajusta la traducción de códigos para el endpoint.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any, overrides statusErrors) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("companyapi: serializar petición: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("companyapi: crear petición: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("companyapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("companyapi: leer respuesta: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("companyapi: decodificar respuesta de %s: %w", path, err)
		}
		return nil
	}

	var apiErr dto.ErrorResponse
	_ = json.Unmarshal(raw, &apiErr)
	sentinel, ok := overrides[resp.StatusCode]
	if !ok {
		sentinel = defaultStatusErrors[resp.StatusCode]
	}
	if sentinel != nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%w: %s", sentinel, apiErr.Message)
		}
		return sentinel
	}
	return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
}
