package companyapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/infrastructure/companyapi"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/companies/verify/{identifier}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("identifier") {
		case "alfalah":
			writeJSON(w, http.StatusOK, entity.Company{ID: "c-1", Identifier: "alfalah", Name: "Al Falah", IsActive: true})
		case "cerrada":
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Code: dto.CodeCompanyInactive, Message: "empresa inactiva"})
		default:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Code: dto.CodeInvalidIdentifier, Message: "no existe"})
		}
	})
	mux.HandleFunc("POST /api/companies/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.CompanyLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInvalidBody})
			return
		}
		if req.Password != "123456" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Code: dto.CodeInvalidCredentials, Message: "contraseña incorrecta"})
			return
		}
		writeJSON(w, http.StatusOK, dto.CompanyLoginResponse{
			Company:      entity.Company{ID: "c-1", Identifier: req.Identifier},
			Subscription: &entity.Subscription{Status: entity.SubscriptionActive, Plan: "pro"},
			AccessToken:  "acc", RefreshToken: "ref", ExpiresIn: 3600,
		})
	})
	mux.HandleFunc("POST /api/companies/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Code: dto.CodeUnauthorized})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/companies/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, entity.Company{ID: "c-1", Name: "Al Falah"})
	})
	mux.HandleFunc("GET /api/companies/me/subscription", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND"})
	})
	mux.HandleFunc("POST /api/companies/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req dto.RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInvalidBody})
			return
		}
		if req.RefreshToken != "ref" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Code: dto.CodeRefreshFailed})
			return
		}
		writeJSON(w, http.StatusOK, entity.TokenPair{AccessToken: "acc2", RefreshToken: "ref2", ExpiresIn: 3600})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_VerifyIdentifier(t *testing.T) {
	c := companyapi.NewClient(newServer(t).URL+"/", time.Second)
	ctx := context.Background()

	company, err := c.VerifyIdentifier(ctx, "alfalah")
	require.NoError(t, err)
	assert.Equal(t, "Al Falah", company.Name)

	_, err = c.VerifyIdentifier(ctx, "nadie")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = c.VerifyIdentifier(ctx, "cerrada")
	assert.ErrorIs(t, err, domain.ErrCompanyInactive)
}

func TestClient_LoginYRefresh(t *testing.T) {
	c := companyapi.NewClient(newServer(t).URL, time.Second)
	ctx := context.Background()

	res, err := c.Login(ctx, "alfalah", "123456")
	require.NoError(t, err)
	assert.Equal(t, "acc", res.Tokens.AccessToken)
	assert.Equal(t, int64(3600), res.Tokens.ExpiresIn)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, "pro", res.Subscription.Plan)

	_, err = c.Login(ctx, "alfalah", "mala")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	pair, err := c.RefreshToken(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, "acc2", pair.AccessToken)

	_, err = c.RefreshToken(ctx, "vencido")
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)
}

func TestClient_SesionAutenticada(t *testing.T) {
	c := companyapi.NewClient(newServer(t).URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Logout(ctx, "acc"))
	assert.ErrorIs(t, c.Logout(ctx, "otro"), domain.ErrUnauthorized)

	company, err := c.GetCompanyDetails(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, "c-1", company.ID)

	_, err = c.GetSubscription(ctx, "acc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.Ping(ctx))
}

func TestClient_ServidorCaido(t *testing.T) {
	srv := newServer(t)
	c := companyapi.NewClient(srv.URL, time.Second)
	srv.Close()

	_, err := c.VerifyIdentifier(context.Background(), "alfalah")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidIdentifier)
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_ErrorNoMapeado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Code: "UPSTREAM", Message: "caído"})
	}))
	defer srv.Close()

	_, err := companyapi.NewClient(srv.URL, time.Second).GetCompanyDetails(context.Background(), "acc")
	var apiErr *companyapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "UPSTREAM", apiErr.Code)
}
