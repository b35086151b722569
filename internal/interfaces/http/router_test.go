package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/application/directory"
	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/companyapi"
	"github.com/jhoicas/erp-offline/internal/infrastructure/connectivity"
	"github.com/jhoicas/erp-offline/internal/infrastructure/localstore"
	"github.com/jhoicas/erp-offline/internal/infrastructure/memdb"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
	apphttp "github.com/jhoicas/erp-offline/internal/interfaces/http"
)

type testEnv struct {
	app *fiber.App
	dir *directory.Directory
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	sub, err := memdb.New()
	require.NoError(t, err)
	e := storage.New(sub, schema.Default(), nil)
	require.NoError(t, e.Open(ctx, schema.Version))
	t.Cleanup(func() { _ = e.Close() })

	dir, err := directory.New(e, directory.Config{Secret: "secreto-http", BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	_, err = dir.EnsureDemo(ctx, time.Now())
	require.NoError(t, err)

	cache := localstore.NewMemory()
	sess, err := session.New(cache)
	require.NoError(t, err)
	cc := company.NewContext(dir, sess, cache, connectivity.NewMonitor(nil), nil)
	t.Cleanup(cc.Close)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Store: e, Registry: schema.Default(), Company: cc, Directory: dir})
	return &testEnv{app: app, dir: dir}
}

// do lanza la petición y devuelve status y cuerpo.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (env *testEnv) login(t *testing.T, identifier, password string) string {
	t.Helper()
	status, body := env.do(t, http.MethodPost, "/api/session/login", "", dto.SessionLoginRequest{Identifier: identifier, Password: password})
	require.Equal(t, http.StatusOK, status, string(body))
	var res dto.ResultResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestSession_FlujoDeLogin(t *testing.T) {
	env := newEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/session/verify", "", dto.VerifyIdentifierRequest{Identifier: "alfalah"})
	require.Equal(t, http.StatusOK, status)
	verified := decode[dto.ResultResponse](t, body)
	assert.True(t, verified.Success)
	require.NotNil(t, verified.Company)

	status, body = env.do(t, http.MethodPost, "/api/session/verify", "", dto.VerifyIdentifierRequest{Identifier: "nadie"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, decode[dto.ResultResponse](t, body).Success)

	status, _ = env.do(t, http.MethodPost, "/api/session/login", "", dto.SessionLoginRequest{Identifier: "alfalah", Password: "mala"})
	assert.Equal(t, http.StatusUnauthorized, status)

	token := env.login(t, "alfalah", "123456")
	status, body = env.do(t, http.MethodGet, "/api/session/status", "", nil)
	require.Equal(t, http.StatusOK, status)
	st := decode[dto.SessionStatusResponse](t, body)
	assert.Equal(t, string(company.StateAuthenticated), st.State)
	assert.Equal(t, string(session.StateValid), st.Token)
	assert.Equal(t, token, st.AccessToken)
	assert.True(t, st.SubscriptionValid)
	assert.NotNil(t, st.ExpiresAt)

	status, _ = env.do(t, http.MethodPost, "/api/session/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, "/api/collections", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "tras logout el token deja de servir")
}

func TestCollections_SinSesion(t *testing.T) {
	env := newEnv(t)
	status, _ := env.do(t, http.MethodGet, "/api/collections", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(t, http.MethodGet, "/api/collections/warehouses", "cualquiera", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCollections_CRUD(t *testing.T) {
	env := newEnv(t)
	token := env.login(t, "alfalah", "123456")

	status, body := env.do(t, http.MethodGet, "/api/collections", token, nil)
	require.Equal(t, http.StatusOK, status)
	infos := decode[[]dto.CollectionInfo](t, body)
	for _, info := range infos {
		assert.NotContains(t, info.Name, "directory_", "las colecciones del directorio no se exponen")
	}

	status, body = env.do(t, http.MethodPost, "/api/collections/warehouses", token, map[string]any{"code": "BOD-01", "name": "Principal"})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, float64(1), decode[map[string]any](t, body)["id"])

	status, body = env.do(t, http.MethodPost, "/api/collections/warehouses", token, map[string]any{"code": "BOD-01", "name": "Otra"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, dto.CodeUniqueViolation, decode[dto.ErrorResponse](t, body).Code)

	status, body = env.do(t, http.MethodPatch, "/api/collections/warehouses/1", token, map[string]any{"name": "Central"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Central", decode[map[string]any](t, body)["name"])

	status, body = env.do(t, http.MethodPut, "/api/collections/warehouses/7", token, map[string]any{"code": "BOD-07", "name": "Norte"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, float64(7), decode[map[string]any](t, body)["id"])

	status, body = env.do(t, http.MethodGet, "/api/collections/warehouses?limit=1&offset=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[dto.RecordListResponse](t, body)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "BOD-07", page.Items[0]["code"])
	assert.Equal(t, 2, page.Page.Total)

	status, body = env.do(t, http.MethodGet, "/api/collections/warehouses/index/code?value=BOD-01", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.RecordListResponse](t, body).Items, 1)

	status, _ = env.do(t, http.MethodDelete, "/api/collections/warehouses/1", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = env.do(t, http.MethodGet, "/api/collections/warehouses/1", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.CodeNotFound, decode[dto.ErrorResponse](t, body).Code)
	status, _ = env.do(t, http.MethodDelete, "/api/collections/warehouses/1", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCollections_ErroresMapeados(t *testing.T) {
	env := newEnv(t)
	token := env.login(t, "alfalah", "123456")

	status, body := env.do(t, http.MethodGet, "/api/collections/no_existe", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.CodeUnknownCollection, decode[dto.ErrorResponse](t, body).Code)

	status, _ = env.do(t, http.MethodGet, "/api/collections/directory_companies", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/api/collections/warehouses/index/color?value=rojo", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.CodeUnknownIndex, decode[dto.ErrorResponse](t, body).Code)

	status, body = env.do(t, http.MethodPost, "/api/collections/accounts", token, map[string]any{"name": "Sin código"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.CodeInvalidRecord, decode[dto.ErrorResponse](t, body).Code)

	status, _ = env.do(t, http.MethodPost, "/api/collections/accounts", token, map[string]any{"code": "11", "name": "Disponible", "parentCode": "1"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPost, "/api/collections/accounts", token, map[string]any{"code": "11", "name": "Repetida"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestCollections_IndiceConValoresTextoYNumero(t *testing.T) {
	env := newEnv(t)
	token := env.login(t, "alfalah", "123456")

	for _, a := range []map[string]any{
		{"code": "1", "name": "Activo"},
		{"code": "11", "name": "Disponible", "parentCode": "1"},
	} {
		status, body := env.do(t, http.MethodPost, "/api/collections/accounts", token, a)
		require.Equal(t, http.StatusCreated, status, string(body))
	}
	status, body := env.do(t, http.MethodGet, "/api/collections/accounts/index/parentCode?value=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.RecordListResponse](t, body).Items, 1, "parentCode es texto")

	status, _ = env.do(t, http.MethodPost, "/api/collections/categories", token, map[string]any{"name": "Bebidas", "parentId": 3})
	require.Equal(t, http.StatusCreated, status)
	status, body = env.do(t, http.MethodGet, "/api/collections/categories/index/parentId?value=3", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.RecordListResponse](t, body).Items, 1, "parentId es numérico")
}

func TestCollections_ModuloYLimiteDeSuscripcion(t *testing.T) {
	env := newEnv(t)
	now := time.Now()
	_, err := env.dir.RegisterCompany(context.Background(),
		entity.Company{Identifier: "taller", Name: "Taller", IsActive: true}, "clave",
		entity.Subscription{
			Status: entity.SubscriptionActive, Plan: "basic",
			StartDate: now, EndDate: now.AddDate(0, 1, 0),
			Features: []string{entity.FeatureInventory},
			Limits:   map[string]int{entity.LimitWarehouses: 1},
		})
	require.NoError(t, err)
	token := env.login(t, "taller", "clave")

	status, _ := env.do(t, http.MethodPost, "/api/collections/warehouses", token, map[string]any{"code": "W1", "name": "Única"})
	require.Equal(t, http.StatusCreated, status)
	status, body := env.do(t, http.MethodPost, "/api/collections/warehouses", token, map[string]any{"code": "W2", "name": "Segunda"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, dto.CodeLimitReached, decode[dto.ErrorResponse](t, body).Code)

	status, body = env.do(t, http.MethodGet, "/api/collections/accounts", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, dto.CodeFeatureDisabled, decode[dto.ErrorResponse](t, body).Code)

	status, _ = env.do(t, http.MethodPost, "/api/collections/suppliers", token, map[string]any{"code": "PR-1", "name": "Proveedor"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestDirectoryServer_ConClienteRemoto(t *testing.T) {
	env := newEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })

	ctx := context.Background()
	client := companyapi.NewClient("http://"+ln.Addr().String(), 2*time.Second)
	require.Eventually(t, func() bool { return client.Ping(ctx) == nil }, 2*time.Second, 20*time.Millisecond)

	found, err := client.VerifyIdentifier(ctx, "alfalah")
	require.NoError(t, err)
	assert.Equal(t, "Al Falah Trading", found.Name)
	_, err = client.VerifyIdentifier(ctx, "nadie")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = client.Login(ctx, "alfalah", "mala")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	res, err := client.Login(ctx, "alfalah", "123456")
	require.NoError(t, err)
	require.NotNil(t, res.Subscription)

	me, err := client.GetCompanyDetails(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Company.ID, me.ID)
	sub, err := client.GetSubscription(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", sub.Plan)

	pair, err := client.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = client.RefreshToken(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)

	require.NoError(t, client.Logout(ctx, pair.AccessToken))
	_, err = client.GetCompanyDetails(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
