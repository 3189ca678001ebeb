package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/errs"
	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/server"
	"github.com/deppfellow/candychain/internal/service"
)

type stubCandies struct {
	all       service.Result
	find      service.Result
	findKey   string
	calls     int
	created   *ledger.Candy
	createKey string
	owner     string
	queued    bool
	initErr   error
}

func (s *stubCandies) QueryAllCandies(context.Context) service.Result {
	s.calls++
	return s.all
}

func (s *stubCandies) FindCandy(_ context.Context, key string) service.Result {
	s.calls++
	s.findKey = key
	return s.find
}

func (s *stubCandies) CreateCandy(_ context.Context, key string, candy ledger.Candy) (*ledger.QueryResult, error) {
	s.createKey = key
	s.created = &candy
	return &ledger.QueryResult{Key: key, Record: candy}, nil
}

func (s *stubCandies) ChangeCandyOwner(_ context.Context, key, owner string) (*ledger.QueryResult, error) {
	s.owner = owner
	return &ledger.QueryResult{Key: key, Record: ledger.Candy{Owner: owner}}, nil
}

func (s *stubCandies) InitLedger(context.Context, string) (bool, error) {
	return s.queued, s.initErr
}

type stubAdmin struct {
	enroll     service.Result
	register   service.Result
	registered string
	list       service.Result
	remove     service.Result
	removed    string
}

func (s *stubAdmin) EnrollAdmin(context.Context) service.Result {
	return s.enroll
}

func (s *stubAdmin) EnrollAndRegisterUser(_ context.Context, id string) service.Result {
	s.registered = id
	return s.register
}

func (s *stubAdmin) ListIdentities(context.Context) service.Result {
	return s.list
}

func (s *stubAdmin) RemoveIdentity(_ context.Context, id string) service.Result {
	s.removed = id
	return s.remove
}

type downGateway struct {
	ledger.Gateway
}

func (downGateway) Ping(context.Context) error {
	return errors.New("peer unreachable")
}

func testServer(t *testing.T) *server.Server {
	t.Helper()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	logger := zerolog.Nop()
	return &server.Server{
		Config: cfg,
		Logger: &logger,
		Ledger: ledger.NewMemoryGateway(),
	}
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestWelcome(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")

	require.NoError(t, NewWelcomeHandler(testServer(t)).Welcome(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to CandyChain"}`, rec.Body.String())
}

func TestCandy_ListAllWritesPayloadVerbatim(t *testing.T) {
	candies := &stubCandies{all: service.Ok([]byte(`[{"name":"gum"}]`))}
	h := NewCandyHandler(testServer(t), candies)

	c, rec := newContext(http.MethodGet, "/candies", "")
	require.NoError(t, h.ListAll(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"name":"gum"}]`, rec.Body.String())
	assert.Equal(t, 1, candies.calls)
}

func TestCandy_ListAllFailure(t *testing.T) {
	candies := &stubCandies{all: service.Fail(errors.New("db unavailable"))}
	h := NewCandyHandler(testServer(t), candies)

	c, rec := newContext(http.MethodGet, "/candies", "")
	require.NoError(t, h.ListAll(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"db unavailable"`, rec.Body.String())
}

func TestCandy_FailureStatusIsConfigurable(t *testing.T) {
	s := testServer(t)
	s.Config.Ledger.FailureStatus = http.StatusBadGateway
	h := NewCandyHandler(s, &stubCandies{all: service.Fail(errors.New("db unavailable"))})

	c, rec := newContext(http.MethodGet, "/candies", "")
	require.NoError(t, h.ListAll(c))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `"db unavailable"`, rec.Body.String())
}

func TestCandy_ListAllIsRepeatable(t *testing.T) {
	candies := &stubCandies{all: service.Ok([]byte(`[]`))}
	h := NewCandyHandler(testServer(t), candies)

	var bodies []string
	for range 2 {
		c, rec := newContext(http.MethodGet, "/candies", "")
		require.NoError(t, h.ListAll(c))
		bodies = append(bodies, rec.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, 2, candies.calls)
}

func TestCandy_FindByName(t *testing.T) {
	candies := &stubCandies{find: service.Ok([]byte(`{ "name": "gum" }`))}
	h := NewCandyHandler(testServer(t), candies)

	c, rec := newContext(http.MethodGet, "/candies/gum", "")
	c.SetPath("/candies/:candy")
	c.SetParamNames("candy")
	c.SetParamValues("gum")

	require.NoError(t, h.FindByName(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"name":"gum"}`, rec.Body.String())
	assert.Equal(t, "gum", candies.findKey)
}

func TestCandy_FindByNameFailure(t *testing.T) {
	h := NewCandyHandler(testServer(t), &stubCandies{find: service.Fail(errors.New(`candy "CANDY42" does not exist`))})

	c, rec := newContext(http.MethodGet, "/candies/CANDY42", "")
	c.SetParamNames("candy")
	c.SetParamValues("CANDY42")

	require.NoError(t, h.FindByName(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"candy \"CANDY42\" does not exist"`, rec.Body.String())
}

func TestCandy_FindByNameRejectsInvalidJSON(t *testing.T) {
	h := NewCandyHandler(testServer(t), &stubCandies{find: service.Ok([]byte(`not json`))})

	c, rec := newContext(http.MethodGet, "/candies/gum", "")
	c.SetParamNames("candy")
	c.SetParamValues("gum")

	require.NoError(t, h.FindByName(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "collaborator returned invalid JSON")
}

func TestCandy_FindByNameEmptyParam(t *testing.T) {
	candies := &stubCandies{}
	h := NewCandyHandler(testServer(t), candies)

	c, _ := newContext(http.MethodGet, "/candies/", "")
	c.SetParamNames("candy")
	c.SetParamValues("")

	assert.ErrorIs(t, h.FindByName(c), echo.ErrNotFound)
	assert.Zero(t, candies.calls)
}

func TestCandy_FindByNameKeepsKeyVerbatim(t *testing.T) {
	candies := &stubCandies{find: service.Fail(errors.New(`candy "CANDY1 " does not exist`))}
	h := NewCandyHandler(testServer(t), candies)

	c, rec := newContext(http.MethodGet, "/candies/CANDY1%20", "")
	c.SetParamNames("candy")
	c.SetParamValues("CANDY1 ")

	require.NoError(t, h.FindByName(c))
	assert.Equal(t, "CANDY1 ", candies.findKey)
	assert.JSONEq(t, `"candy \"CANDY1 \" does not exist"`, rec.Body.String())
}

func TestCandy_Create(t *testing.T) {
	candies := &stubCandies{}
	h := NewCandyHandler(testServer(t), candies)

	body := `{"key":"CANDY10","name":"Gum","texture":"Chewy","colour":"Pink","owner":"Tom"}`
	c, rec := newContext(http.MethodPost, "/candies", body)

	require.NoError(t, Handle(h.Create, http.StatusCreated)(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"Key":"CANDY10","Record":{"name":"Gum","texture":"Chewy","colour":"Pink","owner":"Tom"}}`, rec.Body.String())
	assert.Equal(t, "CANDY10", candies.createKey)
}

func TestCandy_CreateValidation(t *testing.T) {
	candies := &stubCandies{}
	h := NewCandyHandler(testServer(t), candies)

	c, _ := newContext(http.MethodPost, "/candies", `{"key":"bad key!","name":"Gum"}`)
	err := Handle(h.Create, http.StatusCreated)(c)

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Nil(t, candies.created)
}

func TestCandy_ChangeOwner(t *testing.T) {
	candies := &stubCandies{}
	h := NewCandyHandler(testServer(t), candies)

	c, rec := newContext(http.MethodPut, "/candies/CANDY1/owner", `{"owner":"Dave"}`)
	c.SetPath("/candies/:candy/owner")
	c.SetParamNames("candy")
	c.SetParamValues("CANDY1")

	require.NoError(t, Handle(h.ChangeOwner, http.StatusOK)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dave", candies.owner)
	assert.Contains(t, rec.Body.String(), `"Key":"CANDY1"`)
}

func TestAdmin_EnrollAdmin(t *testing.T) {
	admin := &stubAdmin{enroll: service.Ok([]byte(`{"message":"Successfully enrolled admin user \"admin\" and imported it into the wallet"}`))}
	h := NewAdminHandler(testServer(t), admin)

	c, rec := newContext(http.MethodGet, "/Admin/", "")
	require.NoError(t, h.EnrollAdmin(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully enrolled admin user")
}

func TestAdmin_RegisterUser(t *testing.T) {
	admin := &stubAdmin{register: service.Fail(errors.New(`An identity for the user "user1" already exists in the wallet`))}
	h := NewAdminHandler(testServer(t), admin)

	c, rec := newContext(http.MethodGet, "/registeruser/user1", "")
	c.SetParamNames("id")
	c.SetParamValues("user1")

	require.NoError(t, h.RegisterUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"An identity for the user \"user1\" already exists in the wallet"`, rec.Body.String())
	assert.Equal(t, "user1", admin.registered)
}

func TestAdmin_RegisterUserEmptyParam(t *testing.T) {
	admin := &stubAdmin{}
	h := NewAdminHandler(testServer(t), admin)

	c, _ := newContext(http.MethodGet, "/registeruser/", "")
	c.SetParamNames("id")
	c.SetParamValues(" ")

	assert.ErrorIs(t, h.RegisterUser(c), echo.ErrNotFound)
	assert.Empty(t, admin.registered)
}

func TestAdmin_RegisterUserKeepsIDVerbatim(t *testing.T) {
	admin := &stubAdmin{register: service.Ok([]byte(`{"message":"ok"}`))}
	h := NewAdminHandler(testServer(t), admin)

	c, _ := newContext(http.MethodGet, "/registeruser/%20user1", "")
	c.SetParamNames("id")
	c.SetParamValues(" user1")

	require.NoError(t, h.RegisterUser(c))
	assert.Equal(t, " user1", admin.registered)
}

func TestAdmin_ListIdentities(t *testing.T) {
	h := NewAdminHandler(testServer(t), &stubAdmin{list: service.Ok([]byte(`{"identities":["admin","user1"]}`))})

	c, rec := newContext(http.MethodGet, "/identities", "")
	require.NoError(t, h.ListIdentities(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"identities":["admin","user1"]}`, rec.Body.String())
}

func TestAdmin_RemoveIdentity(t *testing.T) {
	admin := &stubAdmin{remove: service.Fail(errors.New(`An identity for the user "user9" does not exist in the wallet`))}
	h := NewAdminHandler(testServer(t), admin)

	c, rec := newContext(http.MethodDelete, "/identities/user9", "")
	c.SetParamNames("id")
	c.SetParamValues("user9")

	require.NoError(t, h.RemoveIdentity(c))
	assert.Equal(t, "user9", admin.removed)
	assert.JSONEq(t, `"An identity for the user \"user9\" does not exist in the wallet"`, rec.Body.String())

	c, _ = newContext(http.MethodDelete, "/identities/", "")
	c.SetParamNames("id")
	c.SetParamValues("")
	admin.removed = ""
	assert.ErrorIs(t, h.RemoveIdentity(c), echo.ErrNotFound)
	assert.Empty(t, admin.removed)
}

func TestLedger_InitStatus(t *testing.T) {
	for _, tc := range []struct {
		name   string
		queued bool
		status int
	}{
		{"inline", false, http.StatusOK},
		{"queued", true, http.StatusAccepted},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := NewLedgerHandler(testServer(t), &stubCandies{queued: tc.queued})

			c, rec := newContext(http.MethodPost, "/ledger/init", "")
			require.NoError(t, Handle(h.Init, http.StatusOK)(c))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"queued":`)
		})
	}
}

func TestLedger_InitError(t *testing.T) {
	h := NewLedgerHandler(testServer(t), &stubCandies{initErr: errs.NewBadGatewayError("peer down")})

	c, _ := newContext(http.MethodPost, "/ledger/init", "")
	err := Handle(h.Init, http.StatusOK)(c)

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
}

func TestHealth_Healthy(t *testing.T) {
	h := NewHealthHandler(testServer(t))

	c, rec := newContext(http.MethodGet, "/status", "")
	require.NoError(t, h.CheckHealth(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"ledger"`)
}

func TestHealth_LedgerDown(t *testing.T) {
	s := testServer(t)
	s.Ledger = downGateway{}

	c, rec := newContext(http.MethodGet, "/status", "")
	require.NoError(t, NewHealthHandler(s).CheckHealth(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "peer unreachable")
}

func TestHealth_ChecksDisabled(t *testing.T) {
	s := testServer(t)
	s.Ledger = downGateway{}
	s.Config.Observability.HealthChecks.Enabled = false

	c, rec := newContext(http.MethodGet, "/status", "")
	require.NoError(t, NewHealthHandler(s).CheckHealth(c))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenAPI_ServesPage(t *testing.T) {
	s := testServer(t)
	s.Config.Server.StaticDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(s.Config.Server.StaticDir, "openapi.html"), []byte("<html>docs</html>"), 0o644))

	c, rec := newContext(http.MethodGet, "/docs", "")
	require.NoError(t, NewOpenAPIHandler(s).ServeOpenAPIUI(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<html>docs</html>", rec.Body.String())
}

func TestOpenAPI_MissingPage(t *testing.T) {
	s := testServer(t)
	s.Config.Server.StaticDir = t.TempDir()

	c, _ := newContext(http.MethodGet, "/docs", "")
	assert.Error(t, NewOpenAPIHandler(s).ServeOpenAPIUI(c))
}
