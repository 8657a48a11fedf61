package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/procurement/sse"
	"github.com/uthejd-slx/procura-backend/internal/procurement/testutil"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
	"gorm.io/gorm"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	owner    *entity.User
	approver *entity.User
	buyer    *entity.User
	admin    *entity.User
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupRedis(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := testutil.TestConfig()
	cfg.Server.DebugErrors = true
	hub := sse.NewHub()
	svc := service.NewServices(repository.NewRepositories(db), rdb, cfg, store, nil, hub)

	r := testutil.SetupRouter()
	RegisterRoutes(r, NewHandlers(svc, hub, db, rdb, "test"), cfg, svc.Auth)

	return &testEnv{
		router:   r,
		db:       db,
		owner:    testutil.SeedUser(t, db, "owner@example.com"),
		approver: testutil.SeedUser(t, db, "approver@example.com", roles.Approver),
		buyer:    testutil.SeedUser(t, db, "buyer@example.com", roles.Procurement),
		admin:    testutil.SeedUser(t, db, "admin@example.com", roles.Admin),
	}
}

func (e *testEnv) do(method, path string, body interface{}, user *entity.User) (int, map[string]interface{}) {
	token := ""
	if user != nil {
		token = testutil.GenerateTestToken(user)
	}
	w := testutil.DoRequest(e.router, method, path, body, token)
	return w.Code, testutil.ParseResponse(w)
}

func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", resp)
	return data
}

func TestRegisterActivateLogin(t *testing.T) {
	e := setupHandlerTest(t)
	body := map[string]string{"email": "New.User@Example.com", "password": testutil.Password}

	code, resp := e.do(http.MethodPost, "/api/v1/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, code, resp)
	token, _ := dataOf(t, resp)["activation_token"].(string)
	require.NotEmpty(t, token)

	code, _ = e.do(http.MethodPost, "/api/v1/auth/register", body, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	login := map[string]string{"email": "new.user@example.com", "password": testutil.Password}
	code, resp = e.do(http.MethodPost, "/api/v1/auth/login", login, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 40100, resp["code"])

	code, _ = e.do(http.MethodPost, "/api/v1/auth/activate", map[string]string{"token": token}, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(http.MethodPost, "/api/v1/auth/activate", map[string]string{"token": token}, nil)
	assert.Equal(t, http.StatusBadRequest, code, "activation tokens are single use")

	code, resp = e.do(http.MethodPost, "/api/v1/auth/login", login, nil)
	require.Equal(t, http.StatusOK, code, resp)
	access := dataOf(t, resp)["access_token"].(string)

	w := testutil.DoRequest(e.router, http.MethodGet, "/api/v1/auth/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new.user@example.com", testutil.Data(t, w)["email"])
}

func TestAuthorizationIsRequired(t *testing.T) {
	e := setupHandlerTest(t)

	code, resp := e.do(http.MethodGet, "/api/v1/boms", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 40100, resp["code"])

	w := testutil.DoRequest(e.router, http.MethodGet, "/api/v1/boms", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// deactivated accounts are rejected even with a valid token
	require.NoError(t, e.db.Model(&entity.User{}).Where("id = ?", e.owner.ID).Update("is_active", false).Error)
	code, resp = e.do(http.MethodGet, "/api/v1/boms", nil, e.owner)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 40104, resp["code"])
}

func TestAdminRoutesNeedRealAdmin(t *testing.T) {
	e := setupHandlerTest(t)
	path := "/api/v1/admin/users/" + e.owner.ID
	body := map[string]interface{}{"roles": []string{"procurement", "approver"}}

	code, _ := e.do(http.MethodPatch, path, body, e.buyer)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := e.do(http.MethodPatch, path, body, e.admin)
	require.Equal(t, http.StatusOK, code, resp)
	assert.ElementsMatch(t, []interface{}{"approver", "procurement"}, dataOf(t, resp)["roles"])
}

func TestBomApprovalAndOrderingOverHTTP(t *testing.T) {
	e := setupHandlerTest(t)

	code, resp := e.do(http.MethodPost, "/api/v1/boms", map[string]interface{}{
		"title": "Lab bench",
		"items": []map[string]interface{}{
			{"name": "Oscilloscope", "quantity": 1, "vendor": "Acme"},
			{"name": "Probe kit", "quantity": 2},
		},
	}, e.owner)
	require.Equal(t, http.StatusCreated, code, resp)
	bomID := dataOf(t, resp)["id"].(string)

	code, resp = e.do(http.MethodGet, "/api/v1/boms?status=draft", nil, e.owner)
	require.Equal(t, http.StatusOK, code)
	pagination := dataOf(t, resp)["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])

	code, _ = e.do(http.MethodGet, "/api/v1/boms/"+bomID, nil, e.approver)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = e.do(http.MethodPost, "/api/v1/boms/"+bomID+"/request-procurement-approval",
		map[string]interface{}{"approver_ids": []string{e.approver.ID}}, e.owner)
	require.Equal(t, http.StatusCreated, code, resp)
	approvals := dataOf(t, resp)["approvals"].([]interface{})
	require.Len(t, approvals, 1)
	approvalID := approvals[0].(map[string]interface{})["id"].(string)

	code, resp = e.do(http.MethodGet, "/api/v1/notifications/unread-count", nil, e.approver)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, dataOf(t, resp)["unread"])

	code, resp = e.do(http.MethodPost, "/api/v1/procurement-approvals/"+approvalID+"/decide",
		map[string]string{"status": "APPROVED"}, e.approver)
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = e.do(http.MethodPost, "/api/v1/procurement-approvals/"+approvalID+"/decide",
		map[string]string{"status": "NEEDS_CHANGES"}, e.approver)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 40000, resp["code"])

	// admin is not a procurement user on strict routes
	code, _ = e.do(http.MethodPost, "/api/v1/procurement-actions/"+bomID+"/mark-ordered", nil, e.admin)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = e.do(http.MethodPost, "/api/v1/procurement-actions/"+bomID+"/mark-ordered",
		map[string]string{"eta_date": "2030-01-10"}, e.buyer)
	require.Equal(t, http.StatusOK, code, resp)
	assert.EqualValues(t, 2, dataOf(t, resp)["updated"])

	code, resp = e.do(http.MethodGet, "/api/v1/boms/"+bomID, nil, e.owner)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.BomStatusOrdered, dataOf(t, resp)["status"])

	code, resp = e.do(http.MethodGet, "/api/v1/bom-events?bom_id="+bomID+"&ordering=created_at", nil, e.owner)
	require.Equal(t, http.StatusOK, code)
	events := dataOf(t, resp)["items"].([]interface{})
	require.NotEmpty(t, events)
	assert.Equal(t, service.EventBomCreated, events[0].(map[string]interface{})["event_type"])

	code, _ = e.do(http.MethodGet, "/api/v1/bom-events?ordering=actor", nil, e.owner)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestExportAndImportOverHTTP(t *testing.T) {
	e := setupHandlerTest(t)
	code, resp := e.do(http.MethodPost, "/api/v1/boms", map[string]string{"title": "Imports"}, e.owner)
	require.Equal(t, http.StatusCreated, code)
	bomID := dataOf(t, resp)["id"].(string)

	csvBody := []byte("name,quantity\nCable,3\n,1\n")
	w := testutil.DoUpload(e.router, "/api/v1/boms/"+bomID+"/import", "items.csv", csvBody, nil,
		testutil.GenerateTestToken(e.owner))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.Data(t, w)
	assert.EqualValues(t, 1, data["created"])
	assert.EqualValues(t, 1, data["skipped"])

	w = testutil.DoRequest(e.router, http.MethodGet, "/api/v1/boms/"+bomID+"/export?format=csv", nil,
		testutil.GenerateTestToken(e.owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("bom-%s.csv", bomID))
	assert.Contains(t, w.Body.String(), "Cable")

	w = testutil.DoRequest(e.router, http.MethodGet, "/api/v1/boms/"+bomID+"/export?format=odt", nil,
		testutil.GenerateTestToken(e.owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	e := setupHandlerTest(t)
	token := testutil.GenerateTestToken(e.owner)
	content := []byte("quote from acme")

	w := testutil.DoUpload(e.router, "/api/v1/attachments", "quote.txt", content, nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := testutil.Data(t, w)["id"].(string)

	w = testutil.DoRequest(e.router, http.MethodGet, "/api/v1/attachments/"+id+"/download", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "quote.txt")

	code, _ := e.do(http.MethodGet, "/api/v1/attachments/"+id, nil, e.approver)
	assert.Equal(t, http.StatusNotFound, code)

	big := bytes.Repeat([]byte("x"), 1<<20+1)
	w = testutil.DoUpload(e.router, "/api/v1/attachments", "big.bin", big, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, _ = e.do(http.MethodDelete, "/api/v1/attachments/"+id, nil, e.owner)
	assert.Equal(t, http.StatusOK, code)
}

func TestSavedSearchesAreImmutable(t *testing.T) {
	e := setupHandlerTest(t)
	code, resp := e.do(http.MethodPost, "/api/v1/searches",
		map[string]interface{}{"entity_type": "bom", "query": "oscilloscope"}, e.owner)
	require.Equal(t, http.StatusCreated, code, resp)
	id := dataOf(t, resp)["id"].(string)

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		code, resp = e.do(method, "/api/v1/searches/"+id, map[string]string{"query": "x"}, e.owner)
		assert.Equal(t, http.StatusMethodNotAllowed, code)
		assert.EqualValues(t, 40500, resp["code"])
	}

	code, _ = e.do(http.MethodGet, "/api/v1/searches/"+id, nil, e.buyer)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListFiltersRejectBadDates(t *testing.T) {
	e := setupHandlerTest(t)
	for _, path := range []string{
		"/api/v1/boms?created_from=yesterday",
		"/api/v1/purchase-orders?updated_to=2026-13-40",
		"/api/v1/notifications?created_to=soon",
		"/api/v1/notifications?unread=maybe",
	} {
		code, _ := e.do(http.MethodGet, path, nil, e.owner)
		assert.Equal(t, http.StatusBadRequest, code, path)
	}

	code, _ := e.do(http.MethodGet, "/api/v1/boms?created_from=2026-01-01&created_to=2026-01-31T12:00:00Z", nil, e.owner)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthEndpoints(t *testing.T) {
	e := setupHandlerTest(t)

	w := testutil.DoRequest(e.router, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(e.router, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	checks := testutil.ParseResponse(w)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["redis"])

	w = testutil.DoRequest(e.router, http.MethodGet, "/version", nil, "")
	assert.Equal(t, "test", testutil.ParseResponse(w)["version"])

	w = testutil.DoRequest(e.router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "procura_http_requests_total"))
}

func TestStaffRoutesAcceptProcurementOrAdmin(t *testing.T) {
	e := setupHandlerTest(t)

	code, resp := e.do(http.MethodPost, "/api/v1/partners", map[string]string{"name": "Acme"}, e.owner)
	assert.Equal(t, http.StatusForbidden, code)
	assert.EqualValues(t, 40312, resp["code"])

	code, resp = e.do(http.MethodPost, "/api/v1/assets", map[string]interface{}{"name": "Scope"}, e.approver)
	assert.Equal(t, http.StatusForbidden, code)
	assert.EqualValues(t, 40312, resp["code"])

	code, resp = e.do(http.MethodPost, "/api/v1/partners", map[string]string{"name": "Acme"}, e.buyer)
	assert.Equal(t, http.StatusCreated, code, resp)
	code, resp = e.do(http.MethodPost, "/api/v1/partners", map[string]string{"name": "Globex"}, e.admin)
	assert.Equal(t, http.StatusCreated, code, resp)

	// reads stay open to every user
	code, _ = e.do(http.MethodGet, "/api/v1/partners", nil, e.owner)
	assert.Equal(t, http.StatusOK, code)
}

func TestUpdatingGlobalTemplateCopiesIt(t *testing.T) {
	e := setupHandlerTest(t)
	global := &entity.BomTemplate{ID: entity.NewID(), Name: "Quick", Schema: entity.JSONB{}}
	require.NoError(t, e.db.Create(global).Error)

	code, resp := e.do(http.MethodPatch, "/api/v1/bom-templates/"+global.ID,
		map[string]string{"name": "My quick"}, e.owner)
	require.Equal(t, http.StatusCreated, code, resp)
	copied := dataOf(t, resp)
	assert.NotEqual(t, global.ID, copied["id"])
	assert.Equal(t, e.owner.ID, copied["owner_id"])
	assert.Equal(t, "My quick", copied["name"])

	var stored entity.BomTemplate
	require.NoError(t, e.db.First(&stored, "id = ?", global.ID).Error)
	assert.Equal(t, "Quick", stored.Name)
	assert.Nil(t, stored.OwnerID)

	// admins edit the global template in place
	code, resp = e.do(http.MethodPatch, "/api/v1/bom-templates/"+global.ID,
		map[string]string{"name": "Quick v2"}, e.admin)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, global.ID, dataOf(t, resp)["id"])
}
