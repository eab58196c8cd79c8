package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/background"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/release"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
)

const testSecret = "test-secret"

type stubText struct {
	mu    sync.Mutex
	reply string
}

func (s *stubText) Generate(_ context.Context, _ genai.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply, nil
}

type adminFixture struct {
	router      *gin.Engine
	codec       *security.TokenCodec
	sermons     kv.Store
	devotionals kv.Store
	logs        kv.Store
	runner      *background.Runner
}

func setupAdmin(t *testing.T) adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := kv.NewMemoryBackend()
	sermons := backend.Namespace(kv.NamespaceSermons)
	logs := backend.Namespace(kv.NamespacePrayerLogs)
	runner := background.NewRunner(context.Background(), 5*time.Second)
	t.Cleanup(runner.Wait)

	scheduler, err := release.NewNamed("America/New_York", time.Sunday, 8, 45)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	text := &stubText{reply: `{"topic":"Grace","title":"Saved by Grace","text":"Body"}`}
	cache := sermon.NewCache(sermons, scheduler, text, nil, runner, sermon.Options{})
	gate := prayer.NewGate(backend.Namespace(kv.NamespacePrayers), logs, text, runner, prayer.Options{})
	blogSvc := blog.NewService(backend.Namespace(kv.NamespaceBlog), text, blog.Options{SiteURL: "https://example.org"})
	devotionals := backend.Namespace(kv.NamespaceDevotionals)
	devotionalSvc := devotional.NewService(devotionals, nil, &stubText{reply: "# Still Waters\n\nHe leadeth me."}, runner, devotional.Options{Days: 2})

	hash, err := security.HashPassword("super-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	authCfg := config.AuthConfig{
		Secret: testSecret,
		Super:  config.AdminIdentity{Username: "superadmin", Password: hash},
		Site:   config.AdminIdentity{Username: "siteadmin", Password: "site-pass"},
	}
	codec := security.NewTokenCodec(testSecret, security.TokenFormatJWT, 24*time.Hour)

	router := gin.New()
	RegisterAdminRoutes(router, codec, authCfg, Services{Sermons: cache, Devotionals: devotionalSvc, Prayers: gate, Blog: blogSvc})
	return adminFixture{router: router, codec: codec, sermons: sermons, devotionals: devotionals, logs: logs, runner: runner}
}

func (f adminFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f adminFixture) token(t *testing.T, role security.Role) string {
	t.Helper()
	token, err := f.codec.Issue(string(role)+"admin", role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func seedSermon(t *testing.T, store kv.Store, id string) {
	t.Helper()
	item := models.Sermon{ID: id, Title: "Seed", Text: "t", CreatedAt: time.Now().UTC(), Generated: true}
	if err := kv.PutJSON(context.Background(), store, id, item); err != nil {
		t.Fatalf("seed sermon: %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := setupAdmin(t)

	w := f.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"username": "superadmin", "password": "super-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	identity, err := f.codec.Verify(resp.Token)
	if err != nil || identity.Role != security.RoleSuper || resp.Role != "super" || identity.Subject != "superadmin" {
		t.Fatalf("unexpected login result %+v %+v %v", resp, identity, err)
	}

	w = f.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"username": "siteadmin", "password": "site-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected site login to succeed, got %d", w.Code)
	}

	for _, body := range []gin.H{
		{"username": "superadmin", "password": "wrong"},
		{"username": "nobody", "password": "super-pass"},
		{"username": "siteadmin", "password": ""},
	} {
		w = f.do(t, http.MethodPost, "/api/admin/login", "", body)
		if w.Code != http.StatusUnauthorized || w.Body.String() != `{"error":"Unauthorized"}` {
			t.Fatalf("expected uniform 401 for %v, got %d %s", body, w.Code, w.Body.String())
		}
	}
}

func TestInvalidTokenCannotDelete(t *testing.T) {
	f := setupAdmin(t)
	seedSermon(t, f.sermons, "sermon:2026-05-10")

	otherCodec := security.NewTokenCodec("other-secret", security.TokenFormatJWT, time.Hour)
	forged, _ := otherCodec.Issue("superadmin", security.RoleSuper)

	for _, token := range []string{"", "garbage", forged} {
		w := f.do(t, http.MethodDelete, "/api/admin/sermons/sermon:2026-05-10", token, nil)
		if w.Code != http.StatusUnauthorized || w.Body.String() != `{"error":"Unauthorized"}` {
			t.Fatalf("expected uniform 401 for token %q, got %d %s", token, w.Code, w.Body.String())
		}
	}
	if _, err := f.sermons.Get(context.Background(), "sermon:2026-05-10"); err != nil {
		t.Fatalf("sermon must remain after rejected delete: %v", err)
	}
}

func TestSermonRoutes(t *testing.T) {
	f := setupAdmin(t)
	token := f.token(t, security.RoleSite)
	seedSermon(t, f.sermons, "sermon:2026-05-03")

	w := f.do(t, http.MethodPost, "/api/admin/sermons/generate", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/admin/sermons", token, nil)
	var items []models.Sermon
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil || len(items) != 2 {
		t.Fatalf("expected two sermons, got %s %v", w.Body.String(), err)
	}

	w = f.do(t, http.MethodDelete, "/api/admin/sermons/sermon:2026-05-03", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	w = f.do(t, http.MethodDelete, "/api/admin/sermons/sermon:2026-05-03", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/admin/sermons/generate?async=1", token, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	f.runner.Wait()
	if keys, _ := f.sermons.List(context.Background(), release.KeyPrefix); len(keys) != 2 {
		t.Fatalf("expected async generation to store a sermon, got %v", keys)
	}
}

func TestDevotionalRoutes(t *testing.T) {
	f := setupAdmin(t)
	token := f.token(t, security.RoleSite)

	w := f.do(t, http.MethodPost, "/api/admin/devotionals/generate", token, gin.H{"date": "2026-05-10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var item models.Devotional
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.ID != "devotional:2026-05-10" || item.Title != "Still Waters" || item.Reference != "Psalm 23:1" {
		t.Fatalf("unexpected devotional %+v", item)
	}

	w = f.do(t, http.MethodPost, "/api/admin/devotionals/generate", token, gin.H{"date": "10/05/2026"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a bad date, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/admin/devotionals/generate?async=1", token, gin.H{"date": "2026-05-11"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	f.runner.Wait()

	w = f.do(t, http.MethodGet, "/api/admin/devotionals", token, nil)
	var items []models.Devotional
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil || len(items) != 2 || items[0].ID != "devotional:2026-05-11" {
		t.Fatalf("expected two devotionals newest first, got %s %v", w.Body.String(), err)
	}

	w = f.do(t, http.MethodDelete, "/api/admin/devotionals/devotional:2026-05-10", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	w = f.do(t, http.MethodDelete, "/api/admin/devotionals/devotional:2026-05-10", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/admin/devotionals/generate-ahead", token, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	f.runner.Wait()
	today := time.Now().UTC().Format(devotional.DateLayout)
	if _, err := f.devotionals.Get(context.Background(), devotional.Key(today)); err != nil {
		t.Fatalf("expected generate-ahead to fill today: %v", err)
	}
}

func TestBulkDeleteRequiresSuperRole(t *testing.T) {
	f := setupAdmin(t)
	seedSermon(t, f.sermons, "sermon:2026-05-03")
	seedSermon(t, f.sermons, "sermon:2026-05-10")

	w := f.do(t, http.MethodDelete, "/api/admin/sermons", f.token(t, security.RoleSite), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for site role, got %d", w.Code)
	}

	w = f.do(t, http.MethodDelete, "/api/admin/sermons", f.token(t, security.RoleSuper), nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"deleted":2}` {
		t.Fatalf("unexpected bulk delete response %d %s", w.Code, w.Body.String())
	}
}

func TestPrayerLogRoutes(t *testing.T) {
	f := setupAdmin(t)
	token := f.token(t, security.RoleSite)
	entry := models.PrayerLogEntry{Timestamp: "2026-05-10T13:00:00.000Z", FirstName: "Ann", RequestText: "x", ModerationStatus: models.ModerationReject}
	if err := kv.PutJSON(context.Background(), f.logs, "log:2026-05-10T13:00:00.000Z:abcd", entry); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := f.do(t, http.MethodGet, "/api/admin/prayers", token, nil)
	var entries []models.PrayerLogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil || len(entries) != 1 || entries[0].ID != "log:2026-05-10T13:00:00.000Z:abcd" {
		t.Fatalf("unexpected prayer log %s %v", w.Body.String(), err)
	}

	w = f.do(t, http.MethodDelete, "/api/admin/prayers/log:2026-05-10T13:00:00.000Z:abcd", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
}

func TestPostRoutes(t *testing.T) {
	f := setupAdmin(t)
	token := f.token(t, security.RoleSite)

	w := f.do(t, http.MethodPost, "/api/admin/posts", token, gin.H{"title": "Hello World", "body": "Text"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Post models.Post `json:"post"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Post.Slug != "hello-world" {
		t.Fatalf("unexpected create response %s %v", w.Body.String(), err)
	}

	w = f.do(t, http.MethodPost, "/api/admin/posts", token, gin.H{"title": "No body"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodDelete, "/api/admin/posts/"+created.Post.ID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
}

func TestPermissionsList(t *testing.T) {
	f := setupAdmin(t)
	w := f.do(t, http.MethodGet, "/api/admin/permissions", f.token(t, security.RoleSite), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Role        string `json:"role"`
		Permissions []struct {
			Key     string `json:"key"`
			Allowed bool   `json:"allowed"`
		} `json:"permissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Role != "site" {
		t.Fatalf("unexpected response %s %v", w.Body.String(), err)
	}
	for _, perm := range resp.Permissions {
		if perm.Key == "DELETE /api/admin/sermons" && perm.Allowed {
			t.Fatalf("site role must not be allowed to bulk delete")
		}
	}
}
