package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"menu-admin/config"
	"menu-admin/models"
	"menu-admin/services"
)

const testPassword = "admin123"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	svc    *services.MenuService
	auth   *Authenticator
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := services.NewMemoryStore()
	ctx := context.Background()
	for _, name := range []string{"Appetizers", "Main Courses"} {
		if _, err := store.EnsureCategory(ctx, name); err != nil {
			t.Fatal(err)
		}
	}
	svc := services.NewMenuService(store, nil)
	if _, err := svc.CreateItem(ctx, models.MenuItemInput{Name: "Spring Rolls", Price: "8.99", CategoryID: 1, Description: "rolls"}); err != nil {
		t.Fatal(err)
	}
	auth, err := NewAuthenticator(config.AuthConfig{
		JWTSecret:     "test-secret",
		SessionTTL:    time.Hour,
		AdminUsername: "admin",
		AdminPassword: testPassword,
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := auth.Issue("admin")
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{
		router: NewRouter(config.HTTPConfig{Env: "development"}, svc, auth),
		svc:    svc,
		auth:   auth,
		token:  token,
	}
}

func (s *testServer) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/categories", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /categories = %d", w.Code)
	}
	cats := decode[struct {
		Categories []models.Category `json:"categories"`
	}](t, w)
	if len(cats.Categories) != 2 || cats.Categories[0].Name != "Appetizers" {
		t.Errorf("categories = %+v", cats.Categories)
	}

	w = s.do(http.MethodGet, "/menu-items", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /menu-items = %d", w.Code)
	}
	items := decode[struct {
		MenuItems []models.MenuItem `json:"menuItems"`
	}](t, w)
	if len(items.MenuItems) != 1 || items.MenuItems[0].CategoryName != "Appetizers" {
		t.Errorf("menuItems = %+v", items.MenuItems)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestCreateItem(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"name": "Pad Thai", "description": "noodles", "price": 12.99,
		"category_id": 2, "is_available": true,
	}

	if w := s.do(http.MethodPost, "/menu-items", body, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated POST = %d, want 401", w.Code)
	}

	w := s.do(http.MethodPost, "/menu-items", body, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST = %d: %s", w.Code, w.Body.String())
	}
	item := decode[models.MenuItem](t, w)
	if item.ID != 2 || item.CategoryName != "Main Courses" || item.Price.StringFixed(2) != "12.99" {
		t.Errorf("created = %+v", item)
	}
}

func TestCreateItemValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		body   any
		status int
		field  string
		reason string
	}{
		{"negative price", map[string]any{"name": "x", "price": -1, "category_id": 1}, 400, "price", "OutOfRange"},
		{"text price", map[string]any{"name": "x", "price": "cheap", "category_id": 1}, 400, "price", "InvalidNumber"},
		{"missing name", map[string]any{"price": "3", "category_id": 1}, 400, "name", "RequiredField"},
		{"missing category", map[string]any{"name": "x", "price": "3"}, 400, "category_id", "RequiredField"},
		{"unknown category", map[string]any{"name": "x", "price": "3", "category_id": 9}, 400, "category_id", "RequiredField"},
		{"malformed json", `{"name":`, 400, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/menu-items", tt.body, true)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			e := decode[errorBody](t, w)
			if e.Error == "" {
				t.Error("missing error message")
			}
			if tt.field != "" && e.Fields[tt.field] != tt.reason {
				t.Errorf("fields = %v, want %s=%s", e.Fields, tt.field, tt.reason)
			}
		})
	}
	items, _ := s.svc.ListItems(context.Background())
	if len(items) != 1 {
		t.Errorf("store has %d items after rejected writes", len(items))
	}
}

func TestUpdateItem(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"name": "Spring Rolls", "description": "", "price": "9.50",
		"category_id": 1, "is_available": false, "image_url": nil,
	}
	w := s.do(http.MethodPut, "/menu-items/1", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Message  string          `json:"message"`
		MenuItem models.MenuItem `json:"menuItem"`
	}](t, w)
	if resp.MenuItem.IsAvailable || resp.MenuItem.Price.StringFixed(2) != "9.50" || resp.MenuItem.Description != "" {
		t.Errorf("updated = %+v", resp.MenuItem)
	}
	if !strings.Contains(w.Body.String(), `"price":"9.50"`) {
		t.Errorf("price lost its trailing zero: %s", w.Body.String())
	}

	for _, path := range []string{"/menu-items/99", "/menu-items/abc"} {
		if w := s.do(http.MethodPut, path, body, true); w.Code != http.StatusNotFound {
			t.Errorf("PUT %s = %d, want 404", path, w.Code)
		}
	}
	if w := s.do(http.MethodPut, "/menu-items/1", body, false); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated PUT = %d", w.Code)
	}
}

func TestSetAvailabilityEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPut, "/menu-items/1/availability", map[string]any{"is_available": false}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT availability = %d: %s", w.Code, w.Body.String())
	}
	it, _ := s.svc.GetItem(context.Background(), 1)
	if it.IsAvailable || it.Name != "Spring Rolls" || it.Description != "rolls" {
		t.Errorf("stored = %+v", it)
	}
	if w := s.do(http.MethodPut, "/menu-items/1/availability", map[string]any{}, true); w.Code != http.StatusBadRequest {
		t.Errorf("missing is_available = %d, want 400", w.Code)
	}
}

type failingRepo struct{ MenuRepository }

func (failingRepo) ListItems(context.Context) ([]models.MenuItem, error) {
	return nil, &services.TransientStoreError{Op: "list menu items", Err: errors.New("dial tcp: timeout")}
}

func (failingRepo) Ping(context.Context) error { return errors.New("down") }

func (failingRepo) CreateItem(context.Context, models.MenuItemInput) (*models.MenuItem, error) {
	return nil, &services.TransientStoreError{Op: "insert menu item", Err: errors.New("pq: secret detail")}
}

func TestStoreFailuresAreGeneric(t *testing.T) {
	s := newTestServer(t)
	s.router = NewRouter(config.HTTPConfig{Env: "development"}, failingRepo{}, s.auth)

	w := s.do(http.MethodGet, "/menu-items", nil, false)
	if w.Code != http.StatusInternalServerError || decode[errorBody](t, w).Error != "Failed to fetch menu items" {
		t.Errorf("GET = %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPost, "/menu-items", map[string]any{"name": "x"}, true)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "secret") {
		t.Errorf("POST = %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/healthz", nil, false); w.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz = %d", w.Code)
	}
}

func TestLoginAndSession(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "nope"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", w.Code)
	}
	w = s.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": testPassword}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Token string `json:"token"`
	}](t, w)
	if _, err := s.auth.Parse(resp.Token); err != nil {
		t.Errorf("issued token does not parse: %v", err)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodPut, "/menu-items/1/availability", strings.NewReader(`{"is_available":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie session PUT = %d", rec.Code)
	}
}

func TestExpiredAndForeignTokens(t *testing.T) {
	s := newTestServer(t)
	s.auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := s.auth.Issue("admin")
	if err != nil {
		t.Fatal(err)
	}
	s.auth.now = time.Now
	if _, err := s.auth.Parse(old); err == nil {
		t.Error("expired token accepted")
	}

	other, err := NewAuthenticator(config.AuthConfig{JWTSecret: "other", AdminUsername: "admin", AdminPassword: "x"}, false)
	if err != nil {
		t.Fatal(err)
	}
	forged, _, _ := other.Issue("admin")
	if _, err := s.auth.Parse(forged); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestNewAuthenticatorRequiresSecrets(t *testing.T) {
	if _, err := NewAuthenticator(config.AuthConfig{AdminPassword: "x"}, false); err == nil {
		t.Error("missing JWT secret accepted")
	}
	if _, err := NewAuthenticator(config.AuthConfig{JWTSecret: "s"}, false); err == nil {
		t.Error("missing admin credential accepted")
	}
}

func TestAdminPagesRequireSession(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/admin/menu", nil, false)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/auth/signin" {
		t.Fatalf("unauthenticated /admin/menu = %d %s", w.Code, w.Header().Get("Location"))
	}

	w = s.do(http.MethodGet, "/admin/menu?category=1", nil, true)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Spring Rolls") {
		t.Fatalf("/admin/menu = %d", w.Code)
	}
	w = s.do(http.MethodGet, "/admin/menu?category=2", nil, true)
	if strings.Contains(w.Body.String(), "Spring Rolls") {
		t.Error("category filter not applied")
	}
}

func TestSignInForm(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"username": {"admin"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin/menu" {
		t.Fatalf("sign in = %d %s", w.Code, w.Header().Get("Location"))
	}

	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Errorf("bad sign in = %d", w.Code)
	}
}

func TestAdminToggleForm(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"is_available": {"false"}, "category": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/menu/1/availability", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/admin/menu?category=1" {
		t.Fatalf("toggle = %d %s", w.Code, w.Header().Get("Location"))
	}
	it, _ := s.svc.GetItem(context.Background(), 1)
	if it.IsAvailable {
		t.Error("item still available")
	}
}

func TestLoginThrottledAfterFailure(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "wrong"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", w.Code)
	}
	// Still cooling down: even the right password is refused without a check.
	w = s.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": testPassword}, false)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("login during cooldown = %d, Retry-After %q", w.Code, w.Header().Get("Retry-After"))
	}
}
