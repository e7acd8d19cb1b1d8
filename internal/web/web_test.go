package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

const testJWTSecret = "test-secret"

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *captureNotifier) Dispatch(msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func newTestSite(t *testing.T) (*httptest.Server, *lending.Service, *captureNotifier) {
	t.Helper()
	database := db.NewTestDB(t)
	notifier := &captureNotifier{}
	svc := lending.NewService(database, notifier)

	router, err := NewRouter(svc, database, testJWTSecret)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	adminHash, _ := auth.HashPassword("adminpass")
	store.CreateUser(ctx, database, "admin", adminHash, model.RoleAdmin)
	opHash, _ := auth.HashPassword("operatorpass")
	store.CreateUser(ctx, database, "operator", opHash, model.RoleOperator)

	return server, svc, notifier
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, c *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(target, form)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	resp.Body.Close()
	return resp
}

func getBody(t *testing.T, c *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := c.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func login(t *testing.T, c *http.Client, base, username, password string) {
	t.Helper()
	resp := postForm(t, c, base+"/login", url.Values{"username": {username}, "password": {password}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("login as %s: expected redirect to /, got %d %q", username, resp.StatusCode, resp.Header.Get("Location"))
	}
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	server, _, _ := newTestSite(t)
	c := newClient(t)

	resp, err := c.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectRedirect(t, resp, "/login")

	status, body := getBody(t, c, server.URL+"/login")
	if status != http.StatusOK || !strings.Contains(body, "Sign in") {
		t.Fatalf("expected login page, got %d", status)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	server, _, _ := newTestSite(t)
	c := newClient(t)

	resp, err := c.PostForm(server.URL+"/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Wrong username or password.") {
		t.Error("expected error message on login page")
	}
}

func TestItemLifecycle(t *testing.T) {
	server, svc, _ := newTestSite(t)
	c := newClient(t)
	login(t, c, server.URL, "operator", "operatorpass")

	resp := postForm(t, c, server.URL+"/items", url.Values{"name": {"Projector"}, "quantity": {"2"}})
	expectRedirect(t, resp, "/")

	status, body := getBody(t, c, server.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Projector") {
		t.Error("expected item on dashboard")
	}
	if !strings.Contains(body, "Added Projector.") {
		t.Error("expected success flash on dashboard")
	}

	// The flash is shown once.
	_, body = getBody(t, c, server.URL+"/")
	if strings.Contains(body, "Added Projector.") {
		t.Error("expected flash to be consumed")
	}

	items, _ := svc.ListItems(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	id := strconv.FormatInt(items[0].ID, 10)

	resp = postForm(t, c, server.URL+"/items/"+id, url.Values{"name": {"Beamer"}, "quantity": {"3"}})
	expectRedirect(t, resp, "/")
	item, err := svc.GetItem(context.Background(), items[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if item.Name != "Beamer" || item.Quantity != 3 {
		t.Errorf("expected Beamer x3, got %s x%d", item.Name, item.Quantity)
	}

	resp = postForm(t, c, server.URL+"/items/"+id+"/delete", nil)
	expectRedirect(t, resp, "/")
	items, _ = svc.ListItems(context.Background())
	if len(items) != 0 {
		t.Errorf("expected no items after delete, got %d", len(items))
	}
}

func TestItemValidationFlash(t *testing.T) {
	server, svc, _ := newTestSite(t)
	c := newClient(t)
	login(t, c, server.URL, "operator", "operatorpass")

	resp := postForm(t, c, server.URL+"/items", url.Values{"name": {"Tent"}, "quantity": {"1.5"}})
	expectRedirect(t, resp, "/")

	_, body := getBody(t, c, server.URL+"/")
	if !strings.Contains(body, "quantity must be a whole number") {
		t.Error("expected quantity error flash")
	}

	resp = postForm(t, c, server.URL+"/items", url.Values{"name": {"Tent"}, "quantity": {"-1"}})
	expectRedirect(t, resp, "/")
	_, body = getBody(t, c, server.URL+"/")
	if !strings.Contains(body, "Invalid input") {
		t.Error("expected validation flash for negative quantity")
	}

	items, _ := svc.ListItems(context.Background())
	if len(items) != 0 {
		t.Errorf("expected no items created, got %d", len(items))
	}
}

func TestBorrowAndApprove(t *testing.T) {
	server, svc, notifier := newTestSite(t)
	ctx := context.Background()
	qty := 1
	item, err := svc.CreateItem(ctx, model.ItemInput{Name: "Projector", Quantity: &qty})
	if err != nil {
		t.Fatal(err)
	}

	public := newClient(t)
	status, body := getBody(t, public, server.URL+"/borrow")
	if status != http.StatusOK || !strings.Contains(body, "Projector") {
		t.Fatalf("expected borrow page listing the item, got %d", status)
	}

	resp := postForm(t, public, server.URL+"/borrow", url.Values{
		"item_id": {strconv.FormatInt(item.ID, 10)},
		"email":   {"ana@example.com"},
	})
	expectRedirect(t, resp, "/borrow")

	open, _ := svc.ListOpenRequests(ctx, 0)
	if len(open) != 1 {
		t.Fatalf("expected 1 open request, got %d", len(open))
	}
	reqID := strconv.FormatInt(open[0].ID, 10)

	c := newClient(t)
	login(t, c, server.URL, "operator", "operatorpass")

	resp = postForm(t, c, server.URL+"/requests/"+reqID+"/approve", url.Values{"note": {"Pick it up at noon"}, "send_mail": {"1"}})
	expectRedirect(t, resp, "/")

	req, err := svc.GetRequest(ctx, open[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != model.StatusApproved {
		t.Errorf("expected approved, got %s", req.Status)
	}
	if notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.count())
	}

	resp = postForm(t, c, server.URL+"/requests/"+reqID+"/return", nil)
	expectRedirect(t, resp, "/")
	if notifier.count() != 1 {
		t.Errorf("expected no notification without send_mail, got %d", notifier.count())
	}

	resp = postForm(t, c, server.URL+"/requests/"+reqID+"/delete", nil)
	expectRedirect(t, resp, "/")
	open, _ = svc.ListOpenRequests(ctx, 0)
	if len(open) != 0 {
		t.Errorf("expected no open requests, got %d", len(open))
	}
}

func TestBorrowRejectsInvalidEmail(t *testing.T) {
	server, svc, _ := newTestSite(t)
	qty := 1
	item, _ := svc.CreateItem(context.Background(), model.ItemInput{Name: "Tent", Quantity: &qty})

	c := newClient(t)
	resp, err := c.PostForm(server.URL+"/borrow", url.Values{
		"item_id": {strconv.FormatInt(item.ID, 10)},
		"email":   {"not-an-email"},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Invalid input") {
		t.Error("expected validation message on borrow page")
	}
	if !strings.Contains(string(body), "not-an-email") {
		t.Error("expected submitted email to be kept in the form")
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	server, _, notifier := newTestSite(t)
	c := newClient(t)
	login(t, c, server.URL, "operator", "operatorpass")

	resp := postForm(t, c, server.URL+"/requests/42/approve", url.Values{"send_mail": {"1"}})
	expectRedirect(t, resp, "/")

	_, body := getBody(t, c, server.URL+"/")
	if !strings.Contains(body, "borrow request 42 not found") {
		t.Error("expected not found flash")
	}
	if notifier.count() != 0 {
		t.Errorf("expected no notification, got %d", notifier.count())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	server, _, _ := newTestSite(t)
	c := newClient(t)
	login(t, c, server.URL, "admin", "adminpass")

	serverURL, _ := url.Parse(server.URL)
	var token string
	for _, cookie := range c.Jar.Cookies(serverURL) {
		if cookie.Name == authCookie {
			token = cookie.Value
		}
	}
	if token == "" {
		t.Fatal("expected session cookie after login")
	}

	resp := postForm(t, c, server.URL+"/logout", nil)
	expectRedirect(t, resp, "/login")

	// Replaying the old cookie must not work.
	replay := newClient(t)
	replay.Jar.SetCookies(serverURL, []*http.Cookie{{Name: authCookie, Value: token, Path: "/"}})
	resp, err := replay.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectRedirect(t, resp, "/login")
}

func TestUsersPageRequiresAdmin(t *testing.T) {
	server, _, _ := newTestSite(t)

	op := newClient(t)
	login(t, op, server.URL, "operator", "operatorpass")
	status, _ := getBody(t, op, server.URL+"/users")
	if status != http.StatusForbidden {
		t.Errorf("operator: expected 403, got %d", status)
	}

	admin := newClient(t)
	login(t, admin, server.URL, "admin", "adminpass")
	status, body := getBody(t, admin, server.URL+"/users")
	if status != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", status)
	}
	if !strings.Contains(body, "operator") {
		t.Error("expected users listed")
	}

	resp := postForm(t, admin, server.URL+"/users", url.Values{
		"username": {"newbie"}, "password": {"longenough"}, "role": {model.RoleOperator},
	})
	expectRedirect(t, resp, "/users")
	_, body = getBody(t, admin, server.URL+"/users")
	if !strings.Contains(body, "User newbie created.") {
		t.Error("expected creation flash")
	}

	newbie := newClient(t)
	login(t, newbie, server.URL, "newbie", "longenough")
}

func TestSettingsChangePassword(t *testing.T) {
	server, _, _ := newTestSite(t)
	c := newClient(t)
	login(t, c, server.URL, "operator", "operatorpass")

	resp := postForm(t, c, server.URL+"/settings", url.Values{
		"current_password": {"wrong"}, "new_password": {"brandnewpass"},
	})
	expectRedirect(t, resp, "/settings")
	_, body := getBody(t, c, server.URL+"/settings")
	if !strings.Contains(body, "Current password is incorrect.") {
		t.Error("expected incorrect password flash")
	}

	resp = postForm(t, c, server.URL+"/settings", url.Values{
		"current_password": {"operatorpass"}, "new_password": {"brandnewpass"},
	})
	expectRedirect(t, resp, "/settings")

	login(t, newClient(t), server.URL, "operator", "brandnewpass")
}

func TestStaticAssets(t *testing.T) {
	server, _, _ := newTestSite(t)
	status, body := getBody(t, newClient(t), server.URL+"/static/style.css")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "body") {
		t.Error("expected stylesheet content")
	}
}
