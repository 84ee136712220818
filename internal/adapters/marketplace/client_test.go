package marketplace_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"staybook/internal/adapters/marketplace"
	"staybook/internal/auth"
	"staybook/internal/domain"
)

func newAPI(t *testing.T, base string) *marketplace.API {
	t.Helper()
	api, err := marketplace.NewAPI(marketplace.Endpoints{
		Users: base, Properties: base, Bookings: base, Vendors: base, VendorServices: base,
		RPS: 100, // high RPS for tests
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return api
}

func TestClient_GetProperty_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			_ = json.NewEncoder(w).Encode(domain.Property{ID: 123, Title: "Dune House"})
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := newAPI(t, ts.URL).GetProperty(ctx, 123)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ID != 123 || got.Title != "Dune House" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_PostNotRetriedOnServerError(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(502)
	}))
	defer ts.Close()

	_, err := newAPI(t, ts.URL).CreateBooking(context.Background(), domain.BookingRequest{PropertyID: 1})
	if domain.StatusOf(err) != 502 {
		t.Fatalf("want 502, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("POST must not be replayed on 5xx, got %d calls", hits)
	}
}

func TestClient_PostRetriedOnTooManyRequests(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(429)
			return
		}
		w.WriteHeader(201)
		_ = json.NewEncoder(w).Encode(domain.Booking{ID: 9})
	}))
	defer ts.Close()

	b, err := newAPI(t, ts.URL).CreateBooking(context.Background(), domain.BookingRequest{PropertyID: 1})
	if err != nil || b.ID != 9 {
		t.Fatalf("unexpected result: %+v %v", b, err)
	}
	if hits != 2 {
		t.Fatalf("expected one retry, got %d calls", hits)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/properties/1":
			http.NotFound(w, r)
		case "/properties/2":
			w.WriteHeader(403)
		default:
			w.WriteHeader(422)
			_, _ = io.WriteString(w, `{"check_out":["must be after check_in"]}`)
		}
	}))
	defer ts.Close()
	api := newAPI(t, ts.URL)
	ctx := context.Background()

	if _, err := api.GetProperty(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := api.GetProperty(ctx, 2); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	_, err := api.CreateBooking(ctx, domain.BookingRequest{})
	var ae *domain.APIError
	if !errors.As(err, &ae) || ae.Status != 422 || ae.Body == "" {
		t.Fatalf("want 422 APIError with body, got %v", err)
	}
}

func TestSearch_EnvelopeMapping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("location") != "Doha" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		body := map[string]any{
			"count":   3,
			"results": []domain.Property{{ID: 1}, {ID: 2}},
			"next":    nil,
		}
		if r.URL.Query().Get("page") == "" {
			body["next"] = "http://upstream/properties/search?page=2"
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer ts.Close()
	api := newAPI(t, ts.URL)

	p1, err := api.SearchProperties(context.Background(), url.Values{"location": {"Doha"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(p1.Items) != 2 || p1.Total != 3 || !p1.HasMore || p1.Page != 1 {
		t.Fatalf("unexpected first page: %+v", p1)
	}
	p2, err := api.SearchProperties(context.Background(), url.Values{"location": {"Doha"}, "page": {"2"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if p2.HasMore || p2.Page != 2 {
		t.Fatalf("last page should not advertise more: %+v", p2)
	}
}

// tokenServer accepts only "fresh" bearer tokens and issues them on refresh.
func tokenServer(t *testing.T, refreshes, hits *int32, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			atomic.AddInt32(refreshes, 1)
			var in struct{ Refresh string }
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in.Refresh != "r1" {
				w.WriteHeader(401)
				return
			}
			_ = json.NewEncoder(w).Encode(domain.Credentials{Access: "fresh", Refresh: "r2"})
			return
		}
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(401)
			return
		}
		handler(w, r)
	}))
}

func TestSession_RefreshesAndReplaysOnce(t *testing.T) {
	var refreshes, hits int32
	ts := tokenServer(t, &refreshes, &hits, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 1, "results": []domain.Booking{{ID: 5}}})
	})
	defer ts.Close()
	api := newAPI(t, ts.URL)

	store := auth.NewMemoryStore(domain.Credentials{Access: "stale", Refresh: "r1"})
	sess := auth.NewSession(store, api)
	ctx := auth.NewContext(context.Background(), sess)

	page, err := api.MyBookings(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if refreshes != 1 || hits != 2 {
		t.Fatalf("want 1 refresh and 2 sends, got %d/%d", refreshes, hits)
	}
	if c, _ := store.Load(ctx); c.Access != "fresh" || c.Refresh != "r2" {
		t.Fatalf("credentials not rotated: %+v", c)
	}
}

func TestMe_ExpiredAccessRefreshesAndReplays(t *testing.T) {
	var refreshes, hits int32
	ts := tokenServer(t, &refreshes, &hits, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(domain.User{ID: 7, Email: "alice@example.com"})
	})
	defer ts.Close()
	api := newAPI(t, ts.URL)

	store := auth.NewMemoryStore(domain.Credentials{Access: "stale", Refresh: "r1"})
	sess := auth.NewSession(store, api)
	ctx := auth.NewContext(context.Background(), sess)

	u, err := api.Me(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if refreshes != 1 || hits != 2 {
		t.Fatalf("want 1 refresh and 2 sends, got %d/%d", refreshes, hits)
	}
	if sess.State() != auth.Authorized {
		t.Fatalf("state = %s", sess.State())
	}
	if c, _ := store.Load(ctx); c.Access != "fresh" || c.Refresh != "r2" {
		t.Fatalf("credentials not rotated: %+v", c)
	}
}

func TestSession_RefreshRejectedLogsOut(t *testing.T) {
	var refreshes, hits int32
	ts := tokenServer(t, &refreshes, &hits, func(w http.ResponseWriter, r *http.Request) {})
	defer ts.Close()
	api := newAPI(t, ts.URL)

	sess := auth.NewSession(auth.NewMemoryStore(domain.Credentials{Access: "stale", Refresh: "revoked"}), api)
	var loggedOut int32
	sess.OnLogout(func(error) { atomic.AddInt32(&loggedOut, 1) })
	ctx := auth.NewContext(context.Background(), sess)

	if _, err := api.GetBooking(ctx, 1); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want 401, got %v", err)
	}
	if hits != 1 || refreshes != 1 || loggedOut != 1 {
		t.Fatalf("want single send, single refresh, single logout; got %d/%d/%d", hits, refreshes, loggedOut)
	}
}

func TestUploadImage_ReplaySendsSameFile(t *testing.T) {
	var refreshes, hits int32
	ts := tokenServer(t, &refreshes, &hits, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(400)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if hdr.Filename != "pool.jpg" || string(b) != "pixels" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, b)
		}
		w.WriteHeader(201)
		_ = json.NewEncoder(w).Encode(domain.Image{ID: 77, URL: "https://cdn/77.jpg"})
	})
	defer ts.Close()
	api := newAPI(t, ts.URL)

	sess := auth.NewSession(auth.NewMemoryStore(domain.Credentials{Access: "stale", Refresh: "r1"}), api)
	ctx := auth.NewContext(context.Background(), sess)

	img, err := api.UploadImage(ctx, "pool.jpg", strings.NewReader("pixels"))
	if err != nil || img.ID != 77 {
		t.Fatalf("upload: %+v %v", img, err)
	}
	if hits != 2 {
		t.Fatalf("expected original + replay, got %d", hits)
	}
}

func TestLogin_BadCredentialsDoNotTouchSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer ts.Close()
	api := newAPI(t, ts.URL)

	sess := auth.NewSession(auth.NewMemoryStore(domain.Credentials{Access: "a", Refresh: "r"}), api)
	ctx := auth.NewContext(context.Background(), sess)
	if _, err := api.Login(ctx, "guest@example.com", "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want 401, got %v", err)
	}
	if sess.State() != auth.Authorized {
		t.Fatalf("login failure must not end an existing session, state=%s", sess.State())
	}
}
