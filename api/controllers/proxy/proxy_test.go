package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "proxy-test", Output: io.Discard})
}

type stubForwarder struct {
	got  livedatanow.ForwardRequest
	resp *livedatanow.Response
	err  error
}

func (s *stubForwarder) Forward(_ context.Context, req livedatanow.ForwardRequest) (*livedatanow.Response, error) {
	s.got = req
	return s.resp, s.err
}

type stubAcquirer struct {
	resp *livedatanow.Response
	err  error
}

func (s stubAcquirer) AcquireInitialAPIKey(context.Context) (*livedatanow.Response, error) {
	return s.resp, s.err
}

func mounted(h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/proxy/*", h)
	r.Post("/api/proxy/*", h)
	r.Put("/api/proxy/*", h)
	return r
}

func TestOnlineOrderForwardsGetWithQuery(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{resp: &livedatanow.Response{Status: 200, Body: []byte(`{"data":[1,2]}`)}}
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/product?storeId=s1&page=2", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"data":[1,2]}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if fwd.got.Method != http.MethodGet || fwd.got.Path != "product" || fwd.got.RawQuery != "storeId=s1&page=2" {
		t.Fatalf("unexpected forward %+v", fwd.got)
	}
	if fwd.got.Authorization != "Bearer abc" || fwd.got.Body != nil {
		t.Fatalf("unexpected auth/body %+v", fwd.got)
	}
}

func TestOnlineOrderForwardsRawBodyOnWrite(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		fwd := &stubForwarder{resp: &livedatanow.Response{Status: 201, Body: []byte(`{"ok":true}`)}}
		req := httptest.NewRequest(method, "/api/proxy/auth/login?ignored=1", strings.NewReader(`{"phone":"555"}`))
		rec := httptest.NewRecorder()
		mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: success is always relayed as 200, got %d", method, rec.Code)
		}
		if string(fwd.got.Body) != `{"phone":"555"}` || fwd.got.RawQuery != "" || fwd.got.Path != "auth/login" {
			t.Fatalf("%s: unexpected forward %+v", method, fwd.got)
		}
	}
}

func TestOnlineOrderRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{resp: &livedatanow.Response{Status: 200, Body: []byte(`{}`)}}
	body := strings.Repeat("a", requestBodyLimit+11)
	req := httptest.NewRequest(http.MethodPost, "/api/proxy/order/place-order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgBodyTooLarge) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if fwd.got.Method != "" {
		t.Fatalf("oversized body must not be forwarded, got %+v", fwd.got)
	}
}

func TestOnlineOrderForwardsBodyAtLimit(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{resp: &livedatanow.Response{Status: 200, Body: []byte(`{}`)}}
	body := strings.Repeat("a", requestBodyLimit)
	req := httptest.NewRequest(http.MethodPut, "/api/proxy/cart", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(fwd.got.Body) != requestBodyLimit {
		t.Fatalf("expected %d forwarded bytes, got %d", requestBodyLimit, len(fwd.got.Body))
	}
}

func TestOnlineOrderRelaysUpstreamFailure(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{resp: &livedatanow.Response{Status: 404, StatusText: "Not Found", Body: []byte(`{"message":"Product missing"}`)}}
	rec := httptest.NewRecorder()
	mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/product/x", nil))

	if rec.Code != http.StatusNotFound || strings.TrimSpace(rec.Body.String()) != `{"error":"Product missing"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestOnlineOrderExceptionsBecomeGenericFailure(t *testing.T) {
	t.Parallel()

	cases := map[string]*stubForwarder{
		"transport":     {err: errors.New("dial tcp: refused")},
		"non json body": {resp: &livedatanow.Response{Status: 200, Body: []byte("<html>")}},
		"empty body":    {resp: &livedatanow.Response{Status: 200}},
	}
	for name, fwd := range cases {
		rec := httptest.NewRecorder()
		mounted(OnlineOrder(fwd, testLogger())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/department", nil))
		if rec.Code != http.StatusInternalServerError || strings.TrimSpace(rec.Body.String()) != `{"error":"Failed to fetch from external API"}` {
			t.Fatalf("%s: unexpected response %d %s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestMyOrdersRequiresServerToken(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{}
	rec := httptest.NewRecorder()
	MyOrders(fwd, "  ", testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/my-orders", nil))

	if rec.Code != http.StatusInternalServerError || strings.TrimSpace(rec.Body.String()) != `{"error":"WEB_ORDER_TOKEN is not set"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if fwd.got.Path != "" {
		t.Fatalf("no upstream call expected")
	}
}

func TestMyOrdersUsesServerToken(t *testing.T) {
	t.Parallel()

	fwd := &stubForwarder{resp: &livedatanow.Response{Status: 200, Body: []byte(`{"orders":[]}`)}}
	req := httptest.NewRequest(http.MethodGet, "/api/my-orders?page=1&limit=5", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rec := httptest.NewRecorder()
	MyOrders(fwd, "server-token", testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if fwd.got.Authorization != "Bearer server-token" || fwd.got.Path != "order/my-orders" || fwd.got.RawQuery != "page=1&limit=5" {
		t.Fatalf("unexpected forward %+v", fwd.got)
	}

	failing := &stubForwarder{err: errors.New("timeout")}
	rec = httptest.NewRecorder()
	MyOrders(failing, "server-token", testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/my-orders", nil))
	if strings.TrimSpace(rec.Body.String()) != `{"error":"Failed to fetch orders"}` {
		t.Fatalf("unexpected failure body %s", rec.Body.String())
	}
}

func TestAcquireAPIKey(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	AcquireAPIKey(stubAcquirer{resp: &livedatanow.Response{Status: 200, Body: []byte(`{"apiKey":"k"}`)}}, testLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payment/acquire-api-key", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"apiKey":"k"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	AcquireAPIKey(stubAcquirer{resp: &livedatanow.Response{Status: 401, StatusText: "Unauthorized"}}, testLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payment/acquire-api-key", nil))
	if rec.Code != http.StatusUnauthorized || strings.TrimSpace(rec.Body.String()) != `{"error":"Unauthorized"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	AcquireAPIKey(stubAcquirer{err: errors.New("dial")}, testLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payment/acquire-api-key", nil))
	if rec.Code != http.StatusInternalServerError || strings.TrimSpace(rec.Body.String()) != `{"error":"Failed to fetch from payment gateway"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestOnlineOrderAgainstUpstreamServer(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/online-order/department" || r.URL.Query().Get("storeId") != "s1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad path ` + r.URL.Path + `"}`))
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		_, _ = w.Write([]byte(`{"departments":[{"_id":"d1","name":"Mains"}]}`))
	}))
	defer upstream.Close()

	client, err := livedatanow.NewClient(config.UpstreamConfig{BaseURL: upstream.URL + "/api/online-order", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	rec := httptest.NewRecorder()
	mounted(OnlineOrder(client, testLogger())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/department?storeId=s1", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != `{"departments":[{"_id":"d1","name":"Mains"}]}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
