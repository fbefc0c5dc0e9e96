package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var center = cache.Key{Z: 12, X: 2035, Y: 1374}

type countingWaker struct {
	wakes int
}

func (w *countingWaker) Wake() {
	w.wakes++
}

type testServer struct {
	router   *gin.Engine
	store    *cache.Store
	notifier *usecase.Notifier
	waker    *countingWaker
}

func newTestServer() *testServer {
	l := logger.NewNop()
	store := cache.NewStore(cache.View{CenterX: 2035.5, CenterY: 1374.5, Zoom: 12, MinZoom: 12, TileSize: 640}, 640, 640)
	notifier := usecase.NewNotifier()
	waker := &countingWaker{}

	h := handler.NewHandler(
		validator.New(),
		usecase.NewViewUseCase(store, waker, l),
		usecase.NewFrameUseCase(store, l),
		usecase.NewTileUseCase(store, l),
		notifier,
	)
	return &testServer{
		router:   NewRouter(h, l, false, "test"),
		store:    store,
		notifier: notifier,
		waker:    waker,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("invalid data %q: %v", env.Data, err)
		}
	}
	return env
}

func TestHealthz(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/v1/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestViewEndpoints(t *testing.T) {
	s := newTestServer()

	var view dto.ViewResponse
	rec := s.do(http.MethodGet, "/api/v1/view", "")
	if env := decode(t, rec, &view); rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("GET /view = %d %+v", rec.Code, env)
	}
	if view.Zoom != 12 || view.CenterX != 2035.5 || view.BBox.MinX != 2035 {
		t.Errorf("unexpected view %+v", view)
	}

	rec = s.do(http.MethodPut, "/api/v1/view", `{"zoom":13}`)
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || view.Zoom != 13 || view.CenterX != 4071 {
		t.Errorf("PUT /view = %d %+v", rec.Code, view)
	}

	rec = s.do(http.MethodPost, "/api/v1/view/pan", `{"dx":640,"dy":-320}`)
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || view.CenterX != 4072 || view.CenterY != 2748.5 {
		t.Errorf("POST /view/pan = %d %+v", rec.Code, view)
	}

	rec = s.do(http.MethodPost, "/api/v1/view/zoom", `{"delta":-1}`)
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || view.Zoom != 12 || view.CenterX != 2036 {
		t.Errorf("POST /view/zoom = %d %+v", rec.Code, view)
	}

	if s.waker.wakes != 3 {
		t.Errorf("worker woken %d times, want 3", s.waker.wakes)
	}
	if got := s.store.View().Zoom; got != 12 {
		t.Errorf("store zoom = %d", got)
	}
}

func TestViewValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed json", http.MethodPut, "/api/v1/view", `{"zoom":`},
		{"zoom out of range", http.MethodPut, "/api/v1/view", `{"zoom":40}`},
		{"negative width", http.MethodPut, "/api/v1/view", `{"width":-1}`},
		{"lon without lat", http.MethodPut, "/api/v1/view", `{"lon":1.5}`},
		{"latitude beyond mercator", http.MethodPut, "/api/v1/view", `{"lon":1.5,"lat":89}`},
		{"zero zoom delta", http.MethodPost, "/api/v1/view/zoom", `{"delta":0}`},
		{"huge pan", http.MethodPost, "/api/v1/view/pan", `{"dx":1e9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			rec := s.do(tt.method, tt.path, tt.body)
			env := decode(t, rec, nil)
			if rec.Code != http.StatusBadRequest || env.Success {
				t.Errorf("got %d %+v, want 400", rec.Code, env)
			}
			if s.waker.wakes != 0 {
				t.Error("rejected request woke the worker")
			}
		})
	}
}

func TestTileLayer(t *testing.T) {
	s := newTestServer()
	path := "/api/v1/tile/12/2035/1374/shapes"

	rec := s.do(http.MethodGet, path, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unrendered layer = %d, want 404", rec.Code)
	}

	s.store.CompleteShape(center, image.NewRGBA(image.Rect(0, 0, 640, 640)), nil, nil)

	rec = s.do(http.MethodGet, path, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("rendered layer = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 {
		t.Errorf("layer size = %v", b)
	}

	for _, bad := range []string{
		"/api/v1/tile/a/2035/1374/shapes",
		"/api/v1/tile/12/b/1374/shapes",
		"/api/v1/tile/12/2035/c/shapes",
		"/api/v1/tile/12/2035/1374/bogus",
	} {
		if rec := s.do(http.MethodGet, bad, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestFrame(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/v1/frame.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("frame = %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 640 {
		t.Errorf("frame size = %v", b)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer()
	s.store.MarkInputError(center)

	var stats dto.StatsResponse
	rec := s.do(http.MethodGet, "/api/v1/cache/stats", "")
	decode(t, rec, &stats)
	if rec.Code != http.StatusOK || len(stats.Levels) != 1 || stats.Levels[0].Failed != 1 {
		t.Errorf("stats = %d %+v", rec.Code, stats)
	}
}

func TestMetrics(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "planner_idle_polls_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestEvents(t *testing.T) {
	s := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	rec := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for s.notifier.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	s.notifier.Notify(usecase.Event{Key: center, Kind: cache.TaskShapes})
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not stop after cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event:repaint") || !strings.Contains(body, `"tile":"12/2035/1374"`) {
		t.Errorf("unexpected stream %q", body)
	}
	if s.notifier.Subscribers() != 0 {
		t.Error("stream did not unsubscribe")
	}
}


// listen serves the router on a loopback port the way the app does, with the
// notifier closed on shutdown.
func (s *testServer) listen(t *testing.T) (*http.Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := http_server.NewServer(config.Server{}, s.router, s.notifier.Close)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return srv, "http://" + ln.Addr().String()
}

func openEvents(t *testing.T, baseURL string) *http.Response {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		resp.Body.Close()
		t.Fatalf("GET /events = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	return resp
}

func TestEventsHeadersArriveBeforeFirstEvent(t *testing.T) {
	s := newTestServer()
	_, baseURL := s.listen(t)

	resp := openEvents(t, baseURL)
	defer resp.Body.Close()

	s.notifier.Notify(usecase.Event{Key: center, Kind: cache.TaskLabels})

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() {
		if lines.Text() == "event:repaint" {
			return
		}
	}
	t.Fatalf("stream ended without a repaint event: %v", lines.Err())
}

func TestShutdownEndsEventStreams(t *testing.T) {
	s := newTestServer()
	srv, baseURL := s.listen(t)

	resp := openEvents(t, baseURL)
	defer resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned %v after %v", err, time.Since(start))
	}
	if s.notifier.Subscribers() != 0 {
		t.Error("stream still subscribed after shutdown")
	}
}
