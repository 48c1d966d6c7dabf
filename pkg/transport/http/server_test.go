package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	gohttp "net/http"
	"testing"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/skills"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return bytes.NewReader(data)
}

func testDeps(svc transport.Service, inflight *transport.InFlightRegistry) Deps {
	return Deps{
		Service:  svc,
		Models:   fakeModels{},
		Catalog:  skills.Default(),
		InFlight: inflight,
	}
}

func startServer(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() { _ = srv.ServeOn(ln) }()
	time.Sleep(50 * time.Millisecond)
	return "http://" + ln.Addr().String()
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	svc := &fakeService{invoke: func(ctx context.Context, _ *api.SkillRequest, w transport.ResponseWriter) error {
		return w.WriteResponse(ctx, &api.SkillResponse{Status: "success", SessionID: "sess_server"})
	}}
	srv := NewServer(testDeps(svc, nil), WithAddr("127.0.0.1:0"))
	base := startServer(t, srv)

	resp, err := gohttp.Post(base+"/invoke", "application/json",
		jsonBody(t, api.SkillRequest{SkillIDs: []string{"pdf"}, Message: "hi"}))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header from the RequestID middleware")
	}

	var got api.SkillResponse
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got.SessionID != "sess_server" {
		t.Errorf("session ID = %q, want %q", got.SessionID, "sess_server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func TestServerRecoversPanics(t *testing.T) {
	svc := &fakeService{invoke: func(context.Context, *api.SkillRequest, transport.ResponseWriter) error {
		panic("boom")
	}}
	srv := NewServer(testDeps(svc, nil))
	base := startServer(t, srv)
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := gohttp.Post(base+"/invoke", "application/json",
		jsonBody(t, api.SkillRequest{SkillIDs: []string{"pdf"}, Message: "hi"}))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	svc := &fakeService{invoke: func(ctx context.Context, _ *api.SkillRequest, w transport.ResponseWriter) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return w.WriteResponse(ctx, &api.SkillResponse{Status: "success"})
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	srv := NewServer(testDeps(svc, nil), WithShutdownTimeout(5*time.Second))
	base := startServer(t, srv)

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Post(base+"/invoke", "application/json",
			jsonBody(t, api.SkillRequest{SkillIDs: []string{"pdf"}, Message: "hi"}))
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	if status := <-responseCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
}

func TestServerShutdownCancelsDetachedSessions(t *testing.T) {
	inflight := transport.NewInFlightRegistry()
	srv := NewServer(testDeps(&fakeService{}, inflight))
	_ = startServer(t, srv)

	sessCtx, cancelSess := context.WithCancelCause(context.Background())
	inflight.Register("sess_detached", cancelSess)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	if !errors.Is(context.Cause(sessCtx), ErrShuttingDown) {
		t.Errorf("cause = %v, want ErrShuttingDown", context.Cause(sessCtx))
	}
	if inflight.Len() != 0 {
		t.Errorf("registry has %d sessions after shutdown", inflight.Len())
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	adapterCfg := DefaultConfig()
	adapterCfg.Version = "2.0.0"

	srv := NewServer(testDeps(&fakeService{}, nil),
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithTimeouts(5*time.Second, 0),
		WithShutdownTimeout(10*time.Second),
		WithAdapterConfig(adapterCfg),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.adapter.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.adapter.config.MaxBodySize, 1024)
	}
	if srv.adapter.config.Version != "2.0.0" {
		t.Errorf("version = %q, want 2.0.0", srv.adapter.config.Version)
	}
	if srv.httpServer.ReadTimeout != 5*time.Second || srv.httpServer.WriteTimeout != 0 {
		t.Errorf("timeouts = %v/%v", srv.httpServer.ReadTimeout, srv.httpServer.WriteTimeout)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
}
