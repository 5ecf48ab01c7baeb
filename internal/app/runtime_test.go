package app

import (
	"context"
	"testing"
	"time"

	"github.com/vistaar-ai/vistaar/internal/api"
	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/config"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/session"
)

type noopAdvisor struct{}

func (noopAdvisor) StreamTurn(context.Context, string, string, string, chat.StreamCallback) (*chat.Turn, error) {
	return &chat.Turn{}, nil
}

func TestServeStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	server, err := api.NewServer(api.ServerConfig{
		Advisor:  noopAdvisor{},
		Sessions: &session.Store{},
		Logger:   log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	a := &App{
		Config: &config.Config{Host: "127.0.0.1", Port: 0},
		Logger: log.NewNop(),
		Server: server,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	// Give the listener a moment to come up, then stop it.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after context cancel")
	}
}
