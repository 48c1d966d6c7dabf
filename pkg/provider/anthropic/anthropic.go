package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

// Provider implements provider.Provider and provider.FileStore for the
// Anthropic Messages API.
type Provider struct {
	cfg    Config
	client anthropic.Client
}

// Ensure Provider implements the provider interfaces at compile time.
var (
	_ provider.Provider  = (*Provider)(nil)
	_ provider.FileStore = (*Provider)(nil)
)

// New creates a Provider. An empty API key is allowed only when every
// request carries its own key.
func New(cfg Config) (*Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("anthropic: max retries must not be negative")
	}

	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &Provider{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Close releases provider resources. The SDK client holds none.
func (p *Provider) Close() error {
	return nil
}

// Stream starts a streaming generation on the beta Messages API.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (provider.EventStream, error) {
	if err := p.checkKey(req); err != nil {
		return nil, err
	}
	params := buildParams(req)
	debug.Log("upstream", "stream request",
		"model", params.Model, "skills", len(req.Skills), "container", req.ContainerID, "betas", req.Betas)

	s := p.client.Beta.Messages.NewStreaming(ctx, params, requestOptions(req)...)
	return newEventStream(s), nil
}

// Complete performs a non-streaming generation.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Message, error) {
	if err := p.checkKey(req); err != nil {
		return nil, err
	}
	params := buildParams(req)
	debug.Log("upstream", "complete request", "model", params.Model, "skills", len(req.Skills))

	opts := append(requestOptions(req), option.WithRequestTimeout(p.cfg.Timeout))
	msg, err := p.client.Beta.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, mapError(err)
	}
	return convertMessage(msg), nil
}

func (p *Provider) checkKey(req *provider.Request) error {
	if p.cfg.APIKey == "" && req.APIKey == "" {
		return fmt.Errorf("anthropic: no API key configured")
	}
	return nil
}

func requestOptions(req *provider.Request) []option.RequestOption {
	if req.APIKey == "" {
		return nil
	}
	return []option.RequestOption{option.WithAPIKey(req.APIKey)}
}
