package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

var filesBetas = []anthropic.AnthropicBeta{anthropic.AnthropicBetaFilesAPI2025_04_14}

// FileMetadata returns metadata for an upstream file.
func (p *Provider) FileMetadata(ctx context.Context, fileID string) (*api.FileInfo, error) {
	meta, err := p.client.Beta.Files.GetMetadata(ctx, fileID,
		anthropic.BetaFileGetMetadataParams{Betas: filesBetas},
		option.WithRequestTimeout(p.cfg.Timeout))
	if err != nil {
		return nil, mapError(err)
	}
	info := fileInfo(*meta)
	return &info, nil
}

// DownloadFile fetches metadata and content of an upstream file.
func (p *Provider) DownloadFile(ctx context.Context, fileID string) (*provider.File, error) {
	info, err := p.FileMetadata(ctx, fileID)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Beta.Files.Download(ctx, fileID,
		anthropic.BetaFileDownloadParams{Betas: filesBetas})
	if err != nil {
		return nil, mapError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, api.NewUpstreamError(resp.StatusCode, fmt.Sprintf("download of %s failed", fileID))
	}
	return &provider.File{Info: *info, Body: resp.Body}, nil
}

// ListFiles returns the first page of upstream files.
func (p *Provider) ListFiles(ctx context.Context) ([]api.FileInfo, error) {
	page, err := p.client.Beta.Files.List(ctx,
		anthropic.BetaFileListParams{Betas: filesBetas},
		option.WithRequestTimeout(p.cfg.Timeout))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]api.FileInfo, 0, len(page.Data))
	for _, f := range page.Data {
		out = append(out, fileInfo(f))
	}
	return out, nil
}

func fileInfo(m anthropic.FileMetadata) api.FileInfo {
	info := api.FileInfo{
		FileID:    m.ID,
		Filename:  m.Filename,
		SizeBytes: m.SizeBytes,
		MimeType:  m.MimeType,
	}
	if !m.CreatedAt.IsZero() {
		created := m.CreatedAt.UTC().Truncate(time.Second)
		info.CreatedAt = &created
	}
	return info
}
