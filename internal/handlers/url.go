package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/serroba/shortener-ws/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the set of mapping operations exposed over HTTP.
type Shortener interface {
	Add(ctx context.Context, rawURL string) (*shortener.Mapping, error)
	Info(ctx context.Context, rawURL string) (*shortener.Mapping, error)
	Deactivate(ctx context.Context, rawURL string) (*shortener.Mapping, error)
	Query(ctx context.Context, codeOrURL string) (string, error)
}

// TextRewriter shortens every URL found in a text.
type TextRewriter interface {
	Rewrite(ctx context.Context, text string, scan shortener.Scanner) (string, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service  Shortener
	rewriter TextRewriter
	scan     shortener.Scanner
	link     shortener.Linker
	logger   *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service Shortener,
	rewriter TextRewriter,
	link shortener.Linker,
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:  service,
		rewriter: rewriter,
		scan:     shortener.ScanURLs,
		link:     link,
		logger:   logger,
	}
}

// NewLinker renders short URLs as baseURL + basePath + "/" + code.
func NewLinker(baseURL, basePath string) shortener.Linker {
	prefix := strings.TrimRight(baseURL, "/") + "/" + strings.Trim(basePath, "/")
	prefix = strings.TrimRight(prefix, "/")

	return func(code shortener.Code) string {
		return prefix + "/" + string(code)
	}
}

func (h *URLHandler) AddURL(ctx context.Context, req *URLQuery) (*AddURLResponse, error) {
	mapping, err := h.service.Add(ctx, req.URL)
	if err != nil {
		return nil, h.toAPIError(ctx, "add", err)
	}

	body := h.toBody(mapping)

	return &AddURLResponse{Location: body.Value, Body: body}, nil
}

func (h *URLHandler) GetURLInfo(ctx context.Context, req *URLQuery) (*MappingResponse, error) {
	mapping, err := h.service.Info(ctx, req.URL)
	if err != nil {
		return nil, h.toAPIError(ctx, "info", err)
	}

	return &MappingResponse{Body: h.toBody(mapping)}, nil
}

func (h *URLHandler) DeactivateURL(ctx context.Context, req *URLQuery) (*DeactivateResponse, error) {
	mapping, err := h.service.Deactivate(ctx, req.URL)
	if err != nil {
		return nil, h.toAPIError(ctx, "deactivate", err)
	}

	resp := &DeactivateResponse{}
	resp.Body.Status = "OK"
	resp.Body.Code = string(mapping.Code)

	return resp, nil
}

func (h *URLHandler) RewriteText(ctx context.Context, req *RewriteTextRequest) (*RewriteTextResponse, error) {
	text, err := h.rewriter.Rewrite(ctx, req.Body.Text, h.scan)
	if err != nil {
		return nil, h.toAPIError(ctx, "rewrite", err)
	}

	resp := &RewriteTextResponse{}
	resp.Body.Value = text

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	originalURL, err := h.service.Query(ctx, req.Code)
	if err != nil {
		return nil, h.toAPIError(ctx, "query", err)
	}

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     originalURL,
		CacheControl: "no-store",
	}, nil
}

func (h *URLHandler) toBody(m *shortener.Mapping) MappingBody {
	return MappingBody{
		Code:          string(m.Code),
		Value:         h.link(m.Code),
		OriginalURL:   m.OriginalURL,
		Status:        string(m.Status),
		CreatedAt:     m.CreatedAt,
		DeactivatedAt: m.DeactivatedAt,
	}
}
