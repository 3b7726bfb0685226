package handlers

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-ws/internal/ratelimit"
)

// RegisterRoutes registers the shortener routes under basePath.
func RegisterRoutes(api huma.API, basePath string, urlHandler *URLHandler) {
	base := "/" + strings.Trim(basePath, "/")
	if base == "/" {
		base = ""
	}

	huma.Register(api, huma.Operation{
		OperationID:   "add-url",
		Method:        http.MethodPost,
		Path:          base + "/x-url",
		Summary:       "Shorten a URL",
		Description:   "Returns the active mapping for the URL, creating one with a new short code if needed.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.AddURL)

	huma.Register(api, huma.Operation{
		OperationID: "get-url-info",
		Method:      http.MethodGet,
		Path:        base + "/x-url",
		Summary:     "Get mapping info",
		Description: "Returns the most recent mapping for the URL, active or deactivated.",
		Tags:        []string{"URLs"},
	}, urlHandler.GetURLInfo)

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-url",
		Method:      http.MethodDelete,
		Path:        base + "/x-url",
		Summary:     "Deactivate a URL",
		Description: "Deactivates the active mapping for the URL. Its short code stops resolving and is never reused.",
		Tags:        []string{"URLs"},
	}, urlHandler.DeactivateURL)

	huma.Register(api, huma.Operation{
		OperationID:   "rewrite-text",
		Method:        http.MethodPost,
		Path:          base + "/x-text",
		Summary:       "Shorten URLs in text",
		Description:   "Replaces every URL in the text with its short URL.",
		Tags:          []string{"Text"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.RewriteText)

	// Redirects are limited under their own scope.
	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        base + "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with an active short code.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeRedirect},
		},
	}, urlHandler.RedirectToURL)
}
