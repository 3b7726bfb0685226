package handlers

import "time"

// URLQuery identifies a mapping by its original URL. A missing url is left to the
// service, which reports it as INVALID_URL or NOT_FOUND.
type URLQuery struct {
	URL string `doc:"The original URL" example:"https://example.com/very/long/path" query:"url"`
}

// MappingBody is the JSON representation of a mapping.
type MappingBody struct {
	Code          string     `doc:"The short code"                   example:"abc123"                             json:"code"`
	Value         string     `doc:"The full short URL"               example:"http://localhost:8888/abc123"       json:"value"`
	OriginalURL   string     `doc:"The original URL"                 example:"https://example.com/very/long/path" json:"originalUrl"`
	Status        string     `doc:"Lifecycle status"                 enum:"active,deactivated"                    json:"status"`
	CreatedAt     time.Time  `doc:"When the mapping was created"     json:"createdAt"`
	DeactivatedAt *time.Time `doc:"When the mapping was deactivated" json:"deactivatedAt,omitempty"`
}

// AddURLResponse is returned when a URL is shortened.
type AddURLResponse struct {
	Location string `doc:"The short URL" header:"Location"`
	Body     MappingBody
}

// MappingResponse is returned by the info operation.
type MappingResponse struct {
	Body MappingBody
}

// DeactivateResponse confirms a deactivation.
type DeactivateResponse struct {
	Body struct {
		Status string `doc:"Always OK"                 example:"OK"     json:"status"`
		Code   string `doc:"The deactivated short code" example:"abc123" json:"code"`
	}
}

// RewriteTextRequest carries free text containing URLs.
type RewriteTextRequest struct {
	Body struct {
		Text string `doc:"Text whose URLs are shortened" example:"read https://example.com/a/long/article" json:"text"`
	}
}

// RewriteTextResponse carries the rewritten text.
type RewriteTextResponse struct {
	Body struct {
		Value string `doc:"The text with every URL replaced by its short URL" json:"value"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse redirects to the original URL.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}
