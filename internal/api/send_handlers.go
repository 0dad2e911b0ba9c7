package api

import (
	"net/http"

	"github.com/ignite/mailguard/internal/content"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/service/sending"
)

// Send gates and delivers one message.
//
//	POST /api/v1/send
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sender_disabled", "no sender configured")
		return
	}
	var req sending.Request
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LeadID == "" || req.FromEmail == "" {
		httputil.BadRequest(w, "lead_id and from_email are required")
		return
	}

	out, err := h.gate.Send(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.Status == sending.StatusThrottled {
		httputil.RetryAfter(w, out.Wait)
		httputil.JSON(w, http.StatusTooManyRequests, out)
		return
	}
	httputil.OK(w, out)
}

// RateLimit returns the shared limiter's counters.
//
//	GET /api/v1/ratelimit
func (h *Handlers) RateLimit(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.limiter.State())
}

type previewRequest struct {
	Template string            `json:"template"`
	Variants []content.Variant `json:"variants"`
	Fields   map[string]any    `json:"fields"`
}

type previewResponse struct {
	Rendered string `json:"rendered"`
	Variant  int    `json:"variant"`
}

// Preview renders a template, or a weighted pick from variants, against
// sample merge fields.
//
//	POST /api/v1/content/preview
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	tmpl, idx := req.Template, -1
	if len(req.Variants) > 0 {
		v, ok := content.PickVariant(req.Variants, content.DefaultRand)
		if !ok {
			httputil.BadRequest(w, "variants are empty")
			return
		}
		tmpl = v.Content
		for i := range req.Variants {
			if req.Variants[i].Content == v.Content {
				idx = i
				break
			}
		}
	}
	if err := h.renderer.Validate(tmpl); err != nil {
		httputil.BadRequest(w, "invalid template: "+err.Error())
		return
	}
	out, err := h.renderer.Render(tmpl, req.Fields)
	if err != nil {
		httputil.BadRequest(w, "render failed: "+err.Error())
		return
	}
	httputil.OK(w, previewResponse{Rendered: out, Variant: idx})
}
