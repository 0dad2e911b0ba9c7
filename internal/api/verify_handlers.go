package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/verify"
)

const (
	// maxVerifyBatch bounds a synchronous batch; larger lists go through the
	// background verification worker.
	maxVerifyBatch = 100

	// verifyItemBudget is the worst case for one batch item: the inter-item
	// delay plus a mailbox probe and a catch-all probe at the default timeout.
	verifyItemBudget = 25 * time.Second
)

type verifyRequest struct {
	Email string `json:"email"`
}

// VerifyEmail checks one address.
//
//	POST /api/v1/verify
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httputil.BadRequest(w, "email is required")
		return
	}
	httputil.OK(w, h.verifier.Verify(r.Context(), req.Email))
}

type verifyBatchRequest struct {
	Items []verify.BatchItem `json:"items"`
	Save  bool               `json:"save"`
}

type verifyBatchResponse struct {
	Results []verify.BatchResult `json:"results"`
	Summary verify.BatchSummary  `json:"summary"`
	Partial bool                 `json:"partial,omitempty"`
}

// VerifyBatch checks a list of leads sequentially. With save set, verdicts
// are written to the lead rows.
//
//	POST /api/v1/verify/batch
func (h *Handlers) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req verifyBatchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		httputil.BadRequest(w, "items is required")
		return
	}
	if len(req.Items) > maxVerifyBatch {
		httputil.BadRequest(w, "too many items")
		return
	}

	// The server-wide write timeout is sized for single requests.
	deadline := time.Now().Add(time.Duration(len(req.Items)) * verifyItemBudget)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		logger.Debug("batch write deadline not extended", "error", err)
	}

	var store verify.RecordStore
	if req.Save {
		store = h.records
	}
	results, err := h.verifier.VerifyBatch(r.Context(), req.Items, store)
	httputil.OK(w, verifyBatchResponse{
		Results: results,
		Summary: verify.Summarize(results),
		Partial: err != nil,
	})
}
