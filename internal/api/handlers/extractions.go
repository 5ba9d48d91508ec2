package handlers

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-review/internal/api/middleware"
	"github.com/dvloznov/statement-review/internal/domain"
)

// ExtractionsHandler handles extraction requests.
type ExtractionsHandler struct {
	extractor Extractor
	log       zerolog.Logger
}

// NewExtractionsHandler creates a new extractions handler.
func NewExtractionsHandler(extractor Extractor, log zerolog.Logger) *ExtractionsHandler {
	return &ExtractionsHandler{
		extractor: extractor,
		log:       log,
	}
}

func validateExtractionRequest(req *domain.ExtractionRequest) error {
	req.BlobID = strings.TrimSpace(req.BlobID)
	return validation.ValidateStruct(req,
		validation.Field(&req.BlobID, validation.Required, validation.Length(1, 1024)),
		validation.Field(&req.DocID, validation.Length(0, 256)),
		validation.Field(&req.Model, validation.Length(0, 128)),
		validation.Field(&req.PromptID, validation.Length(0, 128)),
		validation.Field(&req.PromptVersion, validation.Length(0, 64)),
	)
}

// CreateExtraction handles POST /api/extractions
func (h *ExtractionsHandler) CreateExtraction(w http.ResponseWriter, r *http.Request) {
	var req domain.ExtractionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validateExtractionRequest(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := h.extractor.Extract(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("blob_id", req.BlobID).Msg("Failed to extract document")
		writeServiceError(w, err, "Extraction failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, preview)
}
