package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nirvaan-oms/api/internal/database"
)

// maxInquiryLength caps the contact form message in characters.
const maxInquiryLength = 2000

// InquiryStore defines the database methods needed by inquiry handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InquiryStore interface {
	CreateInquiry(ctx context.Context, message string) (database.Inquiry, error)
	ListInquiries(ctx context.Context) ([]database.Inquiry, error)
}

// InquiryHandler handles the contact form.
type InquiryHandler struct {
	store InquiryStore
}

// NewInquiryHandler creates a new InquiryHandler.
func NewInquiryHandler(store InquiryStore) *InquiryHandler {
	return &InquiryHandler{store: store}
}

// RegisterRoutes registers the public submit endpoint.
func (h *InquiryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/inquiries", h.Create)
}

// RegisterAdminRoutes registers the admin read endpoint.
func (h *InquiryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/inquiries", h.List)
}

type inquiryRequest struct {
	Message string `json:"message"`
}

type inquiryResponse struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toInquiryResponse(i database.Inquiry) inquiryResponse {
	return inquiryResponse{
		ID:        i.ID,
		Message:   i.Message,
		Status:    i.Status,
		CreatedAt: i.CreatedAt.Time,
	}
}

// Create handles POST /inquiries.
func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if utf8.RuneCountInString(msg) > maxInquiryLength {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}

	inquiry, err := h.store.CreateInquiry(r.Context(), msg)
	if err != nil {
		internalError(w, "create inquiry", err)
		return
	}

	writeMessage(w, http.StatusCreated, "Inquiry submitted successfully", toInquiryResponse(inquiry))
}

// List handles GET /inquiries, newest first.
func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListInquiries(r.Context())
	if err != nil {
		internalError(w, "list inquiries", err)
		return
	}

	resp := make([]inquiryResponse, len(rows))
	for i, row := range rows {
		resp[i] = toInquiryResponse(row)
	}
	writeData(w, http.StatusOK, resp)
}
