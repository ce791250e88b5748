package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/shopspring/decimal"
)

// SettingsStore defines the settings methods needed by settings handlers.
// Satisfied by *settings.Store.
type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	SaveDelivery(ctx context.Context, d pricing.DeliverySettings) error
	SaveTimeRange(ctx context.Context, tr settings.TimeRange) error
	Reset(ctx context.Context) error
}

// SettingsHandler handles the admin settings page.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers the public delivery pricing read used by the
// order form.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings/delivery", h.GetDelivery)
}

// RegisterAdminRoutes registers the settings endpoints.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings/delivery", h.UpdateDelivery)
	r.Put("/settings/time-range", h.UpdateTimeRange)
	r.Delete("/settings", h.Reset)
}

// --- Request / Response types ---

type deliveryJSON struct {
	CommonDeliveryCharge decimal.Decimal `json:"commonDeliveryCharge"`
	ExtraAddOnPrice      decimal.Decimal `json:"extraAddOnPrice"`
	DeliveryEditMode     bool            `json:"deliveryEditMode"`
	BulkThreshold        int             `json:"bulkThreshold"`
}

type settingsResponse struct {
	deliveryJSON
	OrderTimeRange settings.TimeRange `json:"orderTimeRange"`
}

func toDeliveryJSON(d pricing.DeliverySettings) deliveryJSON {
	return deliveryJSON{
		CommonDeliveryCharge: d.CommonDeliveryCharge,
		ExtraAddOnPrice:      d.ExtraAddOnPrice,
		DeliveryEditMode:     d.EditMode,
		BulkThreshold:        pricing.BulkThreshold,
	}
}

// deliveryRequest fields are pointers so absent fields keep their value.
type deliveryRequest struct {
	CommonDeliveryCharge *decimal.Decimal `json:"commonDeliveryCharge"`
	ExtraAddOnPrice      *decimal.Decimal `json:"extraAddOnPrice"`
	DeliveryEditMode     *bool            `json:"deliveryEditMode"`
}

// --- Handlers ---

// load reads settings, degrading to defaults when the store is down.
func (h *SettingsHandler) load(ctx context.Context) settings.Settings {
	st, err := h.store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("serving default settings")
	}
	return st
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.load(r.Context())
	writeData(w, http.StatusOK, settingsResponse{
		deliveryJSON:   toDeliveryJSON(st.Delivery),
		OrderTimeRange: st.TimeRange,
	})
}

// GetDelivery handles GET /settings/delivery.
func (h *SettingsHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, toDeliveryJSON(h.load(r.Context()).Delivery))
}

// UpdateDelivery handles PUT /settings/delivery.
func (h *SettingsHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.Load(r.Context())
	if err != nil {
		internalError(w, "load settings", err)
		return
	}

	d := current.Delivery
	if req.CommonDeliveryCharge != nil {
		d.CommonDeliveryCharge = *req.CommonDeliveryCharge
	}
	if req.ExtraAddOnPrice != nil {
		d.ExtraAddOnPrice = *req.ExtraAddOnPrice
	}
	if req.DeliveryEditMode != nil {
		d.EditMode = *req.DeliveryEditMode
	}

	if err := h.store.SaveDelivery(r.Context(), d); err != nil {
		if errors.Is(err, pricing.ErrNegativeAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "save delivery settings", err)
		return
	}

	logger.Info().
		Str("common_delivery_charge", d.CommonDeliveryCharge.String()).
		Str("extra_add_on_price", d.ExtraAddOnPrice.String()).
		Bool("edit_mode", d.EditMode).
		Msg("delivery settings updated")

	writeMessage(w, http.StatusOK, "Delivery settings updated", toDeliveryJSON(d))
}

// UpdateTimeRange handles PUT /settings/time-range.
func (h *SettingsHandler) UpdateTimeRange(w http.ResponseWriter, r *http.Request) {
	var tr settings.TimeRange
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SaveTimeRange(r.Context(), tr); err != nil {
		if errors.Is(err, settings.ErrInvalidTimeRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "save time range", err)
		return
	}

	writeMessage(w, http.StatusOK, "Order time range updated", tr)
}

// Reset handles DELETE /settings, restoring the defaults.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		internalError(w, "reset settings", err)
		return
	}

	d := settings.Default()
	writeMessage(w, http.StatusOK, "Settings reset to defaults", settingsResponse{
		deliveryJSON:   toDeliveryJSON(d.Delivery),
		OrderTimeRange: d.TimeRange,
	})
}
