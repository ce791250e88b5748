package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
}

// ProductHandler handles product CRUD endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers the public catalog endpoints. The order form
// reads these without logging in.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Get("/products/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/products", h.Create)
	r.Put("/products/{id}", h.Update)
	r.Delete("/products/{id}", h.Delete)
}

// --- Request / Response types ---

// productRequest fields are pointers so Update can tell absent from zero.
// Amounts accept JSON numbers or numeric strings.
type productRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	DeliveryCharge *decimal.Decimal `json:"delivery_charge"`
	Status         *string          `json:"status"`
	ImageURL       *string          `json:"image_url"`
}

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Price          string    `json:"price"`
	DeliveryCharge string    `json:"delivery_charge"`
	Status         string    `json:"status"`
	ImageURL       *string   `json:"image_url"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          service.NumericToDecimal(p.Price).StringFixed(2),
		DeliveryCharge: service.NumericToDecimal(p.DeliveryCharge).StringFixed(2),
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt.Time,
		UpdatedAt:      p.UpdatedAt.Time,
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	if p.ImageUrl.Valid {
		resp.ImageURL = &p.ImageUrl.String
	}
	return resp
}

// productFields is a fully resolved product write.
type productFields struct {
	name           string
	description    pgtype.Text
	price          pgtype.Numeric
	deliveryCharge pgtype.Numeric
	status         database.ProductStatus
	imageURL       pgtype.Text
}

var (
	errNameRequired  = errors.New("name is required")
	errPriceRequired = errors.New("price is required")
	errNegativePrice = errors.New("price must be >= 0")
	errNegativeFee   = errors.New("delivery_charge must be >= 0")
	errInvalidStatus = errors.New("status must be available, out-of-stock or discontinued")
)

// apply overlays req onto base.
func (req productRequest) apply(base productFields) (productFields, error) {
	out := base
	if req.Name != nil {
		out.name = strings.TrimSpace(*req.Name)
	}
	if out.name == "" {
		return out, errNameRequired
	}
	if req.Description != nil {
		out.description = optionalText(*req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return out, errNegativePrice
		}
		out.price = service.DecimalToNumeric(*req.Price)
	}
	if !out.price.Valid {
		return out, errPriceRequired
	}
	if req.DeliveryCharge != nil {
		if req.DeliveryCharge.IsNegative() {
			return out, errNegativeFee
		}
		out.deliveryCharge = service.DecimalToNumeric(*req.DeliveryCharge)
	}
	if !out.deliveryCharge.Valid {
		out.deliveryCharge = service.DecimalToNumeric(decimal.Zero)
	}
	if req.Status != nil {
		out.status = database.ProductStatus(strings.TrimSpace(*req.Status))
	}
	if out.status == "" {
		out.status = database.ProductStatusAvailable
	}
	if !isValidProductStatus(out.status) {
		return out, errInvalidStatus
	}
	if req.ImageURL != nil {
		out.imageURL = optionalText(*req.ImageURL)
	}
	return out, nil
}

// --- Handlers ---

// List returns every product.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		internalError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeData(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, "get product", err)
		return
	}

	writeData(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := req.apply(productFields{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:           f.name,
		Description:    f.description,
		Price:          f.price,
		DeliveryCharge: f.deliveryCharge,
		Status:         f.status,
		ImageUrl:       f.imageURL,
	})
	if err != nil {
		internalError(w, "create product", err)
		return
	}

	writeMessage(w, http.StatusCreated, "Product created successfully", toProductResponse(product))
}

// Update modifies an existing product. Absent fields keep their value.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, "get product", err)
		return
	}

	f, err := req.apply(productFields{
		name:           current.Name,
		description:    current.Description,
		price:          current.Price,
		deliveryCharge: current.DeliveryCharge,
		status:         current.Status,
		imageURL:       current.ImageUrl,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:             id,
		Name:           f.name,
		Description:    f.description,
		Price:          f.price,
		DeliveryCharge: f.deliveryCharge,
		Status:         f.status,
		ImageUrl:       f.imageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, "update product", err)
		return
	}

	writeMessage(w, http.StatusOK, "Product updated successfully", toProductResponse(product))
}

// Delete removes a product. Existing orders keep their copied name.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	n, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		internalError(w, "delete product", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeMessage(w, http.StatusOK, "Product deleted successfully", nil)
}

// --- Helpers ---

func isValidProductStatus(s database.ProductStatus) bool {
	switch s {
	case database.ProductStatusAvailable, database.ProductStatusOutOfStock,
		database.ProductStatusDiscontinued:
		return true
	}
	return false
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
