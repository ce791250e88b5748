package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusReceived  = "received"
	OrderStatusSended    = "sended"
	OrderStatusInTransit = "in-transit"
	OrderStatusDelivered = "delivered"
	OrderStatusReturned  = "returned"
)

// OrderStatusConform only shows up as a dashboard bucket. Nothing writes it.
const OrderStatusConform = "conform"

// OrderStatusIssued is the label the admin UI uses for sended.
const OrderStatusIssued = "issued"

const (
	ProductStatusAvailable    = "available"
	ProductStatusOutOfStock   = "out-of-stock"
	ProductStatusDiscontinued = "discontinued"
)

const (
	InquiryStatusPending = "pending"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "admin"
	UserRoleCourier = "courier"
)

// ── Group B: Push event types (no DB constraint) ──

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)
