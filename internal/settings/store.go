// Package settings persists the admin-editable delivery pricing and order
// time range in Redis.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Key is the Redis hash holding every setting.
const Key = "oms:settings"

const (
	FieldCommonDeliveryCharge = "commonDeliveryCharge"
	FieldExtraAddOnPrice      = "extraAddOnPrice"
	FieldDeliveryEditMode     = "deliveryEditMode"
	FieldOrderTimeRange       = "orderTimeRange"
)

// Settings is everything the store holds.
type Settings struct {
	Delivery  pricing.DeliverySettings
	TimeRange TimeRange
}

// Default returns the settings used when nothing has been saved.
func Default() Settings {
	return Settings{
		Delivery:  pricing.DefaultDeliverySettings(),
		TimeRange: DefaultTimeRange(),
	}
}

// Store is the single load/save boundary for settings.
type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// Load reads all settings. Missing or malformed fields fall back to their
// defaults. On a Redis failure the defaults are returned with the error.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := Default()

	fields, err := s.rdb.HGetAll(ctx, Key).Result()
	if err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}

	if d, ok := parseAmount(fields[FieldCommonDeliveryCharge]); ok {
		out.Delivery.CommonDeliveryCharge = d
	}
	if d, ok := parseAmount(fields[FieldExtraAddOnPrice]); ok {
		out.Delivery.ExtraAddOnPrice = d
	}
	if b, err := strconv.ParseBool(fields[FieldDeliveryEditMode]); err == nil {
		out.Delivery.EditMode = b
	}
	if raw := fields[FieldOrderTimeRange]; raw != "" {
		var tr TimeRange
		if err := json.Unmarshal([]byte(raw), &tr); err == nil && tr.Validate() == nil {
			out.TimeRange = tr
		}
	}
	return out, nil
}

// SaveDelivery validates and stores the delivery pricing settings.
func (s *Store) SaveDelivery(ctx context.Context, d pricing.DeliverySettings) error {
	if err := d.Validate(); err != nil {
		return err
	}
	err := s.rdb.HSet(ctx, Key,
		FieldCommonDeliveryCharge, d.CommonDeliveryCharge.String(),
		FieldExtraAddOnPrice, d.ExtraAddOnPrice.String(),
		FieldDeliveryEditMode, strconv.FormatBool(d.EditMode),
	).Err()
	if err != nil {
		return fmt.Errorf("save delivery settings: %w", err)
	}
	return nil
}

// SaveTimeRange validates and stores the order time range.
func (s *Store) SaveTimeRange(ctx context.Context, tr TimeRange) error {
	if err := tr.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal time range: %w", err)
	}
	if err := s.rdb.HSet(ctx, Key, FieldOrderTimeRange, string(raw)).Err(); err != nil {
		return fmt.Errorf("save time range: %w", err)
	}
	return nil
}

// Reset removes all stored settings so defaults apply again.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.rdb.Del(ctx, Key).Err(); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
