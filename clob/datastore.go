// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/bvkgo/kv"

	"github.com/bvk/polytrade/gobs"
	"github.com/bvk/polytrade/kvutil"
)

const Keyspace = "/clob/"

// Datastore persists placed orders and observed prices.
type Datastore struct {
	db kv.Database
}

func NewDatastore(db kv.Database) *Datastore {
	return &Datastore{db: db}
}

func orderKey(salt string) string {
	return path.Join(Keyspace, "orders", salt)
}

// SaveOrder records a signed order and its placement result. Orders are
// keyed by their salt, which is unique per signature.
func (ds *Datastore) SaveOrder(ctx context.Context, order *Order, uo *UserOrder, typ OrderType, resp *OrderResponse) error {
	js, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("could not json-encode order: %w", err)
	}
	now := time.Now()
	record := &gobs.PlacedOrder{
		Salt:       order.Salt,
		TokenID:    order.TokenID,
		Side:       order.Side,
		Price:      uo.Price,
		Size:       uo.Size,
		OrderType:  string(typ),
		NegRisk:    uo.NegRisk,
		OrderJSON:  string(js),
		CreateTime: now,
		UpdateTime: now,
	}
	if resp != nil {
		record.ServerOrderID = resp.OrderID
		record.Status = resp.Status
	}
	return kvutil.SetDB(ctx, ds.db, orderKey(order.Salt), record)
}

// UpdateOrderStatus rewrites the status of a previously saved order.
func (ds *Datastore) UpdateOrderStatus(ctx context.Context, salt, status string) error {
	update := func(ctx context.Context, rw kv.ReadWriter) error {
		record, err := kvutil.Get[gobs.PlacedOrder](ctx, rw, orderKey(salt))
		if err != nil {
			return err
		}
		record.Status = status
		record.UpdateTime = time.Now()
		return kvutil.Set(ctx, rw, orderKey(salt), record)
	}
	return kv.WithReadWriter(ctx, ds.db, update)
}

// LoadOrder returns the saved order record for a salt.
func (ds *Datastore) LoadOrder(ctx context.Context, salt string) (*gobs.PlacedOrder, error) {
	return kvutil.GetDB[gobs.PlacedOrder](ctx, ds.db, orderKey(salt))
}

// ScanOrders iterates over all saved orders in key order.
func (ds *Datastore) ScanOrders(ctx context.Context, fn func(*gobs.PlacedOrder) error) error {
	begin, end := kvutil.PathRange(path.Join(Keyspace, "orders"))
	wrapper := func(ctx context.Context, r kv.Reader, key string, value *gobs.PlacedOrder) error {
		return fn(value)
	}
	return kvutil.AscendDB(ctx, ds.db, begin, end, wrapper)
}

func priceKey(assetID string) string {
	return path.Join(Keyspace, "prices", assetID)
}

// SavePrice records the last observed price for an asset.
func (ds *Datastore) SavePrice(ctx context.Context, p *gobs.PricePoint) error {
	return kvutil.SetDB(ctx, ds.db, priceKey(p.AssetID), p)
}

// LoadPrice returns the last recorded price for an asset.
func (ds *Datastore) LoadPrice(ctx context.Context, assetID string) (*gobs.PricePoint, error) {
	return kvutil.GetDB[gobs.PricePoint](ctx, ds.db, priceKey(assetID))
}
