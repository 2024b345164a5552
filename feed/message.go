// Copyright (c) 2025 BVK Chaitanya

package feed

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

type subscribeMessage struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

func newSubscribeMessage(assetIDs []string) *subscribeMessage {
	return &subscribeMessage{
		AssetIDs: assetIDs,
		Type:     "Market",
	}
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type priceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

type event struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`

	// Bids and Asks stay raw so absence can be told apart from an empty
	// book side.
	Bids json.RawMessage `json:"bids"`
	Asks json.RawMessage `json:"asks"`

	Price   string `json:"price"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`

	Changes []priceChange `json:"changes"`
}

// handleData normalizes one transport payload into zero or more price
// observations. Malformed payloads are logged and dropped; they never crash
// the feed or reach the listeners.
func (f *Feed) handleData(data []byte) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return
	}
	if data[0] != '{' && data[0] != '[' {
		text := string(data)
		switch {
		case strings.HasPrefix(text, "OK"):
			slog.Debug("feed server ack", "text", text)
		case strings.HasPrefix(text, "ERROR"), strings.HasPrefix(text, "INVALID"):
			slog.Warn("feed server rejection", "text", text)
		default:
			slog.Warn("unrecognized feed payload (dropped)", "text", text)
		}
		return
	}

	var events []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			slog.Warn("could not parse feed message array (dropped)", "err", err)
			return
		}
	} else {
		events = append(events, json.RawMessage(data))
	}
	for _, raw := range events {
		f.handleEvent(raw)
	}
}

func (f *Feed) handleEvent(raw json.RawMessage) {
	ev := new(event)
	if err := json.Unmarshal(raw, ev); err != nil {
		slog.Warn("could not parse feed event (dropped)", "err", err)
		return
	}

	// A payload carrying both book sides is a snapshot regardless of its
	// event-type field.
	if ev.Bids != nil && ev.Asks != nil {
		f.handleBook(ev)
		return
	}

	switch ev.EventType {
	case "price_change":
		changes := ev.Changes
		if len(changes) == 0 {
			changes = []priceChange{{AssetID: ev.AssetID, Price: ev.Price, BestBid: ev.BestBid, BestAsk: ev.BestAsk}}
		}
		for _, ch := range changes {
			f.handlePriceChange(&ch)
		}
	case "last_trade_price":
		price, err := decimal.NewFromString(ev.Price)
		if err != nil {
			slog.Warn("could not parse last trade price (dropped)", "asset", ev.AssetID, "err", err)
			return
		}
		f.publish(ev.AssetID, price, SourceLastTrade)
	case "tick_size_change":
		// Accepted, but carries no price update.
	default:
		slog.Debug("unhandled feed event type (dropped)", "type", ev.EventType)
	}
}

// handleBook derives the canonical price from a book snapshot as the mid of
// the best bid and ask. An empty bid side defaults to 0 and an empty ask
// side defaults to 1, so a one-sided book does not look artificially cheap.
func (f *Feed) handleBook(ev *event) {
	var bids, asks []bookLevel
	if err := json.Unmarshal(ev.Bids, &bids); err != nil {
		slog.Warn("could not parse book bids (dropped)", "asset", ev.AssetID, "err", err)
		return
	}
	if err := json.Unmarshal(ev.Asks, &asks); err != nil {
		slog.Warn("could not parse book asks (dropped)", "asset", ev.AssetID, "err", err)
		return
	}

	bestBid := decimal.Zero
	if len(bids) > 0 {
		v, err := decimal.NewFromString(bids[0].Price)
		if err != nil {
			slog.Warn("could not parse best bid (dropped)", "asset", ev.AssetID, "err", err)
			return
		}
		bestBid = v
	}
	bestAsk := decimal.NewFromInt(1)
	if len(asks) > 0 {
		v, err := decimal.NewFromString(asks[0].Price)
		if err != nil {
			slog.Warn("could not parse best ask (dropped)", "asset", ev.AssetID, "err", err)
			return
		}
		bestAsk = v
	}
	f.publish(ev.AssetID, mid(bestBid, bestAsk), SourceBookMid)
}

// handlePriceChange prefers the bid/ask mid when both are present and falls
// back to the flat price field.
func (f *Feed) handlePriceChange(ch *priceChange) {
	if len(ch.BestBid) > 0 && len(ch.BestAsk) > 0 {
		bid, berr := decimal.NewFromString(ch.BestBid)
		ask, aerr := decimal.NewFromString(ch.BestAsk)
		if berr == nil && aerr == nil {
			f.publish(ch.AssetID, mid(bid, ask), SourcePriceChange)
			return
		}
	}
	price, err := decimal.NewFromString(ch.Price)
	if err != nil {
		slog.Warn("could not parse price change (dropped)", "asset", ch.AssetID, "err", err)
		return
	}
	f.publish(ch.AssetID, price, SourcePriceChange)
}

var two = decimal.NewFromInt(2)

func mid(bid, ask decimal.Decimal) decimal.Decimal {
	return bid.Add(ask).Div(two)
}
