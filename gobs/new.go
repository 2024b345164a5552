// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"fmt"
)

func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "KeyValue":
		v = new(KeyValue)
	case "PlacedOrder":
		v = new(PlacedOrder)
	case "PricePoint":
		v = new(PricePoint)
	case "WatchList":
		v = new(WatchList)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
