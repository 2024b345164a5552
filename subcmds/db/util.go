// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"github.com/bvk/polytrade/gobs"
)

func TypeNameValue(typename string) (any, error) {
	return gobs.NewByTypename(typename)
}
