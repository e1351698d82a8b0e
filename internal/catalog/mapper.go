// Package catalog turns Products sheet rows into catalog entries.
//
// Column names are matched case-insensitively. A product carries either a
// flat price or a list of sizes, chosen in this order:
//
//  1. sizes_json, when the cell holds a parseable non-empty JSON array
//  2. small_price / medium_price / large_price, when at least one is filled
//  3. price, defaulting to 0 when missing or not numeric
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rodge1109/restaurantordering/internal/domain"
)

const (
	colID          = "id"
	colName        = "name"
	colCategory    = "category"
	colDescription = "description"
	colImage       = "image"
	colPopular     = "popular"
	colPrice       = "price"
	colSmall       = "small_price"
	colMedium      = "medium_price"
	colLarge       = "large_price"
	colSizesJSON   = "sizes_json"
)

var sizeColumns = []struct {
	column string
	label  string
}{
	{colSmall, "Small"},
	{colMedium, "Medium"},
	{colLarge, "Large"},
}

// MapRows maps a header row followed by data rows. Blank rows are skipped.
func MapRows(rows [][]any) []domain.Product {
	if len(rows) == 0 {
		return []domain.Product{}
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(cellString(h)))
		if _, dup := idx[name]; !dup && name != "" {
			idx[name] = i
		}
	}

	products := make([]domain.Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		products = append(products, mapRow(idx, row))
	}
	return products
}

func mapRow(idx map[string]int, row []any) domain.Product {
	get := func(col string) any {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	p := domain.Product{
		Name:        cellString(get(colName)),
		Category:    cellString(get(colCategory)),
		Description: cellString(get(colDescription)),
		Image:       cellString(get(colImage)),
		Popular:     truthy(get(colPopular)),
	}
	if id, ok := cellNumber(get(colID)); ok {
		p.ID = int64(id)
	}

	if sizes, ok := parseSizesJSON(get(colSizesJSON)); ok {
		p.Sizes = sizes
		return p
	}

	for _, sc := range sizeColumns {
		if v := get(sc.column); populated(v) {
			if price, ok := cellNumber(v); ok {
				p.Sizes = append(p.Sizes, domain.Size{Name: sc.label, Price: price})
			}
		}
	}
	if len(p.Sizes) > 0 {
		return p
	}

	price, _ := cellNumber(get(colPrice))
	p.Price = &price
	return p
}

func parseSizesJSON(v any) ([]domain.Size, bool) {
	if !populated(v) {
		return nil, false
	}

	var raw []byte
	if s, ok := v.(string); ok {
		raw = []byte(s)
	} else {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		raw = b
	}

	var sizes []domain.Size
	if err := json.Unmarshal(raw, &sizes); err != nil || len(sizes) == 0 {
		return nil, false
	}
	return sizes, true
}

func populated(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func blank(row []any) bool {
	for _, v := range row {
		if populated(v) {
			return false
		}
	}
	return true
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func cellNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}
