// Package product defines the catalogue record returned by search.
package product

import (
	"fmt"
	"math"
	"strconv"
)

// Payload field names as stored in the vector collection.
const (
	FieldName          = "Product_name"
	FieldPrice         = "Price_corrected"
	FieldColors        = "colors"
	FieldPattern       = "Pattern"
	FieldDescription   = "Description"
	FieldGender        = "Gender"
	FieldImageBase64   = "image_base64"
	FieldImageFilename = "image_filename"
)

// Payload is the product record attached to each point.
type Payload struct {
	Name          string  `json:"Product_name"`
	Price         float64 `json:"Price_corrected"`
	Colors        string  `json:"colors"`
	Pattern       string  `json:"Pattern"`
	Description   string  `json:"Description"`
	Gender        string  `json:"Gender"`
	ImageBase64   string  `json:"image_base64,omitempty"`
	ImageFilename string  `json:"image_filename,omitempty"`
}

// Hit is one ranked search result.
type Hit struct {
	ID      ID      `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// FromMap decodes a generic payload map. Unknown keys are ignored,
// missing keys keep their zero value, mistyped keys are an error.
func FromMap(m map[string]any) (Payload, error) {
	var p Payload
	var err error

	strs := []struct {
		key string
		dst *string
	}{
		{FieldName, &p.Name},
		{FieldColors, &p.Colors},
		{FieldPattern, &p.Pattern},
		{FieldDescription, &p.Description},
		{FieldGender, &p.Gender},
		{FieldImageBase64, &p.ImageBase64},
		{FieldImageFilename, &p.ImageFilename},
	}
	for _, s := range strs {
		v, ok := m[s.key]
		if !ok || v == nil {
			continue
		}
		str, isStr := v.(string)
		if !isStr {
			return Payload{}, fmt.Errorf("field %s: expected string, got %T", s.key, v)
		}
		*s.dst = str
	}

	if v, ok := m[FieldPrice]; ok && v != nil {
		if p.Price, err = toFloat(v); err != nil {
			return Payload{}, fmt.Errorf("field %s: %w", FieldPrice, err)
		}
	}
	return p, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("invalid number %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
