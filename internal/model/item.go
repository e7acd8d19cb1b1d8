package model

import (
	"strconv"
	"strings"
	"time"
)

// Item is a borrowable item type with a total owned quantity.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	ImageMime string    `json:"image_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasImage reports whether a photo was uploaded for the item.
func (i Item) HasImage() bool {
	return i.ImageMime != ""
}

// ItemAvailability is an item together with its derived availability.
// Available is Quantity minus the number of approved, unreturned requests
// and may be negative.
type ItemAvailability struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
	ImageMime string `json:"image_mime,omitempty"`
}

// ItemInput holds the operator-supplied fields of an item.
type ItemInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Quantity *int   `json:"quantity" validate:"required,min=0"`
}

// ParseQuantity parses a quantity from form or JSON text. An empty value
// yields nil so validation reports it as missing.
func ParseQuantity(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, NewValidationError("quantity", "must be a whole number")
	}
	return &n, nil
}
