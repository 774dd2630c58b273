package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxWishlistTitleLength       = 100
	MaxWishlistDescriptionLength = 500
	MaxItemNameLength            = 100
	MaxItemDescriptionLength     = 500
	MaxWishlistTags              = 10
)

// Normalize trims user input, fills defaults and validates a new wish list
// together with its items.
func (w *Wishlist) Normalize() error {
	var v Validator
	w.Title = strings.TrimSpace(w.Title)
	w.Description = strings.TrimSpace(w.Description)
	v.Check(w.Title != "", "title", "is required")
	v.Check(utf8.RuneCountInString(w.Title) <= MaxWishlistTitleLength, "title",
		fmt.Sprintf("must be at most %d characters", MaxWishlistTitleLength))
	v.Check(utf8.RuneCountInString(w.Description) <= MaxWishlistDescriptionLength, "description",
		fmt.Sprintf("must be at most %d characters", MaxWishlistDescriptionLength))

	if w.Category == "" {
		w.Category = CategoryOther
	}
	v.Check(w.Category.Valid(), "category", "unknown category")

	tags := make([]string, 0, len(w.Tags))
	for _, t := range w.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	w.Tags = tags
	v.Check(len(w.Tags) <= MaxWishlistTags, "tags", fmt.Sprintf("at most %d tags", MaxWishlistTags))

	for i := range w.Items {
		if err := w.Items[i].Normalize(); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				for _, fe := range ve.Errors {
					v.Add(fmt.Sprintf("items[%d].%s", i, fe.Field), fe.Message)
				}
			}
		}
	}
	return v.Err()
}

// Normalize trims user input, fills defaults and validates a new item.
func (it *WishlistItem) Normalize() error {
	var v Validator
	it.Name = strings.TrimSpace(it.Name)
	it.Description = strings.TrimSpace(it.Description)
	v.Check(it.Name != "", "name", "is required")
	v.Check(utf8.RuneCountInString(it.Name) <= MaxItemNameLength, "name",
		fmt.Sprintf("must be at most %d characters", MaxItemNameLength))
	v.Check(utf8.RuneCountInString(it.Description) <= MaxItemDescriptionLength, "description",
		fmt.Sprintf("must be at most %d characters", MaxItemDescriptionLength))
	v.Check(it.Price.IsPositive(), "price", "must be greater than 0")
	v.Check(it.Price.Equal(it.Price.Round(2)), "price", "at most 2 decimal places")

	if it.Currency == "" {
		it.Currency = DefaultCurrency
	}
	v.Check(it.Currency.Valid(), "currency", "must be one of RUB, USD, EUR")
	if it.Priority == "" {
		it.Priority = PriorityMedium
	}
	v.Check(it.Priority.Valid(), "priority", "must be one of low, medium, high")
	return v.Err()
}
