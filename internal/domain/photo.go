package domain

import "time"

// Product mirrors the product_descriptions table.
type Product struct {
	ID             string
	Name           string
	Description    string
	TargetAudience string
	CreatedAt      time.Time
}

// ProductContext is the subset of product data the generation pipeline needs.
type ProductContext struct {
	Description    string
	TargetAudience string
}

// Photo represents one generated ad-photo variant. A row is created per
// variant at pipeline completion; only UserRating and Caption are mutated
// afterwards.
type Photo struct {
	ID                    string
	ProductID             string
	ImageURL              string
	SourceImageURL        string
	NoBgImageURL          string
	BackgroundDescription string
	PositivePrompt        string
	NegativePrompt        string
	UserRating            *int
	Caption               *string
	CreatedAt             time.Time
}

// SourcePhoto is an uploaded product photo together with its
// background-removed variant.
type SourcePhoto struct {
	ID               string
	ProductID        string
	OriginalPhotoURL string
	EditedPhotoURL   string
	CreatedAt        time.Time
}

// AdPrompt is the structured prompt pair extracted by the vision model.
type AdPrompt struct {
	PositivePrompt string `json:"positive_prompt"`
	NegativePrompt string `json:"negative_prompt"`
}
