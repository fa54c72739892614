package domain

import "context"

// ProductRepository defines access methods for products.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) (*Product, error)
	LinkUser(ctx context.Context, userID, productID string) error
	Unlink(ctx context.Context, productID string) error
	ListByUser(ctx context.Context, userID string) ([]Product, error)
	GetContext(ctx context.Context, productID string) (*ProductContext, error)
}

// PhotoRepository handles persistence for generated ad photos.
type PhotoRepository interface {
	Insert(ctx context.Context, photo *Photo) (*Photo, error)
	GetByID(ctx context.Context, id string) (*Photo, error)
	ListByProduct(ctx context.Context, productID string) ([]Photo, error)
	UpdateRating(ctx context.Context, id string, rating int) error
	UpdateCaption(ctx context.Context, id string, caption string) error
}

// SourcePhotoRepository persists uploaded source photos.
type SourcePhotoRepository interface {
	Insert(ctx context.Context, photo *SourcePhoto) (*SourcePhoto, error)
}

// TokenRepository tracks per-user generation token balances.
type TokenRepository interface {
	Balance(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string, amount int) error
}
