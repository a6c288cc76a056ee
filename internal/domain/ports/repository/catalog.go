package repository

import (
	"context"

	"audio-commerce/internal/domain/model"
)

// CatalogRepository is the read-only catalog accessor. Content CRUD and
// moderation live outside this core.
type CatalogRepository interface {
	FindByID(ctx context.Context, qx any, id string) (*model.ContentItem, error)
	FindTrackByID(ctx context.Context, qx any, id string) (*model.Track, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, qx any, id string) (*model.User, error)
	Save(ctx context.Context, qx any, user *model.User) error
}
