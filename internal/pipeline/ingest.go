package pipeline

import (
	"context"
	"fmt"

	"fotnik/internal/assets"
	"fotnik/internal/domain"
)

// IngestRequest carries the validated fields of an add_source_photo message.
type IngestRequest struct {
	Image        string
	ProductID    string
	AccessToken  string
	RefreshToken string
}

// IngestResult is the structured outcome of a source-photo ingestion run.
type IngestResult struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	OriginalPhotoURL string `json:"original_photo_url,omitempty"`
	EditedPhotoURL   string `json:"edited_photo_url,omitempty"`
	PhotoID          string `json:"photo_id,omitempty"`
	ProductID        string `json:"product_id"`
}

// AddSourcePhoto ingests one product photo: the original and its
// background-removed variant are both mirrored to durable storage and a
// single record links the two. It does not report progress; the run is short
// enough that only the terminal result matters.
func (s *Service) AddSourcePhoto(ctx context.Context, req IngestRequest) IngestResult {
	fail := func(err error) IngestResult {
		s.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("pipeline: source photo ingestion failed")
		return IngestResult{Status: StatusError, Message: err.Error(), ProductID: req.ProductID}
	}

	if err := (Request{
		Image:        req.Image,
		ProductID:    req.ProductID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}).validate(); err != nil {
		return fail(err)
	}

	imageBytes, err := decodeImage(req.Image)
	if err != nil {
		return fail(err)
	}
	originalPath, err := s.mirror.PersistLocal(imageBytes, assets.RoleSource, req.ProductID)
	if err != nil {
		return fail(err)
	}
	scratch := []string{originalPath}
	defer func() {
		s.mirror.CleanupLocal(scratch...)
	}()

	keys := assets.NewKeySet(req.ProductID)
	originalURL, err := s.mirror.MirrorToDurable(ctx, originalPath, keys.Key(assets.RoleOriginal))
	if err != nil {
		return fail(err)
	}

	removeCtx, cancel := s.stage(ctx)
	noBgURL, err := s.gateway.RemoveBackground(removeCtx, imageBytes)
	cancel()
	if err != nil {
		return fail(err)
	}
	editedPath, err := s.mirror.FetchRemote(ctx, noBgURL, assets.RoleEdited, req.ProductID)
	if err != nil {
		return fail(err)
	}
	scratch = append(scratch, editedPath)

	editedURL, err := s.mirror.MirrorToDurable(ctx, editedPath, keys.Key(assets.RoleEdited))
	if err != nil {
		return fail(err)
	}

	authCtx, cancel := s.stage(ctx)
	_, err = s.auth.Authenticate(authCtx, req.AccessToken, req.RefreshToken)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrAuthentication, err))
	}

	insertCtx, cancel := s.stage(ctx)
	record, err := s.sourcePhotos.Insert(insertCtx, &domain.SourcePhoto{
		ProductID:        req.ProductID,
		OriginalPhotoURL: originalURL,
		EditedPhotoURL:   editedURL,
	})
	cancel()
	if err != nil {
		return fail(fmt.Errorf("%w: save source photo record: %v", domain.ErrPersistence, err))
	}

	return IngestResult{
		Status:           StatusSuccess,
		OriginalPhotoURL: originalURL,
		EditedPhotoURL:   editedURL,
		PhotoID:          record.ID,
		ProductID:        req.ProductID,
	}
}
