package pipeline

import (
	"context"
	"errors"
	"fmt"

	"fotnik/internal/assets"
	"fotnik/internal/domain"
)

// productSizeHint is the relative size passed to the ad-inpaint model so the
// product occupies roughly half of the frame.
const productSizeHint = "0.5 * width"

// GenerateAdPhotos runs the full ad-photo workflow for one request, emitting
// a progress event at every stage transition through sink. It always returns
// a structured result; failures at any stage surface as a terminal error
// event plus an error result, never as an error value.
func (s *Service) GenerateAdPhotos(ctx context.Context, sink ProgressSink, req Request) Result {
	sink.Publish(domain.StatusEvent(domain.StageStarted, "Starting image generation", req.ProductID))

	if err := req.validate(); err != nil {
		return s.fail(sink, req.ProductID, err)
	}

	authCtx, cancel := s.stage(ctx)
	userID, err := s.auth.Authenticate(authCtx, req.AccessToken, req.RefreshToken)
	cancel()
	if err != nil {
		return s.fail(sink, req.ProductID, fmt.Errorf("%w: %v", domain.ErrAuthentication, err))
	}

	if err := s.checkTokens(ctx, userID); err != nil {
		return s.fail(sink, req.ProductID, err)
	}

	sink.Publish(domain.StatusEvent(domain.StageFetchingProduct, "Fetching product details", req.ProductID))
	fetchCtx, cancel := s.stage(ctx)
	product, err := s.products.GetContext(fetchCtx, req.ProductID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.fail(sink, req.ProductID, fmt.Errorf("%w: product %s", domain.ErrNotFound, req.ProductID))
		}
		return s.fail(sink, req.ProductID, fmt.Errorf("%w: fetch product: %v", domain.ErrPersistence, err))
	}

	imageBytes, err := decodeImage(req.Image)
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	sourcePath, err := s.mirror.PersistLocal(imageBytes, assets.RoleSource, req.ProductID)
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	scratch := []string{sourcePath}
	defer func() {
		s.mirror.CleanupLocal(scratch...)
	}()

	sink.Publish(domain.StatusEvent(domain.StageRemovingBackground, "Removing background...", req.ProductID))
	removeCtx, cancel := s.stage(ctx)
	noBgURL, err := s.gateway.RemoveBackground(removeCtx, imageBytes)
	cancel()
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	noBgPath, err := s.mirror.FetchRemote(ctx, noBgURL, assets.RoleNoBg, req.ProductID)
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	scratch = append(scratch, noBgPath)

	// The background-removed pixels are mirrored under two roles: the source
	// role other records reference and the no_bg role itself. The two-URL
	// contract is load-bearing for consumers even though the bytes match.
	keys := assets.NewKeySet(req.ProductID)
	sourceS3URL, err := s.mirror.MirrorToDurable(ctx, noBgPath, keys.Key(assets.RoleSource))
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	noBgS3URL, err := s.mirror.MirrorToDurable(ctx, noBgPath, keys.Key(assets.RoleNoBg))
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}

	sink.Publish(domain.StatusEvent(domain.StageGeneratingPrompt, "Generating AI prompt", req.ProductID))
	promptCtx, cancel := s.stage(ctx)
	adPrompt, err := s.prompts.GenerateAdPrompt(promptCtx, noBgURL, product.Description, product.TargetAudience, req.BackgroundDescription)
	cancel()
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	sink.Publish(domain.StatusEvent(domain.StagePromptGenerated, "Prompt generated successfully, generating images...", req.ProductID))

	generateCtx, cancel := s.stage(ctx)
	outputs, err := s.gateway.GenerateVariants(generateCtx, adPrompt.PositivePrompt, adPrompt.NegativePrompt, noBgURL, productSizeHint, s.variantCount)
	cancel()
	if err != nil {
		return s.fail(sink, req.ProductID, err)
	}
	// The first output is the model's baseline render, not an ad photo.
	if len(outputs) <= 1 {
		return s.fail(sink, req.ProductID, fmt.Errorf("%w: no usable variants returned", domain.ErrUpstreamModel))
	}
	variants := outputs[1:]

	// Each variant's persistence is independent, but the run aborts on the
	// first failure so the client never sees a partial success.
	imageURLs := make([]string, 0, len(variants))
	for idx, variantURL := range variants {
		localPath, err := s.mirror.FetchRemote(ctx, variantURL, assets.RoleGenerated, req.ProductID)
		if err != nil {
			return s.fail(sink, req.ProductID, err)
		}
		scratch = append(scratch, localPath)
		durableURL, err := s.mirror.MirrorToDurable(ctx, localPath, keys.IndexedKey(assets.RoleGenerated, idx))
		if err != nil {
			return s.fail(sink, req.ProductID, err)
		}
		insertCtx, cancel := s.stage(ctx)
		_, err = s.photos.Insert(insertCtx, &domain.Photo{
			ProductID:             req.ProductID,
			ImageURL:              durableURL,
			SourceImageURL:        sourceS3URL,
			NoBgImageURL:          noBgS3URL,
			BackgroundDescription: req.BackgroundDescription,
			PositivePrompt:        adPrompt.PositivePrompt,
			NegativePrompt:        adPrompt.NegativePrompt,
		})
		cancel()
		if err != nil {
			return s.fail(sink, req.ProductID, fmt.Errorf("%w: save photo record: %v", domain.ErrPersistence, err))
		}
		imageURLs = append(imageURLs, durableURL)
	}

	s.debitToken(ctx, userID)

	result := Result{
		Status:         StatusSuccess,
		Message:        "Images generated and uploaded successfully",
		SourceImageURL: sourceS3URL,
		ImageURLs:      imageURLs,
		ProductID:      req.ProductID,
	}
	sink.Publish(domain.CompleteEvent("Process completed successfully", req.ProductID, result))
	return result
}

// checkTokens enforces the caller's generation balance when a token
// repository is configured.
func (s *Service) checkTokens(ctx context.Context, userID string) error {
	if s.tokens == nil {
		return nil
	}
	balanceCtx, cancel := s.stage(ctx)
	defer cancel()
	balance, err := s.tokens.Balance(balanceCtx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no token allocation found", domain.ErrQuotaExceeded)
		}
		return fmt.Errorf("%w: read token balance: %v", domain.ErrPersistence, err)
	}
	if balance <= 0 {
		return fmt.Errorf("%w: not enough tokens remaining", domain.ErrQuotaExceeded)
	}
	return nil
}

// debitToken charges one unit after a successful run. A failed debit is
// logged, never surfaced: the client's images already exist.
func (s *Service) debitToken(ctx context.Context, userID string) {
	if s.tokens == nil {
		return
	}
	debitCtx, cancel := s.stage(ctx)
	defer cancel()
	if err := s.tokens.Debit(debitCtx, userID, 1); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("pipeline: failed to debit token balance")
	}
}

func (s *Service) fail(sink ProgressSink, productID string, err error) Result {
	s.logger.Error().Err(err).Str("product_id", productID).Msg("pipeline: ad photo generation failed")
	sink.Publish(domain.ErrorEvent("Error processing image: "+err.Error(), productID))
	return Result{
		Status:    StatusError,
		Message:   err.Error(),
		ProductID: productID,
	}
}
