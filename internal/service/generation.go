package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inkgen/internal/inference"
	"inkgen/internal/storage"
	"inkgen/model"
)

// SignedURLTTL is the single expiry for every signed artifact URL, at
// generation time and at re-signing on reads.
const SignedURLTTL = 24 * time.Hour

// Tuning parameters sent to the model. Fixed at submission time; the public
// request schema only exposes prompt, negative_prompt, width and height.
const (
	tuningRefine            = "expert_ensemble_refiner"
	tuningScheduler         = "K_EULER"
	tuningLoraScale         = 0.6
	tuningNumOutputs        = 1
	tuningGuidanceScale     = 7.5
	tuningApplyWatermark    = false
	tuningHighNoiseFrac     = 0.9
	tuningPromptStrength    = 0.8
	tuningNumInferenceSteps = 25

	defaultNegativePrompt = "ugly, broken, distorted, nsfw, inappropriate content"
	defaultDimension      = 1024
)

// GenerationStore is the durable-record surface the generation service needs.
type GenerationStore interface {
	Create(ctx context.Context, gen *model.Generation) error
	List(ctx context.Context, userID string) ([]model.Generation, error)
	MarkCompleted(ctx context.Context, id string, urls []string) error
	MarkFailed(ctx context.Context, id, msg string) error
}

// InferenceRunner is the blocking call into the inference provider.
type InferenceRunner interface {
	Run(ctx context.Context, modelVersion string, input inference.Input) ([]inference.Artifact, error)
}

// GenerateRequest carries the client-controlled generation parameters.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
}

// GenerationView is one listing entry: the stored record plus freshly signed
// artifact URLs.
type GenerationView struct {
	model.Generation
	URLs []string `json:"urls"`
}

// GenerationService sequences a pending record, the blocking inference call,
// per-artifact upload and signing, and the final status update.
type GenerationService struct {
	store    GenerationStore
	blob     storage.Store
	bucket   string
	runner   InferenceRunner
	modelRef string
	cache    *SignedURLCache
	logger   zerolog.Logger
}

// NewGenerationService wires a generation service. cache may be nil.
func NewGenerationService(
	store GenerationStore,
	blob storage.Store,
	bucket string,
	runner InferenceRunner,
	modelRef string,
	cache *SignedURLCache,
	logger zerolog.Logger,
) *GenerationService {
	return &GenerationService{
		store:    store,
		blob:     blob,
		bucket:   bucket,
		runner:   runner,
		modelRef: modelRef,
		cache:    cache,
		logger:   logger,
	}
}

// Generate runs one end-to-end generation. Failures after the record exists
// mark it failed and return the error; a failed insert returns the error with
// nothing to mark. Resubmitting the same prompt always creates a new record.
func (s *GenerationService) Generate(ctx context.Context, userID string, req GenerateRequest) (*model.Generation, error) {
	width := req.Width
	if width <= 0 {
		width = defaultDimension
	}
	height := req.Height
	if height <= 0 {
		height = defaultDimension
	}
	negative := req.NegativePrompt
	if negative == "" {
		negative = defaultNegativePrompt
	}

	gen := &model.Generation{
		ID:                uuid.NewString(),
		UserID:            userID,
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		Width:             width,
		Height:            height,
		Refine:            tuningRefine,
		Scheduler:         tuningScheduler,
		LoraScale:         tuningLoraScale,
		NumOutputs:        tuningNumOutputs,
		GuidanceScale:     tuningGuidanceScale,
		ApplyWatermark:    tuningApplyWatermark,
		HighNoiseFrac:     tuningHighNoiseFrac,
		PromptStrength:    tuningPromptStrength,
		NumInferenceSteps: tuningNumInferenceSteps,
		Status:            model.StatusPending,
	}
	if err := s.store.Create(ctx, gen); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("create generation record failed")
		return nil, err
	}
	s.logger.Info().Str("generation_id", gen.ID).Str("user_id", userID).Msg("generation started")

	artifacts, err := s.runner.Run(ctx, s.modelRef, inference.Input{
		"prompt":              req.Prompt,
		"negative_prompt":     negative,
		"width":               width,
		"height":              height,
		"refine":              tuningRefine,
		"scheduler":           tuningScheduler,
		"lora_scale":          tuningLoraScale,
		"num_outputs":         tuningNumOutputs,
		"guidance_scale":      tuningGuidanceScale,
		"apply_watermark":     tuningApplyWatermark,
		"high_noise_frac":     tuningHighNoiseFrac,
		"prompt_strength":     tuningPromptStrength,
		"num_inference_steps": tuningNumInferenceSteps,
	})
	if err != nil {
		return nil, s.fail(ctx, gen, err)
	}

	urls := make([]string, 0, len(artifacts))
	for i, artifact := range artifacts {
		data, err := io.ReadAll(artifact.Body)
		artifact.Body.Close()
		if err != nil {
			closeArtifacts(artifacts[i+1:])
			return nil, s.fail(ctx, gen, err)
		}
		object := fmt.Sprintf("generations/%s/tattoo_%d_%d.png", userID, time.Now().UnixMilli(), i)
		if err := s.blob.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
			ContentType: "image/png",
		}); err != nil {
			closeArtifacts(artifacts[i+1:])
			return nil, s.fail(ctx, gen, err)
		}
		signed, err := s.blob.PresignedGetObject(ctx, s.bucket, object, SignedURLTTL)
		if err != nil {
			closeArtifacts(artifacts[i+1:])
			return nil, s.fail(ctx, gen, err)
		}
		s.logger.Info().Str("generation_id", gen.ID).Str("object", object).Msg("artifact uploaded")
		urls = append(urls, signed)
	}

	if err := s.store.MarkCompleted(ctx, gen.ID, urls); err != nil {
		return nil, s.fail(ctx, gen, err)
	}
	gen.OutputURLs = urls
	gen.Status = model.StatusCompleted
	s.logger.Info().Str("generation_id", gen.ID).Int("artifacts", len(urls)).Msg("generation complete")
	return gen, nil
}

// List returns one entry per stored generation. Stored URLs may have expired,
// so each artifact is re-signed at read time; a single signing failure drops
// that artifact only, and rows without outputs get an empty url list.
func (s *GenerationService) List(ctx context.Context, userID string) ([]GenerationView, error) {
	gens, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]GenerationView, 0, len(gens))
	for _, gen := range gens {
		view := GenerationView{Generation: gen, URLs: []string{}}
		for _, stored := range gen.OutputURLs {
			key, ok := objectKeyFromURL(stored, s.bucket)
			if !ok {
				s.logger.Warn().Str("generation_id", gen.ID).Str("url", stored).Msg("no object key in stored url")
				continue
			}
			signed, err := s.signedURL(ctx, key)
			if err != nil {
				s.logger.Error().Err(err).Str("generation_id", gen.ID).Str("object", key).Msg("re-sign failed")
				continue
			}
			view.URLs = append(view.URLs, signed)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *GenerationService) signedURL(ctx context.Context, key string) (string, error) {
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}
	signed, err := s.blob.PresignedGetObject(ctx, s.bucket, key, SignedURLTTL)
	if err != nil {
		return "", err
	}
	s.cache.Set(ctx, key, signed)
	return signed, nil
}

func (s *GenerationService) fail(ctx context.Context, gen *model.Generation, err error) error {
	s.logger.Error().Err(err).Str("generation_id", gen.ID).Str("user_id", gen.UserID).Msg("generation failed")
	if dbErr := s.store.MarkFailed(ctx, gen.ID, err.Error()); dbErr != nil {
		s.logger.Error().Err(dbErr).Str("generation_id", gen.ID).Msg("mark failed failed")
	}
	return err
}

// objectKeyFromURL recovers the storage object key from a stored signed URL:
// the path after the bucket marker, minus the signature query.
func objectKeyFromURL(stored, bucket string) (string, bool) {
	marker := "/" + bucket + "/"
	idx := strings.Index(stored, marker)
	if idx < 0 {
		return "", false
	}
	key := stored[idx+len(marker):]
	if q := strings.IndexByte(key, '?'); q >= 0 {
		key = key[:q]
	}
	return key, key != ""
}

func closeArtifacts(artifacts []inference.Artifact) {
	for _, a := range artifacts {
		_ = a.Body.Close()
	}
}
