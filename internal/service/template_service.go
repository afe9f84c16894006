package service

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/domain"
	"alumbra/coaching-app/internal/repository"
	"alumbra/coaching-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoUploadGrant is what a coach needs to push a demo video straight to
// object storage: a presigned PUT URL plus the asset id to confirm against.
type VideoUploadGrant struct {
	AssetID   primitive.ObjectID `json:"assetId"`
	UploadURL string             `json:"uploadUrl"`
	ObjectKey string             `json:"objectKey"`
	ExpiresIn time.Duration      `json:"expiresIn"`
}

// TemplateService manages a coach's exercise template library and the demo
// videos attached to it.
type TemplateService interface {
	Create(ctx context.Context, coachID primitive.ObjectID, template domain.ExerciseTemplate) (*domain.ExerciseTemplate, error)
	List(ctx context.Context, coachID primitive.ObjectID) ([]domain.ExerciseTemplate, error)
	Update(ctx context.Context, coachID primitive.ObjectID, template domain.ExerciseTemplate) (*domain.ExerciseTemplate, error)
	Delete(ctx context.Context, coachID, templateID primitive.ObjectID) error
	AttachVideo(ctx context.Context, coachID, templateID primitive.ObjectID, fileName, contentType string, size int64) (*VideoUploadGrant, error)
	VideoDownloadURL(ctx context.Context, coachID, templateID primitive.ObjectID) (string, error)
}

type templateService struct {
	templateRepo repository.TemplateRepository
	mediaRepo    repository.MediaRepository
	fileStorage  storage.FileStorage
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(
	templateRepo repository.TemplateRepository,
	mediaRepo repository.MediaRepository,
	fileStorage storage.FileStorage,
) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		mediaRepo:    mediaRepo,
		fileStorage:  fileStorage,
	}
}

// Create adds a template to the coach's library.
func (s *templateService) Create(ctx context.Context, coachID primitive.ObjectID, template domain.ExerciseTemplate) (*domain.ExerciseTemplate, error) {
	if template.Name == "" {
		return nil, apperr.Validation("name", "template name is required")
	}
	template.CoachID = coachID

	templateID, err := s.templateRepo.Create(ctx, &template)
	if err != nil {
		return nil, err
	}
	template.ID = templateID
	return &template, nil
}

// List returns the coach's templates.
func (s *templateService) List(ctx context.Context, coachID primitive.ObjectID) ([]domain.ExerciseTemplate, error) {
	templates, err := s.templateRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []domain.ExerciseTemplate{}
	}
	return templates, nil
}

// Update rewrites a template the coach owns.
func (s *templateService) Update(ctx context.Context, coachID primitive.ObjectID, template domain.ExerciseTemplate) (*domain.ExerciseTemplate, error) {
	if template.Name == "" {
		return nil, apperr.Validation("name", "template name is required")
	}
	template.CoachID = coachID
	if err := s.templateRepo.Update(ctx, &template); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("templateId", "template not found")
		}
		return nil, err
	}
	return &template, nil
}

// Delete removes a template along with any attached demo video.
func (s *templateService) Delete(ctx context.Context, coachID, templateID primitive.ObjectID) error {
	asset, err := s.mediaRepo.GetByTemplateID(ctx, templateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if asset != nil {
		if err := s.fileStorage.DeleteObject(ctx, asset.S3ObjectKey); err != nil {
			return err
		}
		if err := s.mediaRepo.Delete(ctx, asset.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	if err := s.templateRepo.Delete(ctx, templateID, coachID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("templateId", "template not found")
		}
		return err
	}
	return nil
}

// AttachVideo records asset metadata and hands back a presigned upload URL.
// The object key doubles as the template's video reference.
func (s *templateService) AttachVideo(ctx context.Context, coachID, templateID primitive.ObjectID, fileName, contentType string, size int64) (*VideoUploadGrant, error) {
	if fileName == "" || contentType == "" {
		return nil, apperr.Validation("file", "file name and content type are required")
	}
	if size <= 0 {
		return nil, apperr.Validation("size", "file size must be positive")
	}

	template, err := s.ownedTemplate(ctx, coachID, templateID)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("templates/%s/%s", templateID.Hex(), uuid.NewString())
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}

	asset := &domain.MediaAsset{
		TemplateID:  templateID,
		CoachID:     coachID,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}
	assetID, err := s.mediaRepo.Create(ctx, asset)
	if err != nil {
		return nil, err
	}

	template.VideoRef = objectKey
	if err := s.templateRepo.Update(ctx, template); err != nil {
		return nil, err
	}

	return &VideoUploadGrant{
		AssetID:   assetID,
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		ExpiresIn: storage.DefaultPresignedURLExpiry,
	}, nil
}

// VideoDownloadURL returns a presigned GET URL for the template's video.
func (s *templateService) VideoDownloadURL(ctx context.Context, coachID, templateID primitive.ObjectID) (string, error) {
	if _, err := s.ownedTemplate(ctx, coachID, templateID); err != nil {
		return "", err
	}

	asset, err := s.mediaRepo.GetByTemplateID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("templateId", "template has no video attached")
		}
		return "", err
	}

	return s.fileStorage.GeneratePresignedDownloadURL(ctx, asset.S3ObjectKey, storage.DefaultPresignedURLExpiry)
}

func (s *templateService) ownedTemplate(ctx context.Context, coachID, templateID primitive.ObjectID) (*domain.ExerciseTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("templateId", "template not found")
		}
		return nil, err
	}
	if template.CoachID != coachID {
		return nil, apperr.NotFound("templateId", "template not found")
	}
	return template, nil
}
