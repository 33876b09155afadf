package services

import (
	"context"
	"fmt"
	"time"

	"skill-barter-backend/internal/models"
	"skill-barter-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignExpiry = 5 * time.Minute

// AttachmentService issues pre-signed S3 upload URLs for chat attachments
type AttachmentService struct {
	swapRepo repository.SwapStore
	s3Client *s3.Client
	s3Bucket string
	region   string
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(
	swapRepo repository.SwapStore,
	awsRegion, s3Bucket, accessKey, secretKey, endpoint string,
) (*AttachmentService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(awsRegion),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &AttachmentService{
		swapRepo: swapRepo,
		s3Client: s3Client,
		s3Bucket: s3Bucket,
		region:   awsRegion,
	}, nil
}

// PresignUploadRequest is the request body for an attachment upload slot
type PresignUploadRequest struct {
	SwapID      string `json:"swap_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignUploadResponse carries the pre-signed URL and the public URL the
// client should attach to its message after uploading
type PresignUploadResponse struct {
	UploadURL     string `json:"upload_url"`
	AttachmentURL string `json:"attachment_url"`
	ExpiresIn     int    `json:"expires_in"`
}

// PresignUpload generates a pre-signed PUT URL for a chat attachment. The
// caller must be a party to the swap and the swap's chat must be open.
func (s *AttachmentService) PresignUpload(ctx context.Context, userID string, req PresignUploadRequest) (*PresignUploadResponse, error) {
	if req.SwapID == "" {
		return nil, NewValidationError("swap_id is required")
	}
	if req.Filename == "" {
		return nil, NewValidationError("filename is required")
	}

	swap, err := s.swapRepo.GetByID(ctx, req.SwapID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, NewNotFoundError("swap not found")
		}
		return nil, err
	}
	if !swap.IsParty(userID) {
		return nil, NewAuthorizationError("you are not a party to this swap")
	}
	if !swap.Status.AllowsMessaging() {
		return nil, NewAuthorizationError(fmt.Sprintf("messaging is not available for a %s swap", swap.Status))
	}

	s3Key := attachmentKey(swap, uuid.New().String())

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(s3Key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	attachmentURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.region, s3Key)

	return &PresignUploadResponse{
		UploadURL:     request.URL,
		AttachmentURL: attachmentURL,
		ExpiresIn:     int(presignExpiry.Seconds()),
	}, nil
}

func attachmentKey(swap *models.Swap, attachmentID string) string {
	return fmt.Sprintf("swaps/%s/%s", swap.ID, attachmentID)
}
