// Package storage keeps client avatars in an S3-compatible bucket (MinIO in
// development). Objects are written server side and read back by clients
// through short-lived presigned GET URLs.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/google/uuid"
)

// MaxImageBytes caps the decoded size of an uploaded image.
const MaxImageBytes = 5 << 20

// ErrInvalidImage is returned for payloads that are not a decodable image.
var ErrInvalidImage = fmt.Errorf("%w: invalid image", common.ErrorValidation)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ImageStore stores encoded images and hands out URLs for them.
type ImageStore interface {
	UploadEncodedImage(ctx context.Context, encoded string) (string, error)
	DeleteImage(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// objectAPI is the part of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	Folder       string
	URLExpiry    time.Duration
}

type S3ImageStore struct {
	api     objectAPI
	presign *s3.PresignClient
	bucket  string
	folder  string
	expiry  time.Duration
	now     func() time.Time
}

func NewS3ImageStore(ctx context.Context, cfg Config) (*S3ImageStore, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, // MINIO_ROOT_USER
			cfg.SecretKey, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &S3ImageStore{
		api:     client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		folder:  cfg.Folder,
		expiry:  expiry,
		now:     time.Now,
	}, nil
}

// UploadEncodedImage decodes a base64 image, either bare or as a data URL,
// stores it under a fresh key and returns that key.
func (s *S3ImageStore) UploadEncodedImage(ctx context.Context, encoded string) (string, error) {
	data, err := decodeImage(encoded)
	if err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, contentType)
	}

	key := s.newKey(ext)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

func (s *S3ImageStore) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL returns a presigned GET URL for key, or "" when key is empty.
func (s *S3ImageStore) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	bucket := s.bucket
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *S3ImageStore) newKey(ext string) string {
	d := s.now()
	return path.Join(s.folder, fmt.Sprintf("%d/%02d/%02d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext))
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidImage)
		}
		encoded = payload
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}
	return data, nil
}
