package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore keeps generated artifacts around after delivery so a
// failed chat upload can be retried from storage instead of re-running
// the generation.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type SpacesService struct {
	client      *s3.Client
	bucket      string
	region      string
	ArtifactDir string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, artifactDir string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	return &SpacesService{
		client:      s3.NewFromConfig(cfg),
		bucket:      bucket,
		region:      region,
		ArtifactDir: strings.TrimPrefix(artifactDir, "/"),
	}
}

// PutArtifact uploads the artifact and returns its public URL.
func (s *SpacesService) PutArtifact(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := fmt.Sprintf("%s/%s/%s", s.ArtifactDir, time.Now().Format("2006-01"), key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &fullKey,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, fullKey), nil
}
