package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"book-query/config"
)

const contentTypePDF = "application/pdf"

// S3Store ist der content-adressierte Blob-Store: ein Primär-Bucket als
// autoritative Kopie plus ein Replikat-Bucket, das nachlaufen oder fehlen
// darf. Der Store wird einmal beim Prozessstart erstellt und per Referenz
// geteilt.
type S3Store struct {
	client  *s3.Client
	primary string
	replica string
}

// NewS3Store erstellt den S3-Client für den konfigurierten Endpunkt.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg),
		primary: cfg.S3Bucket,
		replica: cfg.S3ReplicaBucket,
	}, nil
}

// Put schreibt die Datei in den Primär-Bucket.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	return s.put(ctx, s.primary, key, data)
}

// Mirror schreibt dieselbe Datei in den Replikat-Bucket. Fehler hier sind
// für den Import-Pfad nicht fatal; der Aufrufer loggt sie nur.
func (s *S3Store) Mirror(ctx context.Context, key string, data []byte) error {
	return s.put(ctx, s.replica, key, data)
}

func (s *S3Store) put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypePDF),
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get liefert den Inhalt aus dem Primär-Bucket als Stream samt Länge.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.primary),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("get %s/%s: %w", s.primary, key, err)
	}
	length := int64(0)
	if out.ContentLength != nil {
		length = *out.ContentLength
	}
	return out.Body, length, nil
}

// Delete entfernt die Datei aus dem Primär-Bucket.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.delete(ctx, s.primary, key)
}

// DeleteReplica entfernt die Datei aus dem Replikat-Bucket.
func (s *S3Store) DeleteReplica(ctx context.Context, key string) error {
	return s.delete(ctx, s.replica, key)
}

func (s *S3Store) delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}
