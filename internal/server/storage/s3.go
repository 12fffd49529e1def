package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/evidencevault/vault/internal/apperr"
)

// S3Config configures the S3-compatible backend. Endpoint may point at
// any S3-compatible service (AWS, MinIO, ...); when ForcePathStyle is set
// the client addresses buckets as <endpoint>/<bucket>/<key>.
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3Backend implements Port over aws-sdk-go-v2, the same SDK surface the
// presigned-upload flow this service is modeled on already depends on.
type S3Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "loading S3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Backend{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

func (b *S3Backend) Put(ctx context.Context, in PutInput) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(in.Key),
		Body:          in.Body,
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(in.ContentLength),
		// Server-side encryption when the backend supports it (spec.md §4.5).
		ServerSideEncryption: "AES256",
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "putting object")
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.New(apperr.KindNotFound, "object not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, err, "getting object")
	}
	return out.Body, nil
}

func (b *S3Backend) Head(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindStorage, err, "heading object")
	}
	return true, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return apperr.Wrap(apperr.KindStorage, err, "deleting object")
	}
	return nil
}

func (b *S3Backend) Presign(ctx context.Context, op Operation, key string, ttl time.Duration) (string, error) {
	switch op {
	case OpPut:
		req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return "", apperr.Wrap(apperr.KindStorage, err, "presigning PUT")
		}
		return req.URL, nil
	case OpGet:
		req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return "", apperr.Wrap(apperr.KindStorage, err, "presigning GET")
		}
		return req.URL, nil
	default:
		return "", apperr.Newf(apperr.KindInternal, "unsupported presign operation %q", op)
	}
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
