// Package s3ledger implements ledgerstore.Store on S3 (or any
// S3-compatible provider), for a durable backend: a slot becomes an S3
// object key, publish becomes PutObject, fetch becomes GetObject, and
// the object's LastModified header is reinterpreted as the ledger's
// block timestamp.
package s3ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/ledgerchat/channelengine/internal/ledgerstore"
)

// Config describes how to reach the S3-compatible backend
// (region/credentials, plus an endpoint override for non-AWS providers
// like MinIO/Wasabi/Hetzner).
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // non-empty for non-AWS S3-compatible providers
	Provider  string // "aws", "minio", ...; any value but "aws" lets a non-empty Endpoint override the default
	Bucket    string
}

// Store is an S3-backed ledgerstore.Store.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds an S3 client per cfg and wraps it as a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ledgerstore.ErrTransportFailure, err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" && cfg.Provider != "aws" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

func objectKey(slot []byte) string {
	return hex.EncodeToString(slot)
}

// Publish uploads payload at the object key derived from slot.
func (s *Store) Publish(ctx context.Context, slot []byte, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(slot)),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 put %s: %v", ledgerstore.ErrTransportFailure, objectKey(slot), err)
	}
	return nil
}

// Fetch downloads the object at the key derived from slot, or returns
// (nil, false, nil) if it has never been written.
func (s *Store) Fetch(ctx context.Context, slot []byte) (*ledgerstore.Record, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(slot)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: s3 get %s: %v", ledgerstore.ErrTransportFailure, objectKey(slot), err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: s3 read body %s: %v", ledgerstore.ErrTransportFailure, objectKey(slot), err)
	}

	var ts uint64
	if out.LastModified != nil {
		ts = uint64(out.LastModified.UnixMilli())
	}

	return &ledgerstore.Record{Payload: payload, BlockTimestampMs: ts}, true, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
