package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// BlobStore stores raw bytes and hands back a retrievable URL.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	// KeyFromURL recovers the object key of a URL returned by Put.
	KeyFromURL(url string) (string, bool)
}

// LocalBlobStore 本地存储实现
type LocalBlobStore struct {
	Root string
}

func (p *LocalBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return p.url(key), nil
}

func (p *LocalBlobStore) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (p *LocalBlobStore) url(key string) string {
	return "/uploads/" + key
}

func (p *LocalBlobStore) KeyFromURL(url string) (string, bool) {
	return trimURLPrefix(url, "/uploads/")
}

// MinioBlobStore MinIO存储实现
type MinioBlobStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioBlobStore(cfg *config.StorageConfig) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioBlobStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.url(key), nil
}

func (p *MinioBlobStore) Remove(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioBlobStore) url(key string) string {
	return "/" + p.Bucket + "/" + key
}

func (p *MinioBlobStore) KeyFromURL(url string) (string, bool) {
	return trimURLPrefix(url, "/"+p.Bucket+"/")
}

// OSSBlobStore 阿里云OSS存储实现
type OSSBlobStore struct {
	Endpoint string
	Bucket   string
	Client   *oss.Client
}

func NewOSSBlobStore(cfg *config.StorageConfig) (*OSSBlobStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSBlobStore{Endpoint: cfg.OSSEndpoint, Bucket: cfg.OSSBucket, Client: client}, nil
}

func (p *OSSBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return p.url(key), nil
}

func (p *OSSBlobStore) Remove(ctx context.Context, key string) error {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSBlobStore) url(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket, p.Endpoint, key)
}

func (p *OSSBlobStore) KeyFromURL(url string) (string, bool) {
	return trimURLPrefix(url, fmt.Sprintf("https://%s.%s/", p.Bucket, p.Endpoint))
}

func trimURLPrefix(url, prefix string) (string, bool) {
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// NewBlobStore picks the provider configured in storage.type. A remote
// provider that cannot be constructed falls back to local disk.
func NewBlobStore(cfg *config.StorageConfig) BlobStore {
	switch cfg.Type {
	case util.StorageMinio:
		p, err := NewMinioBlobStore(cfg)
		if err == nil {
			return p
		}
		logger.Log.Error("Failed to init MinIO storage, falling back to local", zap.Error(err))
	case util.StorageOSS:
		p, err := NewOSSBlobStore(cfg)
		if err == nil {
			return p
		}
		logger.Log.Error("Failed to init OSS storage, falling back to local", zap.Error(err))
	}
	return &LocalBlobStore{Root: cfg.LocalPath}
}
