package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"lms/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Storage keeps uploaded and generated files. Put returns the stored path and a public URL.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (storedPath, url string, err error)
}

// LocalStorage writes under Dir, which fiber serves at BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (s LocalStorage) Put(_ context.Context, key string, data []byte, _ string) (string, string, error) {
	filePath := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", "", errors.Wrap(err, "create upload dir")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", "", errors.Wrap(err, "write file")
	}
	return filePath, strings.TrimRight(s.BaseURL, "/") + "/" + key, nil
}

// OSSStorage puts objects into an Alibaba Cloud OSS bucket.
type OSSStorage struct {
	Bucket        *oss.Bucket
	PublicBaseURL string
}

func NewOSSStorage(endpoint, accessKey, secretKey, bucketName, publicBaseURL string) (*OSSStorage, error) {
	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, errors.Wrap(err, "oss.New")
	}
	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "client.Bucket")
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.%s", bucketName, strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://"))
	}
	return &OSSStorage{Bucket: bkt, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *OSSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, string, error) {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.Bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return "", "", errors.Wrap(err, "oss put object")
	}
	return key, s.PublicBaseURL + "/" + key, nil
}

// NewStorage picks the backend named by STORAGE_DRIVER.
func NewStorage(cfg *config.Config) (Storage, error) {
	if cfg.StorageDriver == "oss" {
		return NewOSSStorage(cfg.OSSEndpoint, cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret, cfg.OSSBucket, cfg.OSSPublicBaseURL)
	}
	return LocalStorage{Dir: cfg.PublicDir, BaseURL: "/"}, nil
}

// UploadKey builds a collision free object key inside folder, keeping the extension.
func UploadKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, time.Now().Format("20060102"), uuid.NewString()+ext)
}

// SaveUploadedFile stores a multipart upload and returns its public URL.
func SaveUploadedFile(ctx context.Context, store Storage, file *multipart.FileHeader, folder string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}

	_, url, err := store.Put(ctx, UploadKey(folder, file.Filename), data, file.Header.Get("Content-Type"))
	return url, err
}

// SaveUploadedImage converts an image upload to webp before storing it.
func SaveUploadedImage(ctx context.Context, store Storage, file *multipart.FileHeader, folder string, maxSide int) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}

	webpData, err := ToWebP(data, maxSide)
	if err != nil {
		return "", err
	}

	key := strings.TrimSuffix(UploadKey(folder, file.Filename), filepath.Ext(file.Filename)) + ".webp"
	_, url, err := store.Put(ctx, key, webpData, "image/webp")
	return url, err
}
