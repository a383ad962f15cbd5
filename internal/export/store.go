package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"logapi/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrArtifactNotFound 导出文件不存在或位置不属于当前存储
var ErrArtifactNotFound = errors.New("export: artifact not found")

// ArtifactStore 导出文件存储
type ArtifactStore interface {
	// Put 写入文件并返回位置，位置作为任务结果保存
	Put(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// NewStore 按 export.storage 选择存储实现
func NewStore(ctx context.Context, cfg config.ExportConfig) (ArtifactStore, error) {
	switch strings.ToLower(cfg.Storage) {
	case "", "local":
		return NewLocalStore(cfg.Dir), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("不支持的导出存储: %s", cfg.Storage)
	}
}

// LocalStore 写入共享目录，位置即文件路径
type LocalStore struct {
	dir string
}

// NewLocalStore 目录在首次写入时创建
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}
	location := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(location, data, 0o644); err != nil {
		return "", fmt.Errorf("写入导出文件失败: %w", err)
	}
	return location, nil
}

// Open 只允许读取导出目录内的文件
func (s *LocalStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	rel, err := filepath.Rel(s.dir, location)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrArtifactNotFound
	}
	f, err := os.Open(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("打开导出文件失败: %w", err)
	}
	return f, nil
}

// s3API S3 客户端所需的最小接口，便于测试替换
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store S3 兼容对象存储，位置格式为 s3://bucket/key
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store 使用静态凭证；endpoint 非空时指向 MinIO 等兼容服务
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(s.prefix, path.Base(name))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("上传导出文件失败: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, ok := parseS3Location(location)
	if !ok || bucket != s.bucket {
		return nil, ErrArtifactNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("下载导出文件失败: %w", err)
	}
	return out.Body, nil
}

func parseS3Location(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
