package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/WPeytz/MinuteMind/internal/config"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/WPeytz/MinuteMind/internal/service"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// s3PutAPI 是 *s3.Client 中用到的子集，便于测试替换。
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3MediaStore 实现 service.MediaStore，流式上传到 S3 兼容存储。
type s3MediaStore struct {
	client s3PutAPI
	bucket string
	cdnURL string
}

// NewS3MediaStore 按 archive 配置创建 MediaStore；归档未启用时返回 nil。
func NewS3MediaStore(ctx context.Context, cfg config.ArchiveConfig) (service.MediaStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	client, region, err := buildS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.LegacyPrintf("repository.s3_media", "[S3Media] 客户端已初始化 bucket=%s endpoint=%s region=%s", cfg.Bucket, cfg.Endpoint, region)
	return &s3MediaStore{
		client: client,
		bucket: cfg.Bucket,
		cdnURL: strings.TrimRight(cfg.CDNURL, "/"),
	}, nil
}

// Put 上传 body。size < 0 表示长度未知，此时不设置 ContentLength。
// 返回值：配置了 CDN 时为 CDN 地址，否则为 s3://bucket/key。
func (s *s3MediaStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	logger.LegacyPrintf("repository.s3_media", "[S3Media] 上传完成 key=%s size=%d", key, size)
	return s.location(key), nil
}

func (s *s3MediaStore) location(key string) string {
	if s.cdnURL != "" {
		return s.cdnURL + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}

func buildS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, string, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	// 未配置静态密钥时走默认凭证链（环境变量、共享配置、实例角色）。
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
		o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
		// 兼容非 TLS 的 S3 兼容存储（如 MinIO）的流式上传
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return client, region, nil
}
