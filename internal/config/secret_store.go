package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fetchServiceSecret reads the service token secret from the configured bucket.
func fetchServiceSecret(ctx context.Context, c *Config) (string, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Secrets.Region),
	}
	if c.Secrets.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.Secrets.AccessKey, c.Secrets.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("configure secrets client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Secrets.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Secrets.Endpoint)
			o.UsePathStyle = true
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.Secrets.Bucket),
		Key:    aws.String(c.Secrets.Key),
	})
	if err != nil {
		return "", fmt.Errorf("fetch service secret s3://%s/%s: %w", c.Secrets.Bucket, c.Secrets.Key, err)
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("read service secret: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}
