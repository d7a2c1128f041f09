package entry

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig holds configuration for AWS Secrets Manager
type AWSConfig struct {
	Region          string `yaml:"region" toml:"region"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"`
	SecretName      string `yaml:"secret_name" toml:"secret_name"`
	Endpoint        string `yaml:"endpoint" toml:"endpoint"` // Optional: for LocalStack or custom endpoints
}

// Validate checks if the AWSConfig has all required fields set
func (a AWSConfig) Validate() error {
	if a.Region == "" {
		return errors.New("AWS region is required")
	}
	if a.SecretName == "" {
		return errors.New("AWS secret name is required")
	}
	// AccessKeyID and SecretAccessKey are optional - if not provided, will use IAM role or default credentials
	return nil
}

// CreateClient creates and configures an AWS Secrets Manager client from this config.
func (a AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(a.Region),
	}

	if a.Endpoint != "" {
		configOpts = append(configOpts, config.WithBaseEndpoint(a.Endpoint))
	}

	// Default credential chain (IAM role, env vars, etc.) unless static keys are given
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				a.AccessKeyID,
				a.SecretAccessKey,
				"",
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return secretsmanager.NewFromConfig(cfg), nil
}

// secretGetter is the subset of *secretsmanager.Client used by AWSSource.
type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads entries from one AWS Secrets Manager secret holding a JSON object keyed by
// entry short name:
//
//	{"environment-name": "dev-epe3", "url-prefix": "dev-epe3", "environment-datacenter": "lax1"}
type AWSSource struct {
	client     secretGetter
	secretName string
}

// NewAWSSource creates a new AWS Secrets Manager-backed source
func NewAWSSource(client *secretsmanager.Client, secretName string) *AWSSource {
	return &AWSSource{
		client:     client,
		secretName: secretName,
	}
}

// Entry fetches the secret and extracts the entry stored under its short name
func (a *AWSSource) Entry(ctx context.Context, name string) (string, error) {
	return a.Key(ctx, ShortName(name))
}

// Key fetches the secret and extracts key, which may contain dots
func (a *AWSSource) Key(ctx context.Context, key string) (string, error) {
	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from AWS Secrets Manager: %q", a.secretName)
	}

	if result.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", a.secretName)
	}

	var entries map[string]interface{}
	if err := json.Unmarshal([]byte(*result.SecretString), &entries); err != nil {
		return "", errors.Wrapf(err, "secret %q is not a JSON object", a.secretName)
	}

	if value, ok := entries[key].(string); ok {
		log.Debug().
			Str("secret_name", a.secretName).
			Str("entry", key).
			Msg("Retrieved entry from AWS Secrets Manager")
		return value, nil
	}

	return "", errors.Wrapf(ErrNotFound, "%q not in AWS secret %q", key, a.secretName)
}

// Name returns the source name
func (a *AWSSource) Name() string {
	return "AWS"
}
