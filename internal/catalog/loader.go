package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 client the loader needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads the catalog document once at startup. The source may be a
// local path, an http(s) URL or an s3://bucket/key location.
type Loader struct {
	HTTPClient *http.Client
	S3Client   S3API
	S3Region   string
}

// NewLoader creates a loader with default clients.
func NewLoader() *Loader {
	return &Loader{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load fetches and parses the catalog at source.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", source, err)
	}
	return Parse(data)
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("catalog source is required")
	}

	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.readHTTP(ctx, source)
	case strings.HasPrefix(source, "s3://"):
		return l.readS3(ctx, source)
	default:
		return os.ReadFile(source)
	}
}

func (l *Loader) readHTTP(ctx context.Context, source string) ([]byte, error) {
	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (l *Loader) readS3(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source must look like s3://bucket/key")
	}

	client := l.S3Client
	if client == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if l.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(l.S3Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = s3.NewFromConfig(cfg)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
