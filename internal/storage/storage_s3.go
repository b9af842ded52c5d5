package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// A S3-compatible storage.
type s3Storage struct {
	bucket   string
	client   *s3.Client
	uploader *s3manager.Uploader
	timeout  time.Duration
}

// NewS3Storage creates a new S3-compatible storage. Missing region and
// bucket are read from the S3_REGION/AWS_REGION and S3_BUCKET env vars.
func NewS3Storage(options *StorageOptions) (Storage, error) {
	region := options.Region
	if region == "" {
		var found bool
		region, found = os.LookupEnv("S3_REGION")
		if !found {
			region = os.Getenv("AWS_REGION")
		}
	}
	if region == "" {
		return nil, errors.New("missing region")
	}
	bucket := options.Bucket
	if bucket == "" {
		bucket = os.Getenv("S3_BUCKET")
	}
	if bucket == "" {
		return nil, errors.New("missing bucket")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		awsconfig.WithRegion(region),
	}
	if options.AccessKeyID != "" {
		if options.SecretAccessKey == "" {
			return nil, errors.New("missing secretAccessKey")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     options.AccessKeyID,
				SecretAccessKey: options.SecretAccessKey,
				Source:          "dnt",
			}, nil
		})))
	}

	config, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(config, func(o *s3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Storage{
		bucket:   bucket,
		client:   client,
		uploader: s3manager.NewUploader(client),
		timeout:  time.Minute,
	}, nil
}

// s3ObjectMeta implements the Stat interface.
type s3ObjectMeta struct {
	contentLength int64
	lastModified  time.Time
}

func (s *s3ObjectMeta) Size() int64 {
	return s.contentLength
}

func (s *s3ObjectMeta) ModTime() time.Time {
	return s.lastModified
}

func (s3s *s3Storage) Stat(key string) (Stat, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3s.timeout)
	defer cancel()
	output, err := s3s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, toStorageError(err)
	}
	return &s3ObjectMeta{
		contentLength: aws.ToInt64(output.ContentLength),
		lastModified:  aws.ToTime(output.LastModified),
	}, nil
}

func (s3s *s3Storage) Get(key string) (io.ReadCloser, Stat, error) {
	if key == "" {
		return nil, nil, errors.New("key is required")
	}
	output, err := s3s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, toStorageError(err)
	}
	return output.Body, &s3ObjectMeta{
		contentLength: aws.ToInt64(output.ContentLength),
		lastModified:  aws.ToTime(output.LastModified),
	}, nil
}

func (s3s *s3Storage) Put(key string, content io.Reader) error {
	if key == "" {
		return errors.New("key is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3s.timeout)
	defer cancel()
	_, err := s3s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
		Body:   content,
	})
	return err
}

func (s3s *s3Storage) Delete(key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3s.timeout)
	defer cancel()
	_, err := s3s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	return toStorageError(err)
}

func toStorageError(err error) error {
	if err == nil {
		return nil
	}
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}
	return err
}
