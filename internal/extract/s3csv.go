package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/logging"
)

// ObjectGetter is the subset of *s3.Client used by S3CSVExtractor.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client for region from the default AWS
// credential chain. With anonymous set, requests are unsigned, which is
// enough for public buckets.
func NewS3Client(ctx context.Context, region string, anonymous bool) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if anonymous {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3CSVExtractor reads a CSV object with a header row.
type S3CSVExtractor struct {
	// Address is s3://bucket/key.
	Address string
	Client  ObjectGetter
}

// ParseS3Address splits s3://bucket/key into bucket and key.
func ParseS3Address(address string) (bucket, key string, err error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 address %q: %w", address, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("s3 address %q: want s3://bucket/key", address)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 address %q: no object key", address)
	}
	return u.Host, key, nil
}

// Extract downloads and parses the object. Empty cells become nil.
func (e *S3CSVExtractor) Extract(ctx context.Context) (core.Batch, error) {
	bucket, key, err := ParseS3Address(e.Address)
	if err != nil {
		return core.Batch{}, err
	}
	if e.Client == nil {
		return core.Batch{}, errors.New("s3 extractor: no client")
	}

	out, err := e.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return core.Batch{}, fmt.Errorf("get %s: %w", e.Address, err)
	}
	defer out.Body.Close()

	counter := &countingReader{r: newTextReader(out.Body)}
	batch, err := readCSV(counter)
	if err != nil {
		return core.Batch{}, fmt.Errorf("parse %s: %w", e.Address, err)
	}
	logging.FromContext(ctx).Debug("downloaded", "address", e.Address, "bytes", counter.bytesRead, "rows", batch.Len())
	return batch, nil
}

// readCSV parses a CSV stream with a header row. Blank header names are
// replaced by unnamed_<i>; rows shorter than the header are padded with nil.
func readCSV(r io.Reader) (core.Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return core.Batch{}, errors.New("csv has no header row")
	}
	if err != nil {
		return core.Batch{}, err
	}

	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "unnamed_" + strconv.Itoa(i)
		}
		columns[i] = h
	}
	batch := core.NewBatch(columns...)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.Batch{}, err
		}
		rec := make(core.Record, len(columns))
		for i, col := range columns {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			} else {
				rec[col] = nil
			}
		}
		batch.Rows = append(batch.Rows, rec)
	}
	return batch, nil
}
