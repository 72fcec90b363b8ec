package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	gotKey  string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	body, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3Address(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{in: "s3://data-handling-public/products.csv", bucket: "data-handling-public", key: "products.csv"},
		{in: "s3://bucket/nested/path/file.csv", bucket: "bucket", key: "nested/path/file.csv"},
		{in: "https://bucket/file.csv", wantErr: true},
		{in: "s3://bucket", wantErr: true},
		{in: "s3:///file.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseS3Address(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestS3CSVExtractor(t *testing.T) {
	csv := "\ufeff,product_name,weight,EAN\n" +
		"0,\"Nerf, blaster\",500g,5012345678900\n" +
		"1,Tent,,\n" +
		"2,Short\n"
	s3c := &fakeS3{objects: map[string]string{"bucket/products.csv": csv}}

	b, err := (&S3CSVExtractor{Address: "s3://bucket/products.csv", Client: s3c}).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "bucket/products.csv", s3c.gotKey)
	assert.Equal(t, []string{"unnamed_0", "product_name", "weight", "EAN"}, b.Columns)
	require.Equal(t, 3, b.Len())
	assert.Equal(t, "Nerf, blaster", b.Rows[0]["product_name"])
	assert.Equal(t, "500g", b.Rows[0]["weight"])
	assert.Equal(t, "0", b.Rows[0]["unnamed_0"])
	assert.Nil(t, b.Rows[1]["weight"])
	assert.Nil(t, b.Rows[2]["EAN"])
}

func TestS3CSVExtractor_Errors(t *testing.T) {
	s3c := &fakeS3{objects: map[string]string{"bucket/empty.csv": ""}}

	_, err := (&S3CSVExtractor{Address: "s3://bucket/missing.csv", Client: s3c}).Extract(context.Background())
	assert.ErrorContains(t, err, "NoSuchKey")

	_, err = (&S3CSVExtractor{Address: "s3://bucket/empty.csv", Client: s3c}).Extract(context.Background())
	assert.ErrorContains(t, err, "no header")

	_, err = (&S3CSVExtractor{Address: "bucket/x.csv", Client: s3c}).Extract(context.Background())
	assert.Error(t, err)
}
