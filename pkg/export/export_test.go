package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/BTBurke/smi/pkg/store"
	"github.com/BTBurke/smi/pkg/telemetry"
	"github.com/cenkalti/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(bucketName, objectName, body, objectSize)
	return minio.UploadInfo{}, args.Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, name string, data []byte) error {
	args := m.Called(name, data)
	return args.Error(0)
}

func testS3(t *testing.T, p objectPutter, retries uint64) *S3 {
	s := newS3(p, S3Config{Bucket: "exports", Prefix: "smi/", Logger: zaptest.NewLogger(t)})
	s.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries)
	}
	return s
}

func sample() telemetry.Dataset {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return telemetry.Dataset{
		telemetry.NewReading(t0, "MX-01", 70, 3, 130, 55),
		telemetry.NewReading(t0.Add(time.Hour), "MX-01", 91, 3, 130, 55),
	}
}

func TestFileName(t *testing.T) {
	tt := []struct {
		machine string
		exp     string
	}{
		{machine: "MX-01", exp: "readings_MX-01.csv"},
		{machine: "", exp: "readings_all.csv"},
		{machine: "line/7", exp: "readings_line_7.csv"},
	}
	for _, tc := range tt {
		t.Run(tc.exp, func(t *testing.T) {
			assert.Equal(t, tc.exp, FileName(tc.machine))
		})
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sample())
	require.NoError(t, err)
	d, err := store.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, sample(), d)
}

func TestPublish(t *testing.T) {
	data, err := Encode(sample())
	require.NoError(t, err)

	u := new(mockUploader)
	u.On("Upload", "readings_MX-01.csv", data).Return(nil).Once()
	name, err := Publish(context.Background(), u, "MX-01", sample())
	assert.NoError(t, err)
	assert.Equal(t, "readings_MX-01.csv", name)
	u.AssertExpectations(t)

	failing := new(mockUploader)
	failing.On("Upload", mock.Anything, mock.Anything).Return(errors.New("bucket gone"))
	_, err = Publish(context.Background(), failing, "MX-01", sample())
	assert.Error(t, err)
}

func TestS3UploadRetries(t *testing.T) {
	data := []byte("timestamp\n")
	p := new(mockPutter)
	p.On("PutObject", "exports", "smi/readings_MX-01.csv", data, int64(len(data))).Return(errors.New("connection reset")).Twice()
	p.On("PutObject", "exports", "smi/readings_MX-01.csv", data, int64(len(data))).Return(nil).Once()

	s := testS3(t, p, 5)
	assert.NoError(t, s.Upload(context.Background(), "readings_MX-01.csv", data))
	p.AssertNumberOfCalls(t, "PutObject", 3)
}

func TestS3UploadGivesUp(t *testing.T) {
	p := new(mockPutter)
	p.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied"))

	s := testS3(t, p, 2)
	err := s.Upload(context.Background(), "readings_MX-01.csv", []byte("x"))
	assert.Error(t, err)
	p.AssertNumberOfCalls(t, "PutObject", 3)
}

func TestS3UploadCanceled(t *testing.T) {
	p := new(mockPutter)
	p.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := testS3(t, p, 100)
	assert.Error(t, s.Upload(ctx, "readings_MX-01.csv", []byte("x")))
	p.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestNewS3Validation(t *testing.T) {
	_, err := NewS3(S3Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewS3(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
	s, err := NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "b", Insecure: true})
	assert.NoError(t, err)
	assert.NotNil(t, s)
}
