// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/pkg/types"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

type statusError int

func (e statusError) Error() string       { return http.StatusText(int(e)) }
func (e statusError) HTTPStatusCode() int { return int(e) }

// fakeS3 records uploads and fails the first len(errs) calls.
type fakeS3 struct {
	errs    []error
	calls   int
	objects map[string][]byte
	ctypes  map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.ctypes = map[string]string{}
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.ctypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "facts.yaml"},
		{"cad", "cad/facts.yaml"},
		{"/cad/pump/", "cad/pump/facts.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			p := NewWithClient(&fakeS3{}, types.PublishConfig{Bucket: "b", Prefix: tt.prefix}, nil)
			assert.Equal(t, tt.want, p.Key("facts.yaml"))
		})
	}
}

func TestPut(t *testing.T) {
	fake := &fakeS3{}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b", Prefix: "cad"}, nil)

	key, err := p.Put(context.Background(), "x.json", []byte(`[]`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "cad/x.json", key)
	assert.Equal(t, []byte(`[]`), fake.objects["b/cad/x.json"])
	assert.Equal(t, 1, fake.calls)
}

func TestPut_RetriesThrottled(t *testing.T) {
	fake := &fakeS3{errs: []error{statusError(http.StatusServiceUnavailable), statusError(http.StatusTooManyRequests)}}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b"}, nil)

	_, err := p.Put(context.Background(), "x", []byte("data"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, []byte("data"), fake.objects["b/x"])
}

func TestPut_GivesUpAfterMaxRetries(t *testing.T) {
	throttle := statusError(http.StatusTooManyRequests)
	fake := &fakeS3{errs: []error{throttle, throttle, throttle}}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b", MaxRetries: 2}, nil)

	_, err := p.Put(context.Background(), "x", []byte("data"), "text/plain")
	assert.ErrorIs(t, err, throttle)
	assert.Equal(t, 3, fake.calls)
}

func TestPut_OtherErrorsAreNotRetried(t *testing.T) {
	denied := errors.New("access denied")
	fake := &fakeS3{errs: []error{denied}}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b"}, nil)

	_, err := p.Put(context.Background(), "x", []byte("data"), "text/plain")
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 1, fake.calls)
}

func TestPut_ContextCancelledDuringBackoff(t *testing.T) {
	RetryBaseDelay = time.Hour
	defer func() { RetryBaseDelay = time.Millisecond }()

	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeS3{errs: []error{statusError(http.StatusServiceUnavailable)}}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b"}, nil)

	go cancel()
	_, err := p.Put(ctx, "x", []byte("data"), "text/plain")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishFacts(t *testing.T) {
	ctx := context.Background()
	store := facts.NewMemoryStore(0)
	require.NoError(t, store.Commit(ctx, "components", []types.Fact{
		types.ResourceFact("urn:a", "urn:type", "urn:Component"),
		types.FloatFact("urn:a", "urn:mass", 5),
	}))

	fake := &fakeS3{}
	p := NewWithClient(fake, types.PublishConfig{Bucket: "b", Prefix: "runs"}, nil)

	key, n, err := p.PublishFacts(ctx, store, "pump", facts.FormatNTriples, facts.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "runs/pump.nt", key)
	assert.Equal(t, 2, n)
	assert.Contains(t, string(fake.objects["b/runs/pump.nt"]), "<urn:a> <urn:type> <urn:Component> .")
	assert.Equal(t, "application/n-triples", fake.ctypes["b/runs/pump.nt"])
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), types.PublishConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000"))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000"))
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       types.PublishConfig
		endpoint  string
		pathStyle bool
	}{
		{"aws", types.PublishConfig{Bucket: "b"}, "", false},
		{"minio", types.PublishConfig{Bucket: "b", Endpoint: "minio:9000"}, "https://minio:9000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o s3.Options
			clientOptions(tt.cfg)(&o)
			assert.IsType(t, aws.NopRetryer{}, o.Retryer)
			assert.Equal(t, 1, o.Retryer.MaxAttempts())
			assert.Equal(t, tt.endpoint, aws.ToString(o.BaseEndpoint))
			assert.Equal(t, tt.pathStyle, o.UsePathStyle)
		})
	}
}
