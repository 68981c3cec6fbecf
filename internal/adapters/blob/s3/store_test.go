package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

// fakeS3 answers the path style object requests the store issues.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		return respond(200, "", http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(404, "<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>", http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(200, string(body), http.Header{"Content-Length": {strconv.Itoa(len(body))}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(204, "", http.Header{}), nil
	}
	return respond(501, "", http.Header{}), nil
}

func respond(status int, body string, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

// decodeChunked unwraps a single aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size := strings.SplitN(parts[0], ";", 2)[0]
	n, err := strconv.ParseInt(size, 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: "atlas", prefix: "files/"}, fake
}

func TestStoreSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)

	require.NoError(t, store.Save(ctx, "7.jpg", strings.NewReader("jpeg")))
	require.Contains(t, fake.objects, "files/7.jpg")

	rc, err := store.Open(ctx, "7.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "jpeg", string(body))

	require.NoError(t, store.Delete(ctx, "7.jpg"))
	_, err = store.Open(ctx, "7.jpg")
	require.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestStoreBuffersStreams(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write(bytes.Repeat([]byte("a"), 10))
		_ = pw.Close()
	}()
	require.NoError(t, store.Save(ctx, "8.txt", pr))
	require.Equal(t, 10, len(fake.objects["files/8.txt"]))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
