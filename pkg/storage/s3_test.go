package storage

import (
	"context"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beam-cloud/adzip/pkg/adzip"
	common "github.com/beam-cloud/adzip/pkg/common"
)

const (
	mockEndpoint = "http://s3.mock.internal"
	mockBucket   = "archives"
	mockKey      = "backups/proj.ad"
)

var mockObjectURL = fmt.Sprintf("%s/%s/%s", mockEndpoint, mockBucket, mockKey)

func newMockStore(t *testing.T) *S3ArchiveStore {
	t.Helper()
	t.Setenv("AWS_CA_BUNDLE", "")

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("HEAD", fmt.Sprintf("%s/%s", mockEndpoint, mockBucket), httpmock.NewStringResponder(200, ""))

	s, err := NewS3ArchiveStore(S3ArchiveStoreOpts{
		Bucket:         mockBucket,
		Key:            mockKey,
		Region:         "us-east-1",
		Endpoint:       mockEndpoint,
		AccessKey:      "test-access-key",
		SecretKey:      "test-secret-key",
		ForcePathStyle: true,
		HTTPClient:     client,
	})
	require.NoError(t, err)
	return s
}

// objectResponder serves a stored object, honoring the downloader's range requests.
func objectResponder(object *[]byte) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		data := *object
		var start, end int64
		if _, err := fmt.Sscanf(req.Header.Get("Range"), "bytes=%d-%d", &start, &end); err != nil {
			start, end = 0, int64(len(data))-1
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}

		resp := httpmock.NewBytesResponse(http.StatusPartialContent, data[start:end+1])
		resp.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
		resp.Header.Set("Content-Length", fmt.Sprint(end-start+1))
		return resp, nil
	}
}

// objectHeadResponder reports the current size of a stored object.
func objectHeadResponder(object *[]byte) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(200, "")
		resp.Header.Set("Content-Length", fmt.Sprint(len(*object)))
		return resp, nil
	}
}

func TestS3ArchiveStoreRoundTrip(t *testing.T) {
	s := newMockStore(t)

	archivePath := createTestArchive(t, map[string][]byte{
		"readme.txt": []byte("hello world"),
		"src/main.c": []byte("int main() { return 0; }\n"),
	})
	original, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	var stored []byte
	httpmock.RegisterResponder("PUT", mockObjectURL, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		stored = body
		resp := httpmock.NewStringResponse(200, "")
		resp.Header.Set("ETag", `"mock-etag"`)
		return resp, nil
	})
	httpmock.RegisterResponder("GET", mockObjectURL, objectResponder(&stored))
	httpmock.RegisterResponder("HEAD", mockObjectURL, objectHeadResponder(&stored))

	require.NoError(t, s.Store(context.Background(), archivePath, nil))
	assert.Equal(t, original, stored)

	fetchedPath := filepath.Join(t.TempDir(), "fetched.ad")
	n, err := s.Fetch(context.Background(), fetchedPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(original)), n)

	fetched, err := os.ReadFile(fetchedPath)
	require.NoError(t, err)
	assert.Equal(t, original, fetched)

	metadata, err := adzip.NewArchiver().ExtractMetadata(fetchedPath)
	require.NoError(t, err)
	assert.NotNil(t, metadata.Table.FindByName("proj/src/main.c"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(fetchedPath), ".fetched.ad.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestS3ArchiveStoreProgress(t *testing.T) {
	s := newMockStore(t)
	archivePath := createTestArchive(t, map[string][]byte{"data.bin": make([]byte, 256*1024)})

	httpmock.RegisterResponder("PUT", mockObjectURL, func(req *http.Request) (*http.Response, error) {
		io.Copy(io.Discard, req.Body)
		return httpmock.NewStringResponse(200, ""), nil
	})

	progressChan := make(chan int)
	last := make(chan int)
	go func() {
		progress := 0
		for p := range progressChan {
			progress = p
		}
		last <- progress
	}()

	err := s.Store(context.Background(), archivePath, progressChan)
	close(progressChan)
	require.NoError(t, err)
	assert.Equal(t, 100, <-last)
}

func TestS3ArchiveStoreRejectsCorruptDownload(t *testing.T) {
	s := newMockStore(t)

	garbage := []byte("this is not an archive at all")
	httpmock.RegisterResponder("GET", mockObjectURL, objectResponder(&garbage))
	httpmock.RegisterResponder("HEAD", mockObjectURL, objectHeadResponder(&garbage))

	target := filepath.Join(t.TempDir(), "proj.ad")
	require.NoError(t, os.WriteFile(target, []byte("previous contents"), 0644))

	_, err := s.Fetch(context.Background(), target)
	require.ErrorIs(t, err, common.ErrCorruptArchive)

	// The existing file is left alone
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous contents", string(content))
}

func TestS3ArchiveStoreRejectsShortDownload(t *testing.T) {
	s := newMockStore(t)

	archivePath := createTestArchive(t, map[string][]byte{"readme.txt": []byte("hello world")})
	object, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	httpmock.RegisterResponder("GET", mockObjectURL, objectResponder(&object))
	httpmock.RegisterResponder("HEAD", mockObjectURL, func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(200, "")
		resp.Header.Set("Content-Length", fmt.Sprint(len(object)+100))
		return resp, nil
	})

	target := filepath.Join(t.TempDir(), "proj.ad")
	_, err = s.Fetch(context.Background(), target)
	require.ErrorIs(t, err, common.ErrArchiveIO)

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestS3ArchiveStoreFetchMissingObject(t *testing.T) {
	s := newMockStore(t)
	httpmock.RegisterResponder("HEAD", mockObjectURL, httpmock.NewStringResponder(404, ""))

	target := filepath.Join(t.TempDir(), "proj.ad")
	_, err := s.Fetch(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot stat object")
	assert.Zero(t, httpmock.GetCallCountInfo()["GET "+mockObjectURL])

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestS3ArchiveStoreRefusesInvalidArchive(t *testing.T) {
	s := newMockStore(t)

	path := filepath.Join(t.TempDir(), "bad.ad")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0644))

	err := s.Store(context.Background(), path, nil)
	require.ErrorIs(t, err, common.ErrCorruptArchive)
	assert.Zero(t, httpmock.GetCallCountInfo()["PUT "+mockObjectURL])
}

func TestS3ArchiveStoreSize(t *testing.T) {
	s := newMockStore(t)

	httpmock.RegisterResponder("HEAD", mockObjectURL, func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(200, "")
		resp.Header.Set("Content-Length", "4096")
		return resp, nil
	})

	size, err := s.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
}

func TestNewS3ArchiveStoreBucketAccess(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", "")

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("HEAD", fmt.Sprintf("%s/%s", mockEndpoint, mockBucket), httpmock.NewStringResponder(403, ""))

	_, err := NewS3ArchiveStore(S3ArchiveStoreOpts{
		Bucket:         mockBucket,
		Key:            mockKey,
		Region:         "us-east-1",
		Endpoint:       mockEndpoint,
		AccessKey:      "test-access-key",
		SecretKey:      "test-secret-key",
		ForcePathStyle: true,
		HTTPClient:     client,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access bucket")
}

func TestAWSConfigWithCABundle(t *testing.T) {
	server := httptest.NewTLSServer(http.NotFoundHandler())
	defer server.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, certPEM, 0644))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	cfg, err := getAWSConfig("test-access-key", "test-secret-key", "us-east-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.NotNil(t, cfg.HTTPClient)
}
