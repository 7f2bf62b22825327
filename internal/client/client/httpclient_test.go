package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake upload server
 *************/

type receivedChunk struct {
	fields   map[string]string
	data     []byte
	ctype    string
	filename string
}

type fakeServer struct {
	mu sync.Mutex

	prepareReqs []NegotiateRequest
	releaseReqs []releaseRequest
	chunks      []receivedChunk
	authHeaders []string
	handlerErrs []error

	sessionID     string
	prepareStatus int
	chunkStatus   int
	prepareBody   string
}

// reject records a request the fake could not decode and answers 400.
func (f *fakeServer) reject(w http.ResponseWriter, path string, err error) {
	f.mu.Lock()
	f.handlerErrs = append(f.handlerErrs, fmt.Errorf("%s: %w", path, err))
	f.mu.Unlock()
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{sessionID: "sess-1", prepareStatus: http.StatusOK, chunkStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc(PreparePath, func(w http.ResponseWriter, r *http.Request) {
		var req NegotiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.reject(w, PreparePath, err)
			return
		}

		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.prepareReqs = append(f.prepareReqs, req)
		status, body, sid := f.prepareStatus, f.prepareBody, f.sessionID
		f.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		if body != "" {
			_, _ = io.WriteString(w, body)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sessionId": sid})
	})
	mux.HandleFunc(ChunkPath, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			f.reject(w, ChunkPath, err)
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			f.reject(w, ChunkPath, err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			f.reject(w, ChunkPath, err)
			return
		}

		fields := map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}

		f.mu.Lock()
		f.chunks = append(f.chunks, receivedChunk{
			fields:   fields,
			data:     data,
			ctype:    hdr.Header.Get("Content-Type"),
			filename: hdr.Filename,
		})
		status := f.chunkStatus
		f.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc(CancelPath, func(w http.ResponseWriter, r *http.Request) {
		var req releaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.reject(w, CancelPath, err)
			return
		}
		f.mu.Lock()
		f.releaseReqs = append(f.releaseReqs, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	// runs after srv.Close, on the test goroutine
	t.Cleanup(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Empty(t, f.handlerErrs, "fake server could not decode requests")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestNewDatasetUploadClient_RejectsBadURL(t *testing.T) {
	_, err := NewDatasetUploadClient("ftp://example.com", "")
	require.Error(t, err)

	_, err = NewDatasetUploadClient("://bad", "")
	require.Error(t, err)

	c, err := NewDatasetUploadClient("http://example.com/console/", "")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/console/api/datasets/upload/chunk", c.endpoint(ChunkPath))
}

func TestNegotiate_SendsDeclarationAndReturnsSession(t *testing.T) {
	f, srv := newFakeServer(t)
	c, err := NewDatasetUploadClient(srv.URL, "opaque-token")
	require.NoError(t, err)

	sid, err := c.Negotiate(context.Background(), NegotiateRequest{TotalFileNum: 2, TotalSize: 1234, DatasetID: "ds-7"})
	require.NoError(t, err)
	require.Equal(t, "sess-1", sid)

	require.Equal(t, []NegotiateRequest{{TotalFileNum: 2, TotalSize: 1234, DatasetID: "ds-7"}}, f.prepareReqs)
	require.Equal(t, []string{"Bearer opaque-token"}, f.authHeaders)
}

func TestNegotiate_WireFieldNames(t *testing.T) {
	b, err := json.Marshal(NegotiateRequest{TotalFileNum: 1, TotalSize: 2, DatasetID: "d"})
	require.NoError(t, err)
	require.JSONEq(t, `{"totalFileNum":1,"totalSize":2,"datasetId":"d"}`, string(b))
}

func TestNegotiate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrServer},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ErrUnauthorized},
		{name: "empty session", status: http.StatusOK, body: `{"sessionId":""}`, wantErr: ErrBadResponse},
		{name: "garbage", status: http.StatusOK, body: `not json`, wantErr: ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeServer(t)
			f.prepareStatus = tt.status
			f.prepareBody = tt.body

			c, err := NewDatasetUploadClient(srv.URL, "")
			require.NoError(t, err)

			_, err = c.Negotiate(context.Background(), NegotiateRequest{DatasetID: "d"})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNegotiate_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewDatasetUploadClient(url, "")
	require.NoError(t, err)

	_, err = c.Negotiate(context.Background(), NegotiateRequest{DatasetID: "d"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNegotiate_ExpiredJWTFailsWithoutNetwork(t *testing.T) {
	f, srv := newFakeServer(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	c, err := NewDatasetUploadClient(srv.URL, token)
	require.NoError(t, err)

	_, err = c.Negotiate(context.Background(), NegotiateRequest{DatasetID: "d"})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Empty(t, f.prepareReqs)
}

func TestSendChunk_EncodesAllFields(t *testing.T) {
	f, srv := newFakeServer(t)
	c, err := NewDatasetUploadClient(srv.URL, "")
	require.NoError(t, err)

	data := []byte("0123456789")
	var progress []int64

	err = c.SendChunk(context.Background(), ChunkRequest{
		SessionID:     "sess-1",
		FileNo:        2,
		ChunkNo:       3,
		FileName:      "rows.csv",
		FileSize:      25,
		TotalChunkNum: 3,
		CheckSumHex:   "abcdef",
		ContentType:   "text/csv",
		Data:          data,
	}, func(n int64) { progress = append(progress, n) })
	require.NoError(t, err)

	require.Len(t, f.chunks, 1)
	got := f.chunks[0]
	require.Equal(t, map[string]string{
		"reqId":         "sess-1",
		"fileNo":        "2",
		"chunkNo":       "3",
		"fileName":      "rows.csv",
		"fileSize":      "25",
		"totalChunkNum": "3",
		"checkSumHex":   "abcdef",
	}, got.fields)
	require.Equal(t, data, got.data)
	require.Equal(t, "text/csv", got.ctype)

	require.NotEmpty(t, progress)
	require.Equal(t, int64(len(data)), progress[len(progress)-1])
}

func TestSendChunk_Rejected(t *testing.T) {
	f, srv := newFakeServer(t)
	f.chunkStatus = http.StatusUnprocessableEntity

	c, err := NewDatasetUploadClient(srv.URL, "")
	require.NoError(t, err)

	err = c.SendChunk(context.Background(), ChunkRequest{SessionID: "s", FileNo: 1, ChunkNo: 1, FileName: "a.bin", Data: []byte("x")}, nil)
	require.ErrorIs(t, err, ErrServer)
	require.Contains(t, err.Error(), "422")
}

func TestSendChunk_EmptyFileNameStillArrivesAsFile(t *testing.T) {
	f, srv := newFakeServer(t)
	c, err := NewDatasetUploadClient(srv.URL, "")
	require.NoError(t, err)

	err = c.SendChunk(context.Background(), ChunkRequest{SessionID: "s", FileNo: 1, ChunkNo: 1, TotalChunkNum: 1, Data: []byte("xyz")}, nil)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.chunks, 1)
	require.Equal(t, []byte("xyz"), f.chunks[0].data)
	require.NotEmpty(t, f.chunks[0].filename)
	require.Equal(t, "", f.chunks[0].fields["fileName"])
}

func TestFakeServer_RecordsUndecodableRequests(t *testing.T) {
	f, srv := newFakeServer(t)

	resp, err := http.Post(srv.URL+PreparePath, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.mu.Lock()
	require.Len(t, f.handlerErrs, 1)
	f.handlerErrs = nil
	f.mu.Unlock()
}

func TestSendChunk_CancelledContextAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	c, err := NewDatasetUploadClient(srv.URL, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.SendChunk(ctx, ChunkRequest{SessionID: "s", FileNo: 1, ChunkNo: 1, Data: []byte("x")}, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, ErrUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("SendChunk did not return after cancel")
	}
}

func TestRelease_PostsSession(t *testing.T) {
	f, srv := newFakeServer(t)
	c, err := NewDatasetUploadClient(srv.URL, "")
	require.NoError(t, err)

	require.NoError(t, c.Release(context.Background(), "sess-9"))
	require.Equal(t, []releaseRequest{{SessionID: "sess-9"}}, f.releaseReqs)
}

func TestMapError_Nil(t *testing.T) {
	c := &HTTPClient{}
	require.NoError(t, c.mapError(nil))
	require.True(t, errors.Is(c.mapError(io.EOF), ErrUnavailable))
}
