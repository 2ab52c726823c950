package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/omeister/jpegbatch/internal/domain"
)

// fakeJPEG is enough bytes to stand in for an image body.
var fakeJPEG = []byte("\xff\xd8\xff\xe0jpeg-body-bytes")

func targetFor(url string) domain.Target {
	return domain.Target{RawInput: url, URL: url, FileName: "test.jpg"}
}

func newTestClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewClient(opts)
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(fakeJPEG)
	}))
	defer server.Close()

	res, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(server.URL+"/cat.jpg"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != string(fakeJPEG) {
		t.Errorf("body mismatch")
	}
	if res.ContentType != "image/jpeg" {
		t.Errorf("content type = %q", res.ContentType)
	}
	if res.Length != int64(len(fakeJPEG)) {
		t.Errorf("length = %d, want %d", res.Length, len(fakeJPEG))
	}
}

func TestFetchContentTypeMismatchIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html>not an image</html>")
	}))
	defer server.Close()

	_, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(server.URL))
	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
	if IsTransient(err) {
		t.Error("content type mismatch must not be transient")
	}
}

func TestFetchContentTypeParametersAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		w.Write(fakeJPEG)
	}))
	defer server.Close()

	if _, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(server.URL)); err != nil {
		t.Errorf("parameterized jpeg content type rejected: %v", err)
	}
}

func TestFetchMissingContentTypeAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress Go's content sniffing so no header is sent.
		w.Header()["Content-Type"] = nil
		w.Write(fakeJPEG)
	}))
	defer server.Close()

	if _, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(server.URL)); err != nil {
		t.Errorf("missing content type rejected: %v", err)
	}
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusGone, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			_, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(server.URL))
			if err == nil {
				t.Fatalf("expected error for status %d", tt.code)
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("status %d transient = %v, want %v", tt.code, IsTransient(err), tt.transient)
			}
		})
	}
}

func TestFetchOversizedBodyIsPermanent(t *testing.T) {
	body := strings.Repeat("x", 2048)

	// Announced via Content-Length.
	announced := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		fmt.Fprint(w, body)
	}))
	defer announced.Close()

	_, err := newTestClient(Options{MaxBodySize: 1024}).Fetch(context.Background(), targetFor(announced.URL))
	if err == nil || IsTransient(err) {
		t.Errorf("announced oversize: got %v, want permanent error", err)
	}

	// Unannounced: chunked body larger than the limit.
	chunked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, body[:1024])
		flusher.Flush()
		fmt.Fprint(w, body[1024:])
	}))
	defer chunked.Close()

	_, err = newTestClient(Options{MaxBodySize: 1024}).Fetch(context.Background(), targetFor(chunked.URL))
	if err == nil || IsTransient(err) {
		t.Errorf("unannounced oversize: got %v, want permanent error", err)
	}
}

func TestFetchFollowsRedirectsUpToLimit(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		if n <= 0 {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(fakeJPEG)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n-1), http.StatusFound)
	})

	client := newTestClient(Options{MaxRedirects: 5})

	// Within the limit: followed to the body.
	if _, err := client.Fetch(context.Background(), targetFor(server.URL+"/hop/3")); err != nil {
		t.Errorf("3 redirects should succeed: %v", err)
	}

	// Beyond the limit: permanent failure.
	_, err := client.Fetch(context.Background(), targetFor(server.URL+"/hop/10"))
	if err == nil {
		t.Fatal("expected redirect limit error")
	}
	if IsTransient(err) {
		t.Errorf("redirect limit must be permanent, got %v", err)
	}
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(Options{Timeout: 50 * time.Millisecond}).
		Fetch(context.Background(), targetFor(server.URL))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Errorf("timeout must be transient, got %v", err)
	}
}

func TestFetchCancellationReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(Options{}).Fetch(ctx, targetFor(server.URL))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetchConnectionRefusedIsTransient(t *testing.T) {
	// Grab an address nothing is listening on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(Options{}).Fetch(context.Background(), targetFor(url))
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsTransient(err) {
		t.Errorf("connection refused must be transient, got %v", err)
	}
}
