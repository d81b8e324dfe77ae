package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-tamper-inspector/internal/config"
	apperrors "go-tamper-inspector/internal/errors"
	"go-tamper-inspector/pkg/models"

	"github.com/gin-gonic/gin"
)

type fakeService struct {
	err        error
	gotOpts    *models.CompareOptionsRequest
	gotURLs    []string
	gotUploads [][]byte
}

func (f *fakeService) CompareUploads(ctx context.Context, original, tampered io.Reader, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error) {
	a, _ := io.ReadAll(original)
	b, _ := io.ReadAll(tampered)
	f.gotUploads = [][]byte{a, b}
	f.gotOpts = opts
	return f.respond()
}

func (f *fakeService) CompareURLs(ctx context.Context, originalURL, tamperedURL string, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error) {
	f.gotURLs = []string{originalURL, tamperedURL}
	f.gotOpts = opts
	return f.respond()
}

func (f *fakeService) respond() (*models.ComparisonResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ComparisonResponse{
		ComparisonResult: models.ComparisonResult{
			ID:       "abc",
			Score:    0.5,
			Tampered: true,
			Regions:  []models.BoundingBox{{X: 1, Y: 2, Width: 3, Height: 4}},
		},
	}, nil
}

type fakeMetrics struct{}

func (fakeMetrics) GetMetrics() map[string]interface{} {
	return map[string]interface{}{"total_comparisons": 7}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024 * 1024,
		ArtifactBackend:    config.BackendLocal,
		ArtifactDir:        t.TempDir(),
		ArtifactBaseURL:    "/artifacts",
	}
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	for name, value := range fields {
		w.WriteField(name, value)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&fakeService{}, fakeMetrics{}, testConfig(t))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "available" {
		t.Errorf("Expected status available, got %s", resp.Status)
	}
}

func TestStats(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("with metrics", func(t *testing.T) {
		handler := NewHandler(&fakeService{}, fakeMetrics{}, testConfig(t))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_comparisons":7`) {
			t.Errorf("Expected metrics payload, got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("without metrics", func(t *testing.T) {
		handler := NewHandler(&fakeService{}, nil, testConfig(t))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestCompareUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		files        map[string]string
		fields       map[string]string
		serviceErr   error
		expectedCode int
	}{
		{
			name:         "success with options",
			files:        map[string]string{"original": "AAA", "tampered": "BBB"},
			fields:       map[string]string{"window_size": "9", "min_region_area": "25"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing tampered file",
			files:        map[string]string{"original": "AAA"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "service validation error",
			files:        map[string]string{"original": "AAA", "tampered": "BBB"},
			serviceErr:   apperrors.NewValidationError("Image dimensions do not match", nil).WithDetails("4x4 vs 5x5"),
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "service timeout",
			files:        map[string]string{"original": "AAA", "tampered": "BBB"},
			serviceErr:   apperrors.NewTimeoutError("image comparison timed out", context.DeadlineExceeded),
			expectedCode: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.serviceErr}
			handler := NewHandler(svc, fakeMetrics{}, testConfig(t))

			body, contentType := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/compare", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedCode {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
			}
			if tt.expectedCode != http.StatusOK {
				var resp models.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to decode error response: %v", err)
				}
				if resp.Error != http.StatusText(tt.expectedCode) {
					t.Errorf("Expected error %q, got %q", http.StatusText(tt.expectedCode), resp.Error)
				}
				return
			}

			if string(svc.gotUploads[0]) != "AAA" || string(svc.gotUploads[1]) != "BBB" {
				t.Errorf("Expected uploads in field order, got %q", svc.gotUploads)
			}
			if svc.gotOpts == nil || svc.gotOpts.WindowSize == nil || *svc.gotOpts.WindowSize != 9 {
				t.Errorf("Expected window_size 9 to be bound, got %+v", svc.gotOpts)
			}
			if svc.gotOpts.MinRegionArea == nil || *svc.gotOpts.MinRegionArea != 25 {
				t.Errorf("Expected min_region_area 25 to be bound, got %+v", svc.gotOpts)
			}
			if svc.gotOpts.BoxThickness != nil {
				t.Errorf("Expected box_thickness to stay unset, got %d", *svc.gotOpts.BoxThickness)
			}
		})
	}
}

func TestCompareUploads_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.MaxRequestBodySize = 64
	handler := NewHandler(&fakeService{}, fakeMetrics{}, cfg)

	body, contentType := multipartBody(t, map[string]string{
		"original": strings.Repeat("A", 512),
		"tampered": strings.Repeat("B", 512),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/compare", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code < 400 {
		t.Errorf("Expected oversized body to be rejected, got %d", w.Code)
	}
}

func TestCompareURLs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		svc := &fakeService{}
		handler := NewHandler(svc, fakeMetrics{}, testConfig(t))

		payload := `{"original_url":"https://example.com/a.png","tampered_url":"az://uploads/b.png","options":{"box_thickness":4}}`
		req := httptest.NewRequest(http.MethodPost, "/compare/url", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if svc.gotURLs[0] != "https://example.com/a.png" || svc.gotURLs[1] != "az://uploads/b.png" {
			t.Errorf("Expected both URLs to be forwarded, got %v", svc.gotURLs)
		}
		if svc.gotOpts == nil || svc.gotOpts.BoxThickness == nil || *svc.gotOpts.BoxThickness != 4 {
			t.Errorf("Expected box_thickness 4, got %+v", svc.gotOpts)
		}

		var resp models.ComparisonResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.ID != "abc" || len(resp.Regions) != 1 || resp.Regions[0].Height != 4 {
			t.Errorf("Expected service response to be returned, got %+v", resp)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		handler := NewHandler(&fakeService{}, fakeMetrics{}, testConfig(t))
		req := httptest.NewRequest(http.MethodPost, "/compare/url", strings.NewReader(`{"original_url":"https://example.com/a.png"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("network error", func(t *testing.T) {
		svc := &fakeService{err: apperrors.NewNetworkError("Failed to fetch image", nil)}
		handler := NewHandler(svc, fakeMetrics{}, testConfig(t))
		req := httptest.NewRequest(http.MethodPost, "/compare/url", strings.NewReader(`{"original_url":"https://a.example/x.png","tampered_url":"https://a.example/y.png"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Expected status 502, got %d", w.Code)
		}
	})
}

func TestArtifactsServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	if err := os.MkdirAll(filepath.Join(cfg.ArtifactDir, "abc"), 0o755); err != nil {
		t.Fatalf("Failed to create artifact dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.ArtifactDir, "abc", models.ArtifactDiffMap), []byte("png"), 0o644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	handler := NewHandler(&fakeService{}, fakeMetrics{}, cfg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/artifacts/abc/"+models.ArtifactDiffMap, nil))

	if w.Code != http.StatusOK || w.Body.String() != "png" {
		t.Errorf("Expected stored artifact, got %d %q", w.Code, w.Body.String())
	}
}

func TestDetermineStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"app error", apperrors.NewProcessingError("x", nil), http.StatusUnprocessableEntity},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusTooManyRequests},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineStatusCode(tt.err); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}
