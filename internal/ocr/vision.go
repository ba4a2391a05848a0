/**
 * Vision OCR client - secondary backend
 *
 * Sends the deskewed page to an HTTP vision OCR service. The service picks
 * its own model; this client only reports which one answered.
 */

package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/diktim-ocr/internal/logging"
)

// VisionEngine is the secondary backend backed by a vision OCR service.
type VisionEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// VisionOCRRequest represents a request to extract text from an image
type VisionOCRRequest struct {
	Image          string                 `json:"image"`  // Base64 encoded PNG
	Format         string                 `json:"format"` // always "base64"
	PreferAccuracy bool                   `json:"preferAccuracy"`
	Language       string                 `json:"language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// VisionOCRResponse represents a synchronous response from the vision endpoint
type VisionOCRResponse struct {
	Success bool          `json:"success"`
	Data    VisionOCRData `json:"data"`
	Message string        `json:"message"`
}

// VisionOCRData contains the extracted text and metadata
type VisionOCRData struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	ModelUsed      string  `json:"modelUsed"`
	ProcessingTime int64   `json:"processingTime"` // milliseconds
}

// NewVisionEngine creates a client for the service at baseURL.
func NewVisionEngine(baseURL string) *VisionEngine {
	return &VisionEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Vision tasks can take time
		},
		logger: logging.NewLogger("VisionEngine"),
	}
}

func (v *VisionEngine) Name() string { return "vision" }

// Recognize extracts text from img. Segmentation modes do not apply.
func (v *VisionEngine) Recognize(ctx context.Context, img image.Image, p Profile) (*Recognition, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	resp, err := v.ExtractText(ctx, &VisionOCRRequest{
		Image:          base64.StdEncoding.EncodeToString(buf.Bytes()),
		Format:         "base64",
		PreferAccuracy: true,
		Language:       visionLanguage(p.Language),
		Metadata:       map[string]interface{}{"profile": p.Name},
	})
	if err != nil {
		return nil, err
	}
	return &Recognition{Text: resp.Data.Text}, nil
}

// ExtractText posts one request to the vision endpoint.
func (v *VisionEngine) ExtractText(ctx context.Context, req *VisionOCRRequest) (*VisionOCRResponse, error) {
	endpoint := fmt.Sprintf("%s/api/internal/vision/extract-text", v.baseURL)

	// Marshal request
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "diktim-ocr")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	// Execute request
	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to vision service failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision service returned error status %d: %s", resp.StatusCode, string(body))
	}

	var ocrResp VisionOCRResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !ocrResp.Success {
		return nil, fmt.Errorf("vision operation failed: %s", ocrResp.Message)
	}

	v.logger.Debug("Vision extraction complete",
		"modelUsed", ocrResp.Data.ModelUsed,
		"confidence", ocrResp.Data.Confidence,
		"processingTime", ocrResp.Data.ProcessingTime,
		"textLength", len(ocrResp.Data.Text))

	return &ocrResp, nil
}

// visionLanguage maps Tesseract language codes to the service's ISO 639-1 codes.
func visionLanguage(lang string) string {
	switch lang {
	case "sqi", "sq":
		return "sq"
	case "":
		return ""
	default:
		return "multi"
	}
}
