// Package google implements the vision Detector against the Google Cloud
// Vision REST API. The API is called directly over HTTP; no SDK is used.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/umzugtech/volumescan/internal/domain"
	"github.com/umzugtech/volumescan/internal/vision"
)

const defaultAPIURL = "https://vision.googleapis.com/v1/images:annotate"

// maxResults caps how many annotations each feature request returns.
const maxResults = 10

// request types mirror the images:annotate API structure.
type request struct {
	Requests []annotateRequest `json:"requests"`
}

type annotateRequest struct {
	Image    image     `json:"image"`
	Features []feature `json:"features"`
}

type image struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type response struct {
	Responses []struct {
		LocalizedObjectAnnotations []objectAnnotation `json:"localizedObjectAnnotations"`
		Error                      *apiError          `json:"error"`
	} `json:"responses"`
}

type objectAnnotation struct {
	Name         string `json:"name"`
	Score        float64 `json:"score"`
	BoundingPoly struct {
		NormalizedVertices []vertex `json:"normalizedVertices"`
	} `json:"boundingPoly"`
}

type vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		client:  &http.Client{},
		baseURL: defaultAPIURL,
	}
}

// buildRequest constructs the annotate payload with both feature requests:
// object localization for bounding regions and label detection as a
// classification backstop.
func buildRequest(imageData []byte) request {
	return request{
		Requests: []annotateRequest{{
			Image: image{Content: base64.StdEncoding.EncodeToString(imageData)},
			Features: []feature{
				{Type: "OBJECT_LOCALIZATION", MaxResults: maxResults},
				{Type: "LABEL_DETECTION", MaxResults: maxResults},
			},
		}},
	}
}

func (c *Client) Detect(ctx context.Context, imageData []byte) (*vision.Result, error) {
	payload, err := json.Marshal(buildRequest(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call vision api: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close vision response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vision api returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respBody.Responses) == 0 {
		return nil, fmt.Errorf("vision api returned no responses")
	}
	if apiErr := respBody.Responses[0].Error; apiErr != nil {
		return nil, fmt.Errorf("vision api error %d: %s", apiErr.Code, apiErr.Message)
	}

	detections := make([]vision.Detection, 0, len(respBody.Responses[0].LocalizedObjectAnnotations))
	for _, ann := range respBody.Responses[0].LocalizedObjectAnnotations {
		detections = append(detections, vision.Detection{
			Label:      ann.Name,
			Confidence: ann.Score,
			Bounds:     flattenPoly(ann.BoundingPoly.NormalizedVertices),
		})
	}

	return &vision.Result{
		Detections:    detections,
		FurnitureType: vision.IdentifyFurnitureType(detections),
		Source:        vision.SourceProvider,
	}, nil
}

// flattenPoly reduces a bounding polygon to its axis-aligned rectangle.
func flattenPoly(vertices []vertex) domain.Bounds {
	if len(vertices) == 0 {
		return domain.Bounds{}
	}
	minX, maxX := vertices[0].X, vertices[0].X
	minY, maxY := vertices[0].Y, vertices[0].Y
	for _, v := range vertices[1:] {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}
	return domain.Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
