package runway

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the Runway-style generation API: task submission,
// task status retrieval, and streaming artifact transfer.
type Client struct {
	client  *resty.Client
	stream  *resty.Client
	baseURL string
	model   string
}

// ClientConfig holds configuration for the generation API client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates a new generation API client.
// Parameters:
//   - cfg: client configuration including API key, base URL, and model.
//
// Returns:
//   - *Client: initialized API client wrapper.
func NewClient(cfg *ClientConfig) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	// Separate client for artifact transfers: http.Client.Timeout
	// covers the whole body read, which would kill any transfer
	// running past it. Streaming relies on context cancellation.
	stream := resty.New()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.runwayml.com/v1"
	}

	return &Client{
		client:  client,
		stream:  stream,
		baseURL: baseURL,
		model:   cfg.Model,
	}
}

// SubmitRequest carries one image-to-video submission.
type SubmitRequest struct {
	ImageData []byte // raw input image bytes
	Format    string // image format extension (png, jpg, webp)
	Directive string // text instruction accompanying the task
	Ratio     string // output aspect ratio, e.g. "16:9"
	Duration  int    // output duration in seconds
}

type imageToVideoRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText"`
	Ratio       string `json:"ratio"`
	Duration    int    `json:"duration"`
}

type imageToVideoResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type taskResponse struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Output        []string `json:"output,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// Submit creates a new image-to-video task and returns the opaque task
// identifier assigned by the service. The input image is embedded in
// the payload as a base64 data URI.
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) (string, error) {
	mimeType := getMIMEType(req.Format)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType,
		base64.StdEncoding.EncodeToString(req.ImageData))

	body := imageToVideoRequest{
		Model:       c.model,
		PromptImage: dataURL,
		PromptText:  req.Directive,
		Ratio:       req.Ratio,
		Duration:    req.Duration,
	}

	var resp imageToVideoResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		Post(c.baseURL + "/image_to_video")

	if err != nil {
		return "", fmt.Errorf("failed to call submission endpoint: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != "" {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("submission rejected: %s", errorMsg)
	}

	if resp.ID == "" {
		return "", fmt.Errorf("submission response missing task id (status: %d)", httpResp.StatusCode())
	}

	return resp.ID, nil
}

// TaskState is the remote service's view of one task. Status carries
// the vendor status string as-is; MapStatus translates it.
type TaskState struct {
	TaskID        string
	Status        string // raw vendor status string
	ArtifactURL   string // first output URL, set only when succeeded
	FailureReason string
}

// RetrieveTask queries the status endpoint for one task.
func (c *Client) RetrieveTask(ctx context.Context, taskID string) (*TaskState, error) {
	var resp taskResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(c.baseURL + "/tasks/" + taskID)

	if err != nil {
		return nil, fmt.Errorf("failed to call status endpoint: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("status check failed: HTTP %d: %s",
			httpResp.StatusCode(), string(httpResp.Body()))
	}

	state := &TaskState{
		TaskID:        resp.ID,
		Status:        resp.Status,
		FailureReason: resp.FailureReason,
	}
	if len(resp.Output) > 0 {
		state.ArtifactURL = resp.Output[0]
	}

	return state, nil
}

// StreamArtifact opens a streaming GET against a time-limited artifact
// URL. The caller owns the returned reader and must close it. The
// transfer has no overall deadline; cancel ctx to abort it.
func (c *Client) StreamArtifact(ctx context.Context, url string) (io.ReadCloser, error) {
	httpResp, err := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to open artifact transfer: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		body := httpResp.RawBody()
		if body != nil {
			body.Close()
		}
		return nil, fmt.Errorf("artifact transfer failed: HTTP %d", httpResp.StatusCode())
	}

	return httpResp.RawBody(), nil
}

func getMIMEType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
