package tryon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the provider client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client submits try-on tasks to the external generation provider. The
// provider answers the submission synchronously with a task id; the actual
// result arrives later through a webhook or is discovered by polling its
// asset host.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a provider client with sensible defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.artificialstudio.ai/api"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type generateRequest struct {
	Model   string        `json:"model"`
	Input   generateInput `json:"input"`
	Webhook string        `json:"webhook,omitempty"`
}

type generateInput struct {
	HumanImage   string `json:"human_image"`
	GarmentImage string `json:"garment_image"`
	Category     string `json:"category"`
	Description  string `json:"description,omitempty"`
}

type generateResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Task describes one submission to the provider.
type Task struct {
	HumanImageURL   string
	GarmentImageURL string
	Category        string
	Description     string
	// WebhookURL is where the provider should push the completion signal.
	WebhookURL string
}

// CreateTask submits the task and returns the provider-assigned job id.
func (c *Client) CreateTask(ctx context.Context, task Task) (string, error) {
	if c == nil {
		return "", errors.New("tryon client not configured")
	}
	if c.token == "" {
		return "", errors.New("tryon: API key is missing")
	}
	payload := generateRequest{
		Model: "virtual-try-on",
		Input: generateInput{
			HumanImage:   task.HumanImageURL,
			GarmentImage: task.GarmentImageURL,
			Category:     task.Category,
			Description:  task.Description,
		},
		Webhook: task.WebhookURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := c.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("tryon: http %d", resp.StatusCode)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return "", fmt.Errorf("tryon error: %s (%s)", out.Message, out.Code)
		}
		return "", fmt.Errorf("tryon: http %d", resp.StatusCode)
	}
	if strings.TrimSpace(out.ID) == "" {
		if out.Message != "" {
			return "", fmt.Errorf("tryon error: %s (%s)", out.Message, out.Code)
		}
		return "", errors.New("tryon: response missing job id")
	}
	return out.ID, nil
}
