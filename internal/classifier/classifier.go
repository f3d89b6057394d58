// Package classifier is the client side of the remote sign classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Unknown is reported when the service answers with a label that is not a letter.
const Unknown = "unknown"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

var (
	// ErrNoPrediction means the service answered but had no sign to report yet.
	ErrNoPrediction = errors.New("no prediction")

	// ErrStatus wraps non-2xx answers from the service.
	ErrStatus = errors.New("unexpected status")
)

// Alternative is one ranked candidate label.
type Alternative struct {
	Label      string `json:"label"`
	Confidence string `json:"confidence"`
}

// Prediction is the service's answer for one request.
type Prediction struct {
	Sign         string
	Feedback     string
	Confidence   string
	Alternatives []Alternative
}

// Client talks to the classification service.
type Client interface {
	// Predict classifies one feature vector. target is an optional hint.
	Predict(ctx context.Context, landmarks []float64, target string) (Prediction, error)

	// Latest returns the service's most recent prediction.
	Latest(ctx context.Context) (Prediction, error)
}

// HTTPClient implements Client over the service's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Landmarks []float64 `json:"landmarks"`
	Target    string    `json:"target,omitempty"`
}

type predictResponse struct {
	Sign       string        `json:"sign"`
	Confidence string        `json:"confidence"`
	Top2       []Alternative `json:"top2"`
	Feedback   string        `json:"feedback"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Predict posts the landmarks to /predict.
func (c *HTTPClient) Predict(ctx context.Context, landmarks []float64, target string) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Landmarks: landmarks, Target: target})
	if err != nil {
		return Prediction{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp predictResponse
	if err := c.do(req, &resp); err != nil {
		return Prediction{}, err
	}

	return toPrediction(resp)
}

// Latest fetches /prediction.
func (c *HTTPClient) Latest(ctx context.Context) (Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prediction", nil)
	if err != nil {
		return Prediction{}, fmt.Errorf("build request: %w", err)
	}

	var resp predictResponse
	if err := c.do(req, &resp); err != nil {
		return Prediction{}, err
	}

	return toPrediction(resp)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toPrediction(resp predictResponse) (Prediction, error) {
	sign := strings.TrimSpace(resp.Sign)
	if sign == "" {
		return Prediction{}, ErrNoPrediction
	}

	return Prediction{
		Sign:         NormalizeSign(sign),
		Feedback:     strings.TrimSpace(resp.Feedback),
		Confidence:   resp.Confidence,
		Alternatives: resp.Top2,
	}, nil
}

// NormalizeSign upper-cases single letters and maps anything else to Unknown.
func NormalizeSign(sign string) string {
	s := strings.ToUpper(strings.TrimSpace(sign))
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return s
	}
	return Unknown
}
