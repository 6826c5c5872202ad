// Package assessment talks to the behavioral-health assessment service:
// submitting intake payloads and, in development, simulating its responses.
package assessment

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/brightmind-health/chartwatch/pkg/logging"
)

var intakeTracer = otel.Tracer("chartwatch.internal.assessment.client")

// Client posts converted intake payloads to the assessment service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewClient(baseURL, apiKey string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// SubmitIntake posts one patient payload to the intake endpoint and returns
// the raw response body on a 2xx status.
func (c *Client) SubmitIntake(ctx context.Context, patientName string, payload map[string]any) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, errors.New("assessment: base url missing")
	}

	ctx, span := intakeTracer.Start(ctx, "assessment.intake.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("chartwatch.patient_name", patientName),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("assessment: marshal intake payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/intake", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("assessment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assessment: submit intake: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	span.SetAttributes(attribute.Int("chartwatch.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("intake rejected", "patient", patientName, "status", resp.StatusCode)
		return nil, fmt.Errorf("assessment: intake returned status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	c.logger.Info("intake submitted", "patient", patientName, "status", resp.StatusCode)
	return json.RawMessage(respBody), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
