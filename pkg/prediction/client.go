// Package prediction wraps the external route-prediction/optimization HTTP
// service. The upstream response shape is unstable across deployments, so the
// decoder probes several historical key-name variants for each field.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Upstream endpoints
const (
	PredictPath      = "/predecir"
	OptimalRoutePath = "/ruta_optima"
)

// UpstreamError reports a non-2xx answer from the prediction service,
// preserving the upstream status code and body for the caller.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
}

// PredictedClient is one likely-next-visit forecast for a client
type PredictedClient struct {
	RUC        string          `json:"ruc"`
	Name       string          `json:"name"`
	Sale       decimal.Decimal `json:"sale"`
	Collection decimal.Decimal `json:"collection"`
	Promotion  decimal.Decimal `json:"promotion"`
}

// Client is an HTTP client for the prediction service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new prediction service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward performs a stateless GET passthrough against the upstream path with
// the given query string, returning the upstream status and raw body. Used by
// the proxy endpoints that exist only to sidestep browser CORS restrictions.
func (c *Client) Forward(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build prediction request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("prediction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read prediction response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// Predict invokes /predecir for one seller and week and decodes the forecast
// list defensively.
func (c *Client) Predict(ctx context.Context, sellerName string, week int) ([]PredictedClient, error) {
	query := url.Values{}
	query.Set("vendedor", sellerName)
	query.Set("semana", strconv.Itoa(week))

	status, body, err := c.Forward(ctx, PredictPath, query)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamError{StatusCode: status, Body: body}
	}

	return decodePredictions(body)
}

// decodePredictions handles the shapes the upstream has answered with over
// time: a bare array, or an object wrapping the array under "predicciones",
// "clientes" or "data".
func decodePredictions(body []byte) ([]PredictedClient, error) {
	var rows []map[string]interface{}

	if err := json.Unmarshal(body, &rows); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("unexpected prediction payload: %w", err)
		}
		var inner json.RawMessage
		for _, key := range []string{"predicciones", "clientes", "data"} {
			if raw, ok := wrapper[key]; ok {
				inner = raw
				break
			}
		}
		if inner == nil {
			return nil, fmt.Errorf("prediction payload has no recognizable list field")
		}
		if err := json.Unmarshal(inner, &rows); err != nil {
			return nil, fmt.Errorf("unexpected prediction list shape: %w", err)
		}
	}

	predictions := make([]PredictedClient, 0, len(rows))
	for _, row := range rows {
		p := PredictedClient{
			RUC:        probeString(row, "ruc", "RUC", "cliente_ruc"),
			Name:       probeString(row, "nombre", "name", "nombre_comercial", "cliente"),
			Sale:       probeDecimal(row, "venta", "venta_sugerida", "monto", "valor_venta"),
			Collection: probeDecimal(row, "cobranza", "cobro", "valor_cobranza"),
			Promotion:  probeDecimal(row, "promocion", "promociones", "valor_promocion"),
		}
		if p.RUC == "" {
			continue // unusable row, skip rather than fail the batch
		}
		predictions = append(predictions, p)
	}

	return predictions, nil
}

// probeString returns the first non-empty string found under any candidate key
func probeString(row map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
			// Some deployments send the RUC as a number
			if f, ok := v.(float64); ok {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
	}
	return ""
}

// probeDecimal returns the first numeric value found under any candidate key
func probeDecimal(row map[string]interface{}, keys ...string) decimal.Decimal {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			switch value := v.(type) {
			case float64:
				return decimal.NewFromFloat(value)
			case string:
				if d, err := decimal.NewFromString(value); err == nil {
					return d
				}
			}
		}
	}
	return decimal.Zero
}
