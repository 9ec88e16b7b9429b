//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/venuehub/ms-go-booking/app/types"
)

const defaultBookingHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func (c *httpClient) doForm(t *testing.T, path string, form url.Values) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("X-Request-ID", fmt.Sprintf("wait-http-%d", time.Now().UnixNano()))
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestBookingPaymentsE2E(t *testing.T) {
	httpBase := os.Getenv("BOOKING_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultBookingHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)

	t.Run("HTTPHealth", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/health", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.HealthResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal health failed: %v body=%s", err, string(body))
		}
		if payload.Status != "ok" {
			t.Fatalf("expected ok, got %q", payload.Status)
		}
	})

	t.Run("HTTPValidationCreate", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/payments", map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid create request, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPCreateRejectsUnknownMethod", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments", map[string]any{
			"user_id":        1,
			"payment_method": "card",
			"amount":         "10.00",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPGetNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/payments/"+strconv.FormatUint(999999, 10), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPListUserPayments", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/payments/user/1", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.ListPaymentsResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal list payments failed: %v body=%s", err, string(body))
		}
	})

	t.Run("HTTPListUserPaymentsInvalidStatus", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodGet, "/payments/user/1/status/paid", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid status filter, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPInitiateGatewayPaymentNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/gateway/pay/999999", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPQueryGatewayStatusNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/gateway/status/999999", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPNotifyUnsignedAcksFail", func(t *testing.T) {
		form := url.Values{}
		form.Set("out_trade_no", "PAY_E2E_UNKNOWN")
		form.Set("trade_status", "TRADE_SUCCESS")

		resp, body := client.doForm(t, "/gateway/notify", form)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("notification endpoint must answer 200, got %d", resp.StatusCode)
		}
		if string(body) != "fail" {
			t.Fatalf("expected bare fail token for unsigned notification, got %q", string(body))
		}
	})
}
