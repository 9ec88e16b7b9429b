package gateway

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	methodTradePrecreate = "alipay.trade.precreate"
	methodTradeQuery     = "alipay.trade.query"

	signTypeRSA2    = "RSA2"
	protocolVersion = "1.0"

	codeSuccess          = "10000"
	codeBusinessFailed   = "40004"
	subCodeTradeNotExist = "ACQ.TRADE_NOT_EXIST"
)

type Config struct {
	GatewayURL       string
	AppID            string
	PrivateKey       string // merchant private key, base64 PKCS#8
	GatewayPublicKey string // provider public key, base64 PKIX
	NotifyURL        string
	OrderSubject     string
	HTTPTimeout      time.Duration
}

// Client signs and sends requests to the payment provider over plain HTTP
// form posts and verifies the signatures on its push notifications.
type Client struct {
	cfg        Config
	client     *http.Client
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return nil, errors.New("gateway url is not configured")
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, errors.New("gateway app id is not configured")
	}

	privateKey, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse merchant private key: %w", err)
	}
	publicKey, err := parsePublicKey(cfg.GatewayPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse gateway public key: %w", err)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.OrderSubject) == "" {
		cfg.OrderSubject = "venue booking top-up"
	}

	return &Client{
		cfg:        cfg,
		client:     &http.Client{Timeout: timeout},
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// NewMerchantRef derives the provider-facing order reference from the payment
// id and its creation time, then sanitizes it to the provider's allowed
// alphabet. The pair makes it globally unique; a collision is a programming
// error, not a retryable condition.
func (c *Client) NewMerchantRef(paymentID uint64, createdAt time.Time) string {
	return SanitizeMerchantRef(fmt.Sprintf("PAY_%d_%d", createdAt.UnixMilli(), paymentID))
}

func (c *Client) PrecreateOrder(ctx context.Context, merchantRef string, amount decimal.Decimal) (*PrecreateResult, error) {
	biz := map[string]string{
		"subject":                 c.cfg.OrderSubject,
		"out_trade_no":            merchantRef,
		"total_amount":            amount.StringFixed(2),
		"timeout_express":         "15m",
		"qr_code_timeout_express": "30m",
	}

	var payload struct {
		Code       string `json:"code"`
		Msg        string `json:"msg"`
		SubCode    string `json:"sub_code"`
		SubMsg     string `json:"sub_msg"`
		OutTradeNo string `json:"out_trade_no"`
		QrCode     string `json:"qr_code"`
	}
	if err := c.execute(ctx, methodTradePrecreate, biz, &payload); err != nil {
		return nil, err
	}

	if payload.Code != codeSuccess {
		return nil, fmt.Errorf("%w: code=%s sub_code=%s sub_msg=%s", ErrGatewayDeclined, payload.Code, payload.SubCode, payload.SubMsg)
	}

	scanCode := SanitizeScanCode(payload.QrCode)
	if scanCode == "" {
		return nil, fmt.Errorf("%w: precreate succeeded without a scan code", ErrGatewayDeclined)
	}

	return &PrecreateResult{
		ScanCode:    scanCode,
		MerchantRef: merchantRef,
	}, nil
}

func (c *Client) QueryStatus(ctx context.Context, merchantRef string) (*QueryResult, error) {
	biz := map[string]string{
		"out_trade_no": merchantRef,
	}

	var payload struct {
		Code        string `json:"code"`
		Msg         string `json:"msg"`
		SubCode     string `json:"sub_code"`
		SubMsg      string `json:"sub_msg"`
		TradeStatus string `json:"trade_status"`
		TradeNo     string `json:"trade_no"`
		OutTradeNo  string `json:"out_trade_no"`
		TotalAmount string `json:"total_amount"`
	}
	if err := c.execute(ctx, methodTradeQuery, biz, &payload); err != nil {
		return nil, err
	}

	if payload.Code == codeBusinessFailed && payload.SubCode == subCodeTradeNotExist {
		return nil, ErrTradeNotFound
	}
	if payload.Code != codeSuccess {
		return nil, fmt.Errorf("%w: code=%s sub_code=%s sub_msg=%s", ErrGatewayDeclined, payload.Code, payload.SubCode, payload.SubMsg)
	}

	amount := decimal.Zero
	if strings.TrimSpace(payload.TotalAmount) != "" {
		parsed, err := decimal.NewFromString(payload.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed total_amount %q", ErrGatewayDeclined, payload.TotalAmount)
		}
		amount = parsed
	}

	return &QueryResult{
		TradeStatus: payload.TradeStatus,
		TradeNo:     payload.TradeNo,
		MerchantRef: payload.OutTradeNo,
		Amount:      amount,
	}, nil
}

// VerifyNotification checks the RSA2 signature the provider puts on every
// push notification. The sign and sign_type fields are excluded from the
// signed content per the provider's protocol.
func (c *Client) VerifyNotification(params map[string]string) error {
	signature := strings.TrimSpace(params["sign"])
	if signature == "" {
		return fmt.Errorf("%w: missing sign parameter", ErrSignatureInvalid)
	}
	if signType := strings.TrimSpace(params["sign_type"]); signType != "" && signType != signTypeRSA2 {
		return fmt.Errorf("%w: unsupported sign_type %s", ErrSignatureInvalid, signType)
	}

	content := notificationSignContent(params)
	if err := c.verify(content, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, method string, biz map[string]string, out interface{}) error {
	// The business payload is serialized exactly once; a failure here is a
	// local programming error, never a gateway error.
	bizJSON, err := json.Marshal(biz)
	if err != nil {
		return fmt.Errorf("marshal biz_content: %w", err)
	}

	params := map[string]string{
		"app_id":      c.cfg.AppID,
		"method":      method,
		"format":      "JSON",
		"charset":     "utf-8",
		"sign_type":   signTypeRSA2,
		"timestamp":   time.Now().Format("2006-01-02 15:04:05"),
		"version":     protocolVersion,
		"biz_content": string(bizJSON),
	}
	if method == methodTradePrecreate && strings.TrimSpace(c.cfg.NotifyURL) != "" {
		params["notify_url"] = c.cfg.NotifyURL
	}

	signature, err := c.sign(requestSignContent(params))
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	params["sign"] = signature

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway request failed: method=%s status=%d body=%s", method, resp.StatusCode, string(body))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed gateway response: %w", err)
	}

	raw, ok := envelope[responseKey(method)]
	if !ok {
		return fmt.Errorf("malformed gateway response: missing %s", responseKey(method))
	}
	return json.Unmarshal(raw, out)
}

func responseKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

// requestSignContent joins the sorted non-empty parameters as key=value pairs.
// The sign parameter itself never participates.
func requestSignContent(params map[string]string) string {
	return signContent(params, map[string]bool{"sign": true})
}

func notificationSignContent(params map[string]string) string {
	return signContent(params, map[string]bool{"sign": true, "sign_type": true})
}

func signContent(params map[string]string, skip map[string]bool) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if skip[k] || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func (c *Client) sign(content string) (string, error) {
	digest := sha256.Sum256([]byte(content))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

func (c *Client) verify(content, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return err
	}
	digest := sha256.Sum256([]byte(content))
	return rsa.VerifyPKCS1v15(c.publicKey, crypto.SHA256, digest[:], signature)
}

var keyArmor = regexp.MustCompile(`-----[A-Z ]+-----|\s`)

// Keys arrive from configuration as the provider console emits them: base64
// DER, sometimes wrapped in PEM armor and line breaks. Strip both.
func normalizeKeyMaterial(raw string) string {
	return keyArmor.ReplaceAllString(raw, "")
}

func parsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(normalizeKeyMaterial(raw))
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parsePublicKey(raw string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(normalizeKeyMaterial(raw))
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
