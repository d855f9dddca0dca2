package translator

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/emifrog/speechtotalk/internal/metrics"
)

const (
	// Google Cloud Translation API v3 endpoints
	translateAPIURL = "https://translation.googleapis.com/v3/projects/%s/locations/global:translateText"
	detectAPIURL    = "https://translation.googleapis.com/v3/projects/%s/locations/global:detectLanguage"

	// RequestTimeout bounds every remote translation call.
	RequestTimeout = 10 * time.Second

	// vendorRatePerSecond caps outbound calls so one busy incident does not
	// burn through the project quota.
	vendorRatePerSecond = 10
	vendorBurst         = 20
)

// GoogleClient calls the Google Cloud Translation API v3 with
// service-account JWT authentication. It implements Translator and Detector.
type GoogleClient struct {
	projectID   string
	accessToken string
	tokenExpiry time.Time
	httpClient  *http.Client
	credentials *googleCredentials
	privateKey  *rsa.PrivateKey
	limiter     *rate.Limiter
	enabled     bool
	mu          sync.Mutex // protects token refresh
}

// googleCredentials is a Google Cloud service account JSON key.
type googleCredentials struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

type translateRequest struct {
	SourceLanguageCode string   `json:"sourceLanguageCode,omitempty"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
	Contents           []string `json:"contents"`
	MimeType           string   `json:"mimeType"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type translateResponse struct {
	Translations []struct {
		TranslatedText       string `json:"translatedText"`
		DetectedLanguageCode string `json:"detectedLanguageCode,omitempty"`
	} `json:"translations"`
	Error *apiError `json:"error,omitempty"`
}

type detectRequest struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type detectResponse struct {
	Languages []struct {
		LanguageCode string  `json:"languageCode"`
		Confidence   float64 `json:"confidence"`
	} `json:"languages"`
	Error *apiError `json:"error,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// NewGoogleClient creates the vendor client. It auto-enables if
// GOOGLE_APPLICATION_CREDENTIALS points to a valid service-account file;
// otherwise every call fails with an auth-class error.
func NewGoogleClient() *GoogleClient {
	c := &GoogleClient{
		httpClient: &http.Client{Timeout: RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(vendorRatePerSecond), vendorBurst),
		enabled:    false,
	}

	credPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if credPath == "" {
		log.Println("[TRANSLATOR] GOOGLE_APPLICATION_CREDENTIALS not set, remote translation disabled")
		return c
	}

	if strings.HasPrefix(credPath, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			credPath = strings.Replace(credPath, "~", home, 1)
		}
	}

	data, err := os.ReadFile(credPath)
	if err != nil {
		log.Printf("[TRANSLATOR] failed to read credentials file %s: %v", credPath, err)
		return c
	}

	var creds googleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Printf("[TRANSLATOR] failed to parse credentials: %v", err)
		return c
	}

	if creds.ProjectID == "" || creds.PrivateKey == "" || creds.ClientEmail == "" {
		log.Println("[TRANSLATOR] credentials file missing required fields")
		return c
	}

	block, _ := pem.Decode([]byte(creds.PrivateKey))
	if block == nil {
		log.Println("[TRANSLATOR] failed to decode PEM block from private key")
		return c
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Older keys ship in PKCS1 format
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			log.Printf("[TRANSLATOR] failed to parse private key: %v", err)
			return c
		}
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		log.Println("[TRANSLATOR] private key is not RSA")
		return c
	}

	c.credentials = &creds
	c.privateKey = rsaKey
	c.projectID = creds.ProjectID
	c.enabled = true

	log.Printf("[TRANSLATOR] enabled for project %s", c.projectID)
	return c
}

// IsEnabled reports whether credentials were loaded successfully.
func (c *GoogleClient) IsEnabled() bool {
	return c.enabled
}

// Translate translates text between the given languages. An empty sourceLang
// lets the vendor auto-detect. Failures come back as classified *Error.
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !c.enabled {
		return "", &Error{Class: ClassAuth, Message: "translation credentials not configured"}
	}
	if text == "" {
		return "", nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", NewError(ClassNetwork, err)
	}

	reqBody := translateRequest{
		TargetLanguageCode: targetLang,
		Contents:           []string{text},
		MimeType:           "text/plain",
	}
	if sourceLang != "" {
		reqBody.SourceLanguageCode = sourceLang
	}

	start := time.Now()
	var result translateResponse
	if err := c.post(ctx, fmt.Sprintf(translateAPIURL, c.projectID), reqBody, &result); err != nil {
		metrics.TranslationErrorsTotal.WithLabelValues(string(ClassOf(err))).Inc()
		return "", err
	}
	metrics.TranslationAPILatency.Observe(time.Since(start).Seconds())

	if result.Error != nil {
		err := apiToError(result.Error)
		metrics.TranslationErrorsTotal.WithLabelValues(string(err.Class)).Inc()
		return "", err
	}
	if len(result.Translations) == 0 {
		metrics.TranslationErrorsTotal.WithLabelValues(string(ClassService)).Inc()
		return "", &Error{Class: ClassService, Message: "no translations returned"}
	}

	return result.Translations[0].TranslatedText, nil
}

// DetectLanguage identifies the language of text. Returns the top candidate.
func (c *GoogleClient) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	if !c.enabled {
		return Detection{}, &Error{Class: ClassAuth, Message: "translation credentials not configured"}
	}
	if text == "" {
		return Detection{}, &Error{Class: ClassInvalidRequest, Message: "empty text"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Detection{}, NewError(ClassNetwork, err)
	}

	var result detectResponse
	if err := c.post(ctx, fmt.Sprintf(detectAPIURL, c.projectID), detectRequest{Content: text, MimeType: "text/plain"}, &result); err != nil {
		return Detection{}, err
	}

	if result.Error != nil {
		return Detection{}, apiToError(result.Error)
	}
	if len(result.Languages) == 0 {
		return Detection{}, &Error{Class: ClassService, Message: "no detection returned"}
	}

	best := result.Languages[0]
	return Detection{LanguageCode: best.LanguageCode, Confidence: best.Confidence}, nil
}

// post sends an authenticated JSON request and decodes the response into out.
func (c *GoogleClient) post(ctx context.Context, url string, body, out interface{}) error {
	if err := c.ensureAccessToken(ctx); err != nil {
		return NewError(ClassAuth, err)
	}

	reqJSON, err := json.Marshal(body)
	if err != nil {
		return NewError(ClassInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return NewError(ClassInvalidRequest, err)
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewError(ClassNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(ClassNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Class:      ClassifyHTTP(resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewError(ClassService, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// apiToError maps an in-body API error object to a classified error.
func apiToError(e *apiError) *Error {
	class := ClassifyHTTP(e.Code)
	if strings.Contains(strings.ToLower(e.Message), "language") {
		class = ClassUnsupportedLanguage
	}
	return &Error{Class: class, HTTPStatus: e.Code, Message: e.Message}
}

// ensureAccessToken gets or refreshes the OAuth2 access token using the
// service account key.
func (c *GoogleClient) ensureAccessToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Valid token with a minute to spare
	if c.accessToken != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return nil
	}

	jwt, err := c.signJWT()
	if err != nil {
		return fmt.Errorf("failed to create JWT: %w", err)
	}

	data := "grant_type=urn%3Aietf%3Aparams%3Aoauth%3Agrant-type%3Ajwt-bearer&assertion=" + jwt
	req, err := http.NewRequestWithContext(ctx, "POST", c.credentials.TokenURI, strings.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.Error != "" {
		return fmt.Errorf("token error: %s - %s", tok.Error, tok.ErrorDesc)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return nil
}

// signJWT creates a signed JWT for service account authentication (RS256).
func (c *GoogleClient) signJWT() (string, error) {
	header := map[string]string{"alg": "RS256", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	headerB64 := base64.RawURLEncoding.EncodeToString(headerJSON)

	now := time.Now().Unix()
	claims := map[string]interface{}{
		"iss":   c.credentials.ClientEmail,
		"sub":   c.credentials.ClientEmail,
		"aud":   c.credentials.TokenURI,
		"iat":   now,
		"exp":   now + 3600,
		"scope": "https://www.googleapis.com/auth/cloud-translation",
	}
	claimsJSON, _ := json.Marshal(claims)
	claimsB64 := base64.RawURLEncoding.EncodeToString(claimsJSON)

	signInput := headerB64 + "." + claimsB64
	hash := sha256.Sum256([]byte(signInput))
	signature, err := rsa.SignPKCS1v15(nil, c.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signInput + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
