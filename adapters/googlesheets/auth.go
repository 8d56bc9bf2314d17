package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceAccountKey represents the structure of a service account JSON key file
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// Credentials selects how the adaptor authenticates. The first non-empty
// source wins: JSON, File, Email+PrivateKey, then Application Default
// Credentials.
type Credentials struct {
	File       string // Path to a service account JSON key
	JSON       []byte // Service account JSON key contents
	Email      string // Service account email, used with PrivateKey
	PrivateKey string // PEM private key, used with Email
}

// New creates a SheetsAdaptor authenticated with creds.
func New(ctx context.Context, config Config, creds Credentials) (*SheetsAdaptor, error) {
	ts, err := creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return NewSheetsAdaptor(ctx, config, option.WithTokenSource(ts))
}

// NewWithJSONKeyFile creates a SheetsAdaptor using a JSON key file. An empty
// path falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config Config, jsonPath string) (*SheetsAdaptor, error) {
	if jsonPath == "" {
		jsonPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if jsonPath == "" {
			return nil, fmt.Errorf("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
		}
	}
	return New(ctx, config, Credentials{File: jsonPath})
}

// NewWithServiceAccountKey creates a SheetsAdaptor using email and private key
func NewWithServiceAccountKey(ctx context.Context, config Config, email, privateKey string) (*SheetsAdaptor, error) {
	return New(ctx, config, Credentials{Email: email, PrivateKey: privateKey})
}

// TokenSource builds an oauth2.TokenSource scoped for spreadsheet access.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	switch {
	case len(c.JSON) > 0:
		return tokenSourceFromJSON(ctx, c.JSON)
	case c.File != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return tokenSourceFromJSON(ctx, data)
	case c.Email != "" && c.PrivateKey != "":
		return tokenSourceFromKey(ctx, &ServiceAccountKey{ClientEmail: c.Email, PrivateKey: c.PrivateKey}), nil
	default:
		// GOOGLE_APPLICATION_CREDENTIALS, gcloud ADC, or the GCE metadata server
		ts, err := google.DefaultTokenSource(ctx, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("failed to get default token source: %w", err)
		}
		return ts, nil
	}
}

// ParseServiceAccountJSON parses and sanity-checks a service account key
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("missing required fields in service account key")
	}
	return &key, nil
}

func tokenSourceFromJSON(ctx context.Context, jsonData []byte) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func tokenSourceFromKey(ctx context.Context, key *ServiceAccountKey) oauth2.TokenSource {
	cfg := &jwt.Config{
		Email:      key.ClientEmail,
		PrivateKey: []byte(key.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	if key.TokenURI != "" {
		cfg.TokenURL = key.TokenURI
	}
	return cfg.TokenSource(ctx)
}
