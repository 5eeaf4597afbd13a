package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akrylov/authgate/internal/flagx"
	"github.com/akrylov/authgate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for validity fields, which allows
// parsing both string values such as "300s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr              string         `json:"endpoint_addr"`
	DatabaseDSN               string         `json:"database_dsn"`
	SecretKey                 string         `json:"secret_key"`
	JWTIssuer                 string         `json:"jwt_issuer"`
	AccessTokenValidity       timex.Duration `json:"access_token_validity"`
	RefreshTokenValidity      timex.Duration `json:"refresh_token_validity"`
	VerificationTokenValidity timex.Duration `json:"verification_token_validity"`
	ResetTokenValidity        timex.Duration `json:"reset_token_validity"`
	PublicBaseURL             string         `json:"public_base_url"`
	MailEndpoint              string         `json:"mail_endpoint"`
	MailAPIKey                string         `json:"mail_api_key"`
	MailFromEmail             string         `json:"mail_from_email"`
	MailFromName              string         `json:"mail_from_name"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.JWTIssuer = c.JWTIssuer
	config.AccessTokenValidity = time.Duration(c.AccessTokenValidity.Duration)
	config.RefreshTokenValidity = time.Duration(c.RefreshTokenValidity.Duration)
	config.VerificationTokenValidity = time.Duration(c.VerificationTokenValidity.Duration)
	config.ResetTokenValidity = time.Duration(c.ResetTokenValidity.Duration)
	config.PublicBaseURL = c.PublicBaseURL
	config.MailEndpoint = c.MailEndpoint
	config.MailAPIKey = c.MailAPIKey
	config.MailFromEmail = c.MailFromEmail
	config.MailFromName = c.MailFromName
}
