package config

import (
	"flag"
	"os"

	"github.com/akrylov/authgate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8081")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-i string     JWT issuer
//	-t duration   access token validity (e.g., "300s")
//	-r duration   refresh token validity (e.g., "24h")
//	-v duration   verification token validity
//	-w duration   password-reset token validity
//	-u string     public base URL for email links
//	-m string     mail API endpoint
//	-k string     mail API key
//	-f string     mail sender address
//	-n string     mail sender name
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-i", "-t", "-r", "-v", "-w", "-u", "-m", "-k", "-f", "-n",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.JWTIssuer, "i", config.JWTIssuer, "JWT issuer")

	fs.DurationVar(&config.AccessTokenValidity, "t", config.AccessTokenValidity, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidity, "r", config.RefreshTokenValidity, "refresh token validity")
	fs.DurationVar(&config.VerificationTokenValidity, "v", config.VerificationTokenValidity, "verification token validity")
	fs.DurationVar(&config.ResetTokenValidity, "w", config.ResetTokenValidity, "password reset token validity")

	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL for email links")
	fs.StringVar(&config.MailEndpoint, "m", config.MailEndpoint, "mail API endpoint")
	fs.StringVar(&config.MailAPIKey, "k", config.MailAPIKey, "mail API key")
	fs.StringVar(&config.MailFromEmail, "f", config.MailFromEmail, "mail sender address")
	fs.StringVar(&config.MailFromName, "n", config.MailFromName, "mail sender name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
