package mail

import (
	"bytes"
	"html/template"
	"net/url"
)

var verificationTmpl = template.Must(template.New("verification").Parse(
	`<h3>Welcome {{.Name}}!</h3>` +
		`<p>Please verify your email by clicking the link below:</p>` +
		`<a href="{{.Link}}">{{.Link}}</a>`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(
	`<p>Hi {{.Name}},</p>` +
		`<p>Click below to reset your password:</p>` +
		`<a href="{{.Link}}">{{.Link}}</a>`))

// TemplateBuilder renders the HTML bodies for verification and reset mail,
// embedding links under the configured public base URL.
type TemplateBuilder struct {
	baseURL string
}

// NewTemplateBuilder constructs a builder. baseURL is the externally
// reachable prefix of the auth endpoints, e.g. "https://example.com/auth".
func NewTemplateBuilder(baseURL string) *TemplateBuilder {
	return &TemplateBuilder{baseURL: baseURL}
}

// VerificationEmail renders the account-verification body for the given
// recipient name and token value.
func (b *TemplateBuilder) VerificationEmail(name, token string) (string, error) {
	return render(verificationTmpl, name, b.baseURL+"/verify?token="+url.QueryEscape(token))
}

// PasswordResetEmail renders the password-reset body.
func (b *TemplateBuilder) PasswordResetEmail(name, token string) (string, error) {
	return render(passwordResetTmpl, name, b.baseURL+"/reset-password/validate?token="+url.QueryEscape(token))
}

func render(tmpl *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Name string
		Link string
	}{Name: name, Link: link})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
