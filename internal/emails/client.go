package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails. Best-effort everywhere: callers log
// failures and move on. Nil = no-op.
type Sender interface {
	SendVerification(ctx context.Context, toEmail, firstName, verificationCode string) error
	SendNewMessage(ctx context.Context, toEmail, senderName, listingTitle, messagePreview string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@campusrecycle.app"
}

// send sends one email via the Brevo API. An empty API key makes the client
// a no-op so local development never needs credentials.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Campus Recycle"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendVerification sends the email-verification code after registration
// (Express getVerificationEmailTemplate).
func (c *BrevoClient) SendVerification(ctx context.Context, toEmail, firstName, verificationCode string) error {
	if firstName == "" {
		firstName = "there"
	}
	content := fmt.Sprintf(`
    <p>Hi %s,</p>
    <p>Thanks for joining Campus Recycle! Please verify your email address by entering this code:</p>
    <div class="code">%s</div>
    <p>This code will expire in 24 hours.</p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
`, EscapeHTML(firstName), EscapeHTML(verificationCode))
	return c.send(ctx, toEmail, "Verify your Campus Recycle account", EmailLayout("Welcome to Campus Recycle!", content))
}

// SendNewMessage notifies a recipient about a new message on one of their
// conversations (Express getNewMessageEmailTemplate).
func (c *BrevoClient) SendNewMessage(ctx context.Context, toEmail, senderName, listingTitle, messagePreview string) error {
	content := fmt.Sprintf(`
    <p><strong>%s</strong> sent you a message about <strong>"%s"</strong>:</p>
    <blockquote style="border-left: 3px solid %s; padding-left: 15px; color: #555;">%s</blockquote>
    <p>Log in to Campus Recycle to reply.</p>
`, EscapeHTML(senderName), EscapeHTML(listingTitle), themePrimary, EscapeHTML(messagePreview))
	return c.send(ctx, toEmail, "New Message on Campus Recycle", EmailLayout("You have a new message", content))
}
