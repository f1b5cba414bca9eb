package mail

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/upb/catering-erp/config"
)

// Links builds the frontend URLs placed in account emails and error bodies
type Links struct {
	base         string
	resetPath    string
	activatePath string
}

// NewLinks creates Links from the mail configuration
func NewLinks(cfg config.MailConfig) Links {
	return Links{
		base:         strings.TrimRight(cfg.FrontEndURL, "/"),
		resetPath:    cfg.ResetPath,
		activatePath: cfg.ActivatePath,
	}
}

// ResetPassword returns the link carrying a password-reset token
func (l Links) ResetPassword(token string) string {
	return l.build(l.resetPath, url.Values{"token": {token}})
}

// Reactivate returns the self-service reactivation link for an inactive user
func (l Links) Reactivate(username, tenantCode string) string {
	return l.build(l.activatePath, url.Values{
		"username":          {username},
		"companyUniqueCode": {tenantCode},
	})
}

func (l Links) build(path string, q url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s?%s", l.base, path, q.Encode())
}

// ResetPasswordMessage builds the forgot-password email
func ResetPasswordMessage(to, username, link string) Message {
	return Message{
		To:      to,
		Subject: "Password reset",
		Body: fmt.Sprintf("Hello %s,\r\n\r\nA password reset was requested for your account. "+
			"Follow the link below to choose a new password:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this you can ignore this email.\r\n", username, link),
	}
}
