// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strings"
)

// ContactNotificationEmailData describes a contact form submission for the
// site owner.
type ContactNotificationEmailData struct {
	SiteName string
	Name     string
	Email    string
	Phone    string
	Subject  string
	Message  string
	IP       string
	AdminURL string // link to the message in the admin (optional)
}

// ContactNotificationEmail renders the owner notification for a contact form
// submission. The subject line is returned so callers do not rebuild it.
func ContactNotificationEmail(data ContactNotificationEmailData) (subject, textBody, htmlBody string) {
	subject = "New contact message"
	if data.Subject != "" {
		subject += ": " + data.Subject
	}
	if data.SiteName != "" {
		subject = "[" + data.SiteName + "] " + subject
	}

	var b strings.Builder
	b.WriteString("You received a new message through the contact form.\n\n")
	b.WriteString("From: " + data.Name + " <" + data.Email + ">\n")
	if data.Phone != "" {
		b.WriteString("Phone: " + data.Phone + "\n")
	}
	if data.Subject != "" {
		b.WriteString("Subject: " + data.Subject + "\n")
	}
	b.WriteString("\n" + data.Message + "\n")
	if data.AdminURL != "" {
		b.WriteString("\nView it in the admin:\n" + data.AdminURL + "\n")
	}
	if data.IP != "" {
		b.WriteString("\nSent from " + data.IP + "\n")
	}
	textBody = b.String()

	htmlBody = render(contactHTMLTmpl, data)
	return subject, textBody, htmlBody
}

// WelcomeEmailData contains the data for the email sent when an admin
// creates an account.
type WelcomeEmailData struct {
	SiteName string
	UserName string
	Role     string // "admin" or "editor"
	LoginURL string
	// TempPassword is set for password accounts. The user must change it
	// after the first sign-in.
	TempPassword string
}

// WelcomeEmail generates both plain text and HTML versions of a welcome email.
func WelcomeEmail(data WelcomeEmailData) (textBody, htmlBody string) {
	textBody = "Hello " + data.UserName + ",\n\n" +
		"An account has been created for you on " + data.SiteName +
		" with the role of " + data.Role + ".\n\n"
	if data.TempPassword != "" {
		textBody += "Your temporary password is: " + data.TempPassword + "\n" +
			"You will be asked to choose a new one when you sign in.\n\n"
	} else {
		textBody += "Sign in with your Google account.\n\n"
	}
	textBody += "Sign in at:\n" + data.LoginURL

	htmlBody = render(welcomeHTMLTmpl, data)
	return textBody, htmlBody
}

// PasswordChangedEmailData contains the data for a password changed confirmation email.
type PasswordChangedEmailData struct {
	SiteName string
	LoginURL string
}

// PasswordChangedEmail generates both plain text and HTML versions of a password changed confirmation email.
func PasswordChangedEmail(data PasswordChangedEmailData) (textBody, htmlBody string) {
	textBody = "Your " + data.SiteName + " admin password has been changed.\n\n" +
		"If you made this change, you can safely ignore this email.\n\n" +
		"If you did NOT make this change, ask another administrator to reset " +
		"your password and review the audit log:\n" + data.LoginURL

	htmlBody = render(passwordChangedHTMLTmpl, data)
	return textBody, htmlBody
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return ""
	}
	return buf.String()
}

// layoutHTML wraps every message. Each template defines "body".
const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.SiteName}}</h1>
            </td>
          </tr>
          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
{{template "body" .}}
            </td>
          </tr>
          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                This message was sent automatically by {{.SiteName}}.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>{{end}}`

const buttonHTML = `{{define "button"}}<table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center" style="padding: 8px 0 24px 0;">
                    <a href="{{.URL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 15px; font-weight: 600; border-radius: 6px;">{{.Label}}</a>
                  </td>
                </tr>
              </table>{{end}}`

func newTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"button": func(url, label string) map[string]string {
			return map[string]string{"URL": url, "Label": label}
		},
	}).Parse(layoutHTML + buttonHTML + body))
}

var contactHTMLTmpl = newTemplate("contact_notification", `{{define "body"}}
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b;">New Contact Message</h2>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="margin-bottom: 24px; font-size: 14px; color: #52525b;">
                <tr><td style="padding: 4px 0; width: 90px; color: #71717a;">From</td><td style="padding: 4px 0;">{{.Name}} &lt;{{.Email}}&gt;</td></tr>
                {{if .Phone}}<tr><td style="padding: 4px 0; color: #71717a;">Phone</td><td style="padding: 4px 0;">{{.Phone}}</td></tr>{{end}}
                {{if .Subject}}<tr><td style="padding: 4px 0; color: #71717a;">Subject</td><td style="padding: 4px 0;">{{.Subject}}</td></tr>{{end}}
              </table>
              <div style="padding: 16px; background-color: #fafafa; border-radius: 6px; border-left: 4px solid #4f46e5; margin-bottom: 24px; font-size: 15px; line-height: 1.6; color: #27272a; white-space: pre-wrap;">{{.Message}}</div>
              {{if .AdminURL}}{{template "button" (button .AdminURL "Open in Admin")}}{{end}}
              {{if .IP}}<p style="margin: 0; font-size: 12px; color: #a1a1aa;">Sent from {{.IP}}</p>{{end}}
{{end}}`)

var welcomeHTMLTmpl = newTemplate("welcome", `{{define "body"}}
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b;">Welcome, {{.UserName}}</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                An account has been created for you with the role of <strong>{{.Role}}</strong>.
              </p>
              {{if .TempPassword}}
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Your temporary password is <code style="padding: 2px 6px; background-color: #f4f4f5; border-radius: 4px;">{{.TempPassword}}</code>.
                You will be asked to choose a new one when you sign in.
              </p>
              {{else}}
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Sign in with your Google account.
              </p>
              {{end}}
              {{template "button" (button .LoginURL "Sign In")}}
{{end}}`)

var passwordChangedHTMLTmpl = newTemplate("password_changed", `{{define "body"}}
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b; text-align: center;">Password Changed</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Your {{.SiteName}} admin password has been changed. <strong>If you made this change</strong>, you can safely ignore this email.
              </p>
              <div style="padding: 16px; background-color: #fef2f2; border-radius: 6px; border-left: 4px solid #ef4444; margin-bottom: 24px;">
                <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #991b1b;">
                  <strong>If you did NOT make this change</strong>, ask another administrator to reset your password and review the audit log.
                </p>
              </div>
              {{template "button" (button .LoginURL "Go to Login")}}
{{end}}`)
