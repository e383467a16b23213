package usecase

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

var otpEmailTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family:Arial,sans-serif;font-size:14px;line-height:1.6;">
	<p>Dear {{.Name}},</p>
	<p>Your {{if .Resend}}new {{end}}One-Time Password (OTP) is:</p>
	<h2 style="margin:8px 0 16px;">{{.Code}}</h2>
	<p>This code is valid for {{.ValidFor}}. Do not share it with anyone.</p>
</div>`))

var verificationEmailTemplate = template.Must(template.New("verification").Parse(`
<div style="font-family:Arial,sans-serif;font-size:14px;line-height:1.6;">
	<p>Dear {{.Name}},</p>
	<p>Your account has been created. Please confirm your email address:</p>
	<p><a href="{{.Link}}">Verify your email</a></p>
</div>`))

var passwordResetEmailTemplate = template.Must(template.New("password-reset").Parse(`
<div style="font-family:Arial,sans-serif;font-size:14px;line-height:1.6;">
	<p>Dear {{.Name}},</p>
	<p>We received a request to reset your password.</p>
	{{if .Link}}<p><a href="{{.Link}}">Reset your password</a></p>
	{{else}}<p>Use this token to reset it:</p>
	<pre style="padding:8px;background:#f5f5f5;border-radius:4px;">{{.Token}}</pre>
	{{end}}<p>If you did not request this, please ignore this email.</p>
	<p>This {{if .Link}}link{{else}}token{{end}} will expire in {{.ValidFor}}.</p>
</div>`))

type otpEmailData struct {
	Name     string
	Code     string
	Resend   bool
	ValidFor string
}

type verificationEmailData struct {
	Name string
	Link string
}

type passwordResetEmailData struct {
	Name     string
	Link     string
	Token    string
	ValidFor string
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func displayName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}

// humanDuration renders whole minutes and hours the way users read them.
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
