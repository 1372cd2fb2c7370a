package mailer

import "html/template"

// Template keys understood by the email channel.
const (
	TemplateSubscriptionActivated     = "subscription_activated"
	TemplateSubscriptionRenewed       = "subscription_renewed"
	TemplateSubscriptionPaymentFailed = "subscription_payment_failed"
	TemplateSubscriptionCancelled     = "subscription_cancelled"
	TemplateSubscriptionExpired       = "subscription_expired"
	TemplateSubscriptionReminder      = "subscription_reminder"
)

const layoutTemplate = `{{define "layout"}}<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;color:#1f2933;">
  <div style="max-width:560px;margin:32px auto;background:#ffffff;border-radius:8px;padding:32px;">
    <h2 style="margin-top:0;">{{.Title}}</h2>
    {{.Content}}
    {{with index .Data "action_url"}}<p><a href="{{.}}" style="background:#2563eb;color:#ffffff;padding:10px 20px;text-decoration:none;border-radius:5px;display:inline-block;">Manage subscription</a></p>{{end}}
  </div>
  <p style="text-align:center;font-size:12px;color:#7b8794;">&copy; {{.Year}} {{.AppName}}</p>
</body>
</html>{{end}}`

const contentTemplates = `
{{define "subscription_activated"}}<p>Hi {{.full_name}},</p>
<p>Your <strong>{{.plan_name}}</strong> subscription is now active. The next billing date is {{.next_billing_date}}.</p>{{end}}

{{define "subscription_renewed"}}<p>Hi {{.full_name}},</p>
<p>Your <strong>{{.plan_name}}</strong> subscription has been renewed and now runs until {{.expires_at}}.</p>{{end}}

{{define "subscription_payment_failed"}}<p>Hi {{.full_name}},</p>
<p>We could not process the payment for your <strong>{{.plan_name}}</strong> subscription.</p>
{{with .reason}}<p>Reason: {{.}}</p>{{end}}
<p>Please update your payment method to keep your benefits.</p>{{end}}

{{define "subscription_cancelled"}}<p>Hi {{.full_name}},</p>
<p>Your <strong>{{.plan_name}}</strong> subscription has been cancelled. We are sorry to see you go.</p>{{end}}

{{define "subscription_expired"}}<p>Hi {{.full_name}},</p>
<p>Your <strong>{{.plan_name}}</strong> subscription expired on {{.expires_at}}. Renew any time to restore access.</p>{{end}}

{{define "subscription_reminder"}}<p>Hi {{.full_name}},</p>
<p>Your <strong>{{.plan_name}}</strong> subscription expires in {{.days_until_expiration}} day(s), on {{.expires_at}}.</p>{{end}}
`

func parseTemplates() *template.Template {
	t := template.Must(template.New("mail").Option("missingkey=zero").Parse(layoutTemplate))
	return template.Must(t.Parse(contentTemplates))
}
