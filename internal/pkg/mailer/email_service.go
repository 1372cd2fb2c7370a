package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	// Send renders templateKey with data and delivers it as an HTML email.
	Send(toEmail, subject, templateKey string, data map[string]interface{}) error
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      Dialer
	senderEmail string
	senderName  string
	appName     string
	templates   *template.Template
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	return NewEmailServiceWithDialer(gomail.NewDialer(host, port, username, password), senderEmail, senderName)
}

func NewEmailServiceWithDialer(d Dialer, senderEmail, senderName string) IEmailService {
	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		appName:     senderName,
		templates:   parseTemplates(),
	}
}

func (s *emailService) Send(toEmail, subject, templateKey string, data map[string]interface{}) error {
	body, err := s.render(subject, templateKey, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %q to %s: %w", templateKey, toEmail, err)
	}
	return nil
}

type layoutData struct {
	Title   string
	AppName string
	Year    int
	Data    map[string]interface{}
}

func (s *emailService) render(subject, templateKey string, data map[string]interface{}) (string, error) {
	if s.templates.Lookup(templateKey) == nil {
		return "", fmt.Errorf("unknown email template %q", templateKey)
	}

	var content bytes.Buffer
	if err := s.templates.ExecuteTemplate(&content, templateKey, data); err != nil {
		return "", fmt.Errorf("render %q: %w", templateKey, err)
	}

	var page bytes.Buffer
	err := s.templates.ExecuteTemplate(&page, "layout", struct {
		layoutData
		Content template.HTML
	}{
		layoutData: layoutData{Title: subject, AppName: s.appName, Year: time.Now().Year(), Data: data},
		// content was produced by html/template and is already escaped
		Content: template.HTML(content.String()),
	})
	if err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return page.String(), nil
}
