package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	baseURL      string

	templates map[string]*template.Template
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

const EMAIL_SVC = "email_svc"

const appName = "Teensha"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	svc.baseURL = os.Getenv("BASE_URL")

	// Set defaults if not provided
	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = appName
	}
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:3000"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	if err := svc.loadTemplates(); err != nil {
		log.WithError(err).Error("Failed to load email templates")
		return err
	}
	if svc.send == nil {
		svc.send = smtp.SendMail
	}
	return nil
}

const emailLayoutHTML = `
{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}} - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #7C3AED; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .button { display: inline-block; padding: 12px 24px; background-color: #7C3AED; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .note { background-color: #FEF3C7; border-left: 4px solid #D97706; padding: 10px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Subject}}</h1></div>
        <div class="content">
            <h2>Hi {{.Name}},</h2>
            {{template "body" .}}
            {{if .ActionURL}}<a href="{{.ActionURL}}" class="button">Open {{.AppName}}</a>{{end}}
        </div>
        <div class="footer"><p>&copy; {{.AppName}}. You get these emails because you joined a monthly challenge.</p></div>
    </div>
</body>
</html>{{end}}`

var emailBodies = map[string]string{
	"challenge_published": `{{define "body"}}
            <p>A new monthly challenge is live: <strong>{{.Title}}</strong>{{if .Theme}} ({{.Theme}}){{end}}.</p>
            {{.DescriptionHTML}}
            <p>Finish every task to earn this month's badge.</p>{{end}}`,
	"badge_earned": `{{define "body"}}
            <p>You earned the <strong>{{.Title}}</strong> badge. Nice work!</p>
            <p>Every badge you hold this year brings you closer to the end-of-year raffle.</p>{{end}}`,
	"raffle_eligible": `{{define "body"}}
            <p>You now hold all twelve badges of {{.Year}} and are entered into the {{.Year}} raffle.</p>{{end}}`,
	"raffle_winner": `{{define "body"}}
            <p>Congratulations! You won the {{.Year}} raffle. Our team will contact you about your prize.</p>{{end}}`,
	"submission_rejected": `{{define "body"}}
            <p>Your submission for <strong>{{.Title}}</strong> needs another look.</p>
            {{if .Note}}<div class="note">{{.Note}}</div>{{end}}
            <p>You can resubmit while the challenge is open.</p>{{end}}`,
}

// EmailData feeds every notification template. Unused fields are left empty.
type EmailData struct {
	AppName         string
	Subject         string
	Name            string
	Title           string
	Theme           string
	DescriptionHTML template.HTML
	Note            string
	Year            int
	ActionURL       string
}

func (svc *EmailService) loadTemplates() error {
	svc.templates = make(map[string]*template.Template, len(emailBodies))
	for name, body := range emailBodies {
		tmpl, err := template.New(name).Parse(emailLayoutHTML)
		if err != nil {
			return fmt.Errorf("failed to parse email layout: %v", err)
		}
		if _, err := tmpl.Parse(body); err != nil {
			return fmt.Errorf("failed to parse %s email template: %v", name, err)
		}
		svc.templates[name] = tmpl
	}
	return nil
}

func (svc *EmailService) Enabled() bool {
	return svc.smtpHost != ""
}

func (svc *EmailService) SendChallengePublishedEmail(to, name, title, theme string, description template.HTML) error {
	return svc.sendTemplateEmail(to, "challenge_published", EmailData{
		Subject:         "New challenge: " + title,
		Name:            name,
		Title:           title,
		Theme:           theme,
		DescriptionHTML: description,
		ActionURL:       svc.baseURL + "/challenges",
	})
}

func (svc *EmailService) SendBadgeEarnedEmail(to, name, badgeName string) error {
	return svc.sendTemplateEmail(to, "badge_earned", EmailData{
		Subject:   "Badge earned",
		Name:      name,
		Title:     badgeName,
		ActionURL: svc.baseURL + "/badges",
	})
}

func (svc *EmailService) SendRaffleEligibleEmail(to, name string, year int) error {
	return svc.sendTemplateEmail(to, "raffle_eligible", EmailData{
		Subject: fmt.Sprintf("You're in the %d raffle", year),
		Name:    name,
		Year:    year,
	})
}

func (svc *EmailService) SendRaffleWinnerEmail(to, name string, year int) error {
	return svc.sendTemplateEmail(to, "raffle_winner", EmailData{
		Subject: fmt.Sprintf("You won the %d raffle", year),
		Name:    name,
		Year:    year,
	})
}

func (svc *EmailService) SendSubmissionRejectedEmail(to, name, taskTitle, note string) error {
	return svc.sendTemplateEmail(to, "submission_rejected", EmailData{
		Subject:   "Your submission needs changes",
		Name:      name,
		Title:     taskTitle,
		Note:      note,
		ActionURL: svc.baseURL + "/challenges",
	})
}

func (svc *EmailService) render(templateName string, data EmailData) (string, error) {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	data.AppName = appName
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute template: %v", err)
	}
	return body.String(), nil
}

func (svc *EmailService) sendTemplateEmail(to, templateName string, data EmailData) error {
	if !svc.Enabled() {
		log.WithField("template", templateName).Debug("SMTP not configured, skipping email")
		return nil
	}

	body, err := svc.render(templateName, data)
	if err != nil {
		return err
	}
	return svc.sendEmail(to, data.Subject+" - "+appName, body)
}

// Send email using SMTP
func (svc *EmailService) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := svc.send(svc.smtpHost+":"+svc.smtpPort, auth, svc.fromEmail, []string{to}, msg)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent successfully")
	return nil
}
