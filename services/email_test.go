package services

import (
	"net/smtp"
	"strings"
	"testing"
)

func newTestEmailService(t *testing.T) (*EmailService, *[]string) {
	t.Helper()
	var sent []string
	svc := &EmailService{
		smtpHost:  "smtp.example.com",
		smtpPort:  "587",
		fromEmail: "hello@teensha.app",
		fromName:  appName,
		baseURL:   "https://teensha.app",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			sent = append(sent, string(msg))
			return nil
		},
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc, &sent
}

func TestEmailTemplatesRender(t *testing.T) {
	svc, _ := newTestEmailService(t)
	for name := range emailBodies {
		body, err := svc.render(name, EmailData{Subject: "Subject", Name: "Ayo", Title: "Budget Boss", Year: 2025})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !strings.Contains(body, "Hi Ayo,") {
			t.Errorf("%s: greeting missing", name)
		}
	}
}

func TestSendSubmissionRejectedEmailEscapesNote(t *testing.T) {
	svc, sent := newTestEmailService(t)
	if err := svc.SendSubmissionRejectedEmail("ayo@example.com", "Ayo", "Track your spending", "<b>add a photo</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(*sent))
	}
	msg := (*sent)[0]
	if !strings.Contains(msg, "To: ayo@example.com") || !strings.Contains(msg, "Track your spending") {
		t.Errorf("unexpected message %q", msg)
	}
	if strings.Contains(msg, "<b>add a photo</b>") {
		t.Error("note was not escaped")
	}
}

func TestEmailSkippedWithoutSMTP(t *testing.T) {
	svc, sent := newTestEmailService(t)
	svc.smtpHost = ""
	if err := svc.SendRaffleWinnerEmail("ayo@example.com", "Ayo", 2025); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("sent %d emails without SMTP", len(*sent))
	}
}
