package floorwatch

import (
	"log"

	"gopkg.in/gomail.v2"
)

// Notifier delivers one alert to the operator channel.
type Notifier interface {
	Notify(subject string, body string) error
}

// LogNotifier writes alerts to the process log. It is the fallback
// when no SMTP host is configured.
type LogNotifier struct{}

func (n *LogNotifier) Notify(subject string, body string) error {
	log.Printf("ALERT: %s: %s", subject, body)
	return nil
}

// SmtpNotifier delivers alerts by email.
type SmtpNotifier struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

func NewSmtpNotifier(host string, port int, user string, password string, from string, to []string) *SmtpNotifier {
	return &SmtpNotifier{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

func (n *SmtpNotifier) Notify(subject string, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(n.host, n.port, n.user, n.password)
	return d.DialAndSend(m)
}
