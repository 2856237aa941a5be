package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Address is one mail recipient or sender.
type Address struct {
	Name string
	Addr string
}

// AddressSource resolves user ids to mail addresses. Users without an
// address are simply absent from the result.
type AddressSource interface {
	EmailAddresses(ctx context.Context, userIDs []string) ([]Address, error)
}

// StaticAddresses is an AddressSource backed by a fixed map.
type StaticAddresses map[string]Address

func (s StaticAddresses) EmailAddresses(ctx context.Context, userIDs []string) ([]Address, error) {
	addresses := []Address{}
	for _, userID := range userIDs {
		if address, found := s[userID]; found {
			addresses = append(addresses, address)
		}
	}
	return addresses, nil
}

// MailNotifier delivers notifications by mail through SendGrid.
type MailNotifier struct {
	APIKey    string
	From      Address
	Addresses AddressSource
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (m *MailNotifier) Send(ctx context.Context, userIDs []string, n Notification) error {
	addresses, err := m.Addresses.EmailAddresses(ctx, userIDs)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}

	msg := mail.NewV3Mail()
	msg.Subject = n.Title
	msg.AddContent(mail.NewContent("text/plain", n.Body))
	msg.SetFrom(mail.NewEmail(m.From.Name, m.From.Addr))
	for _, address := range addresses {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail(address.Name, address.Addr))
		msg.AddPersonalizations(p)
	}

	client := sendgrid.NewSendClient(m.APIKey)
	if m.HTTPClient != nil {
		sendgrid.DefaultClient = &rest.Client{HTTPClient: m.HTTPClient}
	}
	resp, err := client.Send(msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
