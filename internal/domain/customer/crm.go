package customer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/crm"
)

// ContactClient is the subset of the CRM client the directory needs.
type ContactClient interface {
	GetContact(ctx context.Context, key string) (*crm.Contact, error)
	SaveContact(ctx context.Context, contact crm.Contact) (int64, error)
}

// CRMDirectory serves customers from the restaurant CRM. The CRM contact
// number is the customer id; the CRM has no notion of restaurants, so the
// restaurant id of the request is carried through unchanged.
type CRMDirectory struct {
	client ContactClient
}

func NewCRMDirectory(client ContactClient) *CRMDirectory {
	return &CRMDirectory{client: client}
}

func (d *CRMDirectory) GetCustomer(ctx context.Context, id, restaurantID int64) (*Customer, error) {
	contact, err := d.client.GetContact(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, crmErr(err)
	}
	if contact == nil {
		return nil, nil
	}
	return fromContact(contact, restaurantID), nil
}

func (d *CRMDirectory) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	for _, key := range []string{c.Phone, c.Email} {
		if key == "" {
			continue
		}
		existing, err := d.client.GetContact(ctx, key)
		if err != nil {
			return nil, crmErr(err)
		}
		if existing != nil {
			return nil, ErrCustomerExists
		}
	}

	id, err := d.client.SaveContact(ctx, toContact(c, 0))
	if err != nil {
		return nil, crmErr(err)
	}
	out := *c
	out.ID = id
	return &out, nil
}

func (d *CRMDirectory) UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	existing, err := d.client.GetContact(ctx, strconv.FormatInt(c.ID, 10))
	if err != nil {
		return nil, crmErr(err)
	}
	if existing == nil {
		return nil, ErrCustomerNotFound
	}
	if _, err := d.client.SaveContact(ctx, toContact(c, c.ID)); err != nil {
		return nil, crmErr(err)
	}
	out := *c
	return &out, nil
}

func toContact(c *Customer, number int64) crm.Contact {
	return crm.Contact{Number: number, Name: c.Name, Phone: c.Phone, Email: c.Email}
}

func fromContact(contact *crm.Contact, restaurantID int64) *Customer {
	return &Customer{
		ID:           contact.Number,
		RestaurantID: restaurantID,
		Name:         contact.Name,
		Email:        contact.Email,
		Phone:        contact.Phone,
	}
}

func crmErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDirectoryFailure, err)
}
