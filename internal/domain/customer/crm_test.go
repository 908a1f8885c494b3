package customer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/loyaltyhub/loyalty-api/internal/domain/customer"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/crm"
)

type fakeCRM struct {
	contacts map[string]*crm.Contact
	saved    []crm.Contact
	nextID   int64
	err      error
}

func (f *fakeCRM) GetContact(_ context.Context, key string) (*crm.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts[key], nil
}

func (f *fakeCRM) SaveContact(_ context.Context, c crm.Contact) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, c)
	if c.Number != 0 {
		return c.Number, nil
	}
	f.nextID++
	return f.nextID, nil
}

func TestCRMDirectoryGetCustomer(t *testing.T) {
	client := &fakeCRM{contacts: map[string]*crm.Contact{
		"12": {Number: 12, Name: "Aida", Phone: "77015550101"},
	}}
	dir := customer.NewCRMDirectory(client)

	c, err := dir.GetCustomer(context.Background(), 12, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.ID != 12 || c.RestaurantID != 7 || c.Name != "Aida" {
		t.Fatalf("unexpected customer %+v", c)
	}

	missing, err := dir.GetCustomer(context.Background(), 13, 7)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for unknown customer, got %+v, %v", missing, err)
	}
}

func TestCRMDirectoryFailureIsWrapped(t *testing.T) {
	dir := customer.NewCRMDirectory(&fakeCRM{err: crm.ErrTimeout})

	_, err := dir.GetCustomer(context.Background(), 1, 1)
	if !errors.Is(err, customer.ErrDirectoryFailure) || !errors.Is(err, crm.ErrTimeout) {
		t.Fatalf("expected wrapped directory failure, got %v", err)
	}
}

func TestCRMDirectoryCreateRejectsKnownPhone(t *testing.T) {
	client := &fakeCRM{contacts: map[string]*crm.Contact{
		"77015550101": {Number: 12, Phone: "77015550101"},
	}}
	dir := customer.NewCRMDirectory(client)

	_, err := dir.CreateCustomer(context.Background(), &customer.Customer{RestaurantID: 7, Name: "B", Phone: "77015550101"})
	if !errors.Is(err, customer.ErrCustomerExists) {
		t.Fatalf("expected ErrCustomerExists, got %v", err)
	}
	if len(client.saved) != 0 {
		t.Fatalf("expected no save, got %d", len(client.saved))
	}
}

func TestCRMDirectoryCreateAndUpdate(t *testing.T) {
	client := &fakeCRM{contacts: map[string]*crm.Contact{}, nextID: 100}
	dir := customer.NewCRMDirectory(client)

	created, err := dir.CreateCustomer(context.Background(), &customer.Customer{RestaurantID: 7, Name: "Aida", Email: "aida@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 101 || client.saved[0].Number != 0 {
		t.Fatalf("unexpected create result %+v, saved %+v", created, client.saved)
	}

	if _, err := dir.UpdateCustomer(context.Background(), &customer.Customer{ID: 101, RestaurantID: 7, Name: "A"}); !errors.Is(err, customer.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound before the contact is visible, got %v", err)
	}

	client.contacts["101"] = &crm.Contact{Number: 101, Name: "Aida"}
	updated, err := dir.UpdateCustomer(context.Background(), &customer.Customer{ID: 101, RestaurantID: 7, Name: "Aida K"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Aida K" || client.saved[1].Number != 101 {
		t.Fatalf("unexpected update %+v, saved %+v", updated, client.saved)
	}
}
