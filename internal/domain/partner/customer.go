package partner

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// ClientsField is the array of the store document holding customers
const ClientsField = "clients"

// Customer is a client of a store, embedded in the store document
type Customer struct {
	ID        string `bson:"id" json:"id"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Username  string `bson:"username" json:"username"`
	Document  string `bson:"document" json:"document"`
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}

// RegisterCustomerRequest is the payload of a new customer
type RegisterCustomerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Username  string `json:"username" validate:"max=50"`
	Document  string `json:"document" validate:"max=50"`
}

// NewCustomer validates req and builds a customer
func NewCustomer(req RegisterCustomerRequest, clock shared.Clock) (*Customer, error) {
	if err := shared.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	c := &Customer{
		ID:        shared.NewID(),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Username:  strings.TrimSpace(req.Username),
		Document:  strings.TrimSpace(req.Document),
		CreatedAt: shared.Timestamp(clock()),
	}
	if c.FirstName == "" || c.LastName == "" {
		return nil, shared.NewValidationError(shared.ErrInvalidInput.Code, "firstName", "Name cannot be blank")
	}
	return c, nil
}

// FullName returns first and last name joined by a space
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Store is the tenant document. Debts, clients and room backlinks live in
// arrays of the same document and are only written through $push, $pull
// and positional $set.
type Store struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}

// NewStore builds a store document
func NewStore(id, name string, clock shared.Clock) (*Store, error) {
	if clock == nil {
		clock = shared.SystemClock
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = shared.NewID()
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, shared.NewValidationError("INVALID_NAME", "name", "Store name must have at least 2 characters")
	}
	return &Store{ID: id, Name: name, CreatedAt: shared.Timestamp(clock())}, nil
}
