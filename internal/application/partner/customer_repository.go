package partner

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// storeClients is the projection of a store document holding its clients
type storeClients struct {
	Clients []partner.Customer `bson:"clients"`
}

// CustomerRepository manages the clients embedded in the store document
type CustomerRepository struct {
	logger *zap.Logger
	clock  shared.Clock
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(logger *zap.Logger, clock shared.Clock) *CustomerRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &CustomerRepository{logger: logger, clock: clock}
}

// Get returns a client of the actor's store
func (r *CustomerRepository) Get(ctx context.Context, ac app.Context, id string) (*partner.Customer, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var doc storeClients
	err := ac.Collection(docstore.Stores).FindOne(ctx, docstore.Filter{"id": ac.Actor.StoreID, partner.ClientsField + ".id": id}, &doc)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Customer not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load customer", err)
	}
	for i := range doc.Clients {
		if doc.Clients[i].ID == id {
			return &doc.Clients[i], nil
		}
	}
	return nil, shared.NewNotFoundError("Customer not found")
}

// GetAll lists the clients of the actor's store
func (r *CustomerRepository) GetAll(ctx context.Context, ac app.Context) ([]partner.Customer, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var doc storeClients
	err := ac.Collection(docstore.Stores).FindOne(ctx, ac.StoreFilter(), &doc)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Store not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("list customers", err)
	}
	if doc.Clients == nil {
		return []partner.Customer{}, nil
	}
	return doc.Clients, nil
}

// Register adds a client to the actor's store
func (r *CustomerRepository) Register(ctx context.Context, ac app.Context, req partner.RegisterCustomerRequest) (*partner.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID))
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	customer, err := partner.NewCustomer(req, r.clock)
	if err != nil {
		return nil, err
	}

	res, err := ac.Collection(docstore.Stores).UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
		Push: map[string]any{partner.ClientsField: customer},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register customer", err)
	}
	if res.Matched == 0 {
		return nil, shared.NewNotFoundError("Store not found")
	}

	r.logger.Info("customer registered",
		zap.String("customer_id", customer.ID),
		zap.String("store_id", ac.Actor.StoreID),
	)
	return customer, nil
}

// StoreRepository manages store documents
type StoreRepository struct {
	clock shared.Clock
}

// NewStoreRepository creates a new StoreRepository
func NewStoreRepository(clock shared.Clock) *StoreRepository {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &StoreRepository{clock: clock}
}

// storeDocument is a new store with its embedded arrays initialised
type storeDocument struct {
	Store       partner.Store `bson:",inline"`
	UnpaidSales []any         `bson:"unpaid-sales"`
	Clients     []any         `bson:"clients"`
	Rooms       []any         `bson:"rooms"`
}

// Register creates a store document
func (r *StoreRepository) Register(ctx context.Context, store docstore.Store, id, name string) (*partner.Store, error) {
	s, err := partner.NewStore(id, name, r.clock)
	if err != nil {
		return nil, err
	}
	doc := storeDocument{Store: *s, UnpaidSales: []any{}, Clients: []any{}, Rooms: []any{}}
	if err := store.Collection(docstore.Stores).InsertOne(ctx, doc); err != nil {
		return nil, shared.NewPersistenceError("register store", err)
	}
	return s, nil
}

// Get returns the actor's store
func (r *StoreRepository) Get(ctx context.Context, ac app.Context) (*partner.Store, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var s partner.Store
	err := ac.Collection(docstore.Stores).FindOne(ctx, ac.StoreFilter(), &s)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Store not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load store", err)
	}
	return &s, nil
}
