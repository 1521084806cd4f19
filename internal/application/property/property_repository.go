// Package property holds the rental property workflows. A property lives
// in its own collection and is linked from the owning store's rooms array.
package property

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PropertyRepository reads and writes properties of the actor's store
type PropertyRepository struct {
	settings saga.Settings
	logger   *zap.Logger
}

// NewPropertyRepository creates a new PropertyRepository
func NewPropertyRepository(settings saga.Settings, logger *zap.Logger) *PropertyRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyRepository{settings: settings, logger: logger}
}

func ownedBy(ac app.Context, id string) docstore.Filter {
	return docstore.Filter{"id": id, "owner": ac.Actor.StoreID}
}

// Get returns a property owned by the actor's store
func (r *PropertyRepository) Get(ctx context.Context, ac app.Context, id string) (*property.Property, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var p property.Property
	err := ac.Collection(docstore.Properties).FindOne(ctx, ownedBy(ac, id), &p)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Property not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load property", err)
	}
	return &p, nil
}

// GetAll lists the properties owned by the actor's store
func (r *PropertyRepository) GetAll(ctx context.Context, ac app.Context, filter property.Filter) ([]property.Property, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	f := docstore.Filter{"owner": ac.Actor.StoreID}
	if filter.Type != "" {
		f["type"] = filter.Type
	}
	if filter.Status != "" {
		f["status"] = filter.Status
	}

	properties := []property.Property{}
	if err := ac.Collection(docstore.Properties).Find(ctx, f, &properties); err != nil {
		return nil, shared.NewPersistenceError("list properties", err)
	}
	return properties, nil
}

// Register creates a property and links it from the owning store
func (r *PropertyRepository) Register(ctx context.Context, ac app.Context, in property.Input) (*property.Property, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "property", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID))
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := in.ValidateForCreate(); err != nil {
		return nil, err
	}

	p := property.NewPropertyDraft(ac.Actor, r.settings.Now)
	m := property.NewMutator(p)
	if err := m.Apply(in); err != nil {
		return nil, err
	}
	if in.Description != nil {
		m.SetDescription(*in.Description)
	}

	properties := ac.Collection(docstore.Properties)
	stores := ac.Collection(docstore.Stores)
	err := r.settings.New("property.register", r.logger, ac.Actor.StoreID).Add(
		saga.Step{
			Name:    "insert_property",
			Forward: func(ctx context.Context) error { return properties.InsertOne(ctx, p) },
			Inverse: func(ctx context.Context) error {
				_, err := properties.DeleteOne(ctx, docstore.Filter{"id": p.ID})
				return err
			},
			CompensateOnFailure: true,
		},
		saga.Step{
			Name: "link_room",
			Forward: func(ctx context.Context) error {
				res, err := stores.UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
					Push: map[string]any{property.RoomsField: p.Link()},
				})
				if err != nil {
					return err
				}
				if res.Matched == 0 {
					return shared.NewNotFoundError("Store not found")
				}
				return nil
			},
			Inverse: func(ctx context.Context) error {
				_, err := stores.UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
					Pull: map[string]docstore.Filter{property.RoomsField: {"id": p.ID}},
				})
				return err
			},
			CompensateOnFailure: true,
		},
	).Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register property", err)
	}

	r.logger.Info("property registered",
		zap.String("property_id", p.ID),
		zap.String("store_id", ac.Actor.StoreID),
	)
	return p, nil
}

// Update applies in to a property of the actor's store. A failed write
// re-persists the property as it was.
func (r *PropertyRepository) Update(ctx context.Context, ac app.Context, id string, in property.Input) (*property.Property, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "property", "update",
		telemetry.WithAttribute(telemetry.SpanAttrPropertyID, id))
	defer span.End()

	original, err := r.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	updated := original.Clone()
	m := property.NewMutator(updated)
	if in.Description != nil {
		m.SetDescription(*in.Description)
	}
	if err := m.Apply(in); err != nil {
		return nil, err
	}

	properties := ac.Collection(docstore.Properties)
	write := func(p *property.Property) func(context.Context) error {
		return func(ctx context.Context) error {
			res, err := properties.UpdateOne(ctx, ownedBy(ac, p.ID), docstore.Update{Set: propertyFields(p)})
			if err != nil {
				return err
			}
			if res.Matched == 0 {
				return shared.NewNotFoundError("Property not found")
			}
			return nil
		}
	}

	err = r.settings.New("property.update", r.logger, ac.Actor.StoreID).Add(saga.Step{
		Name:                "set_property",
		Forward:             write(updated),
		Inverse:             write(original),
		CompensateOnFailure: true,
	}).Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("update property", err)
	}
	return updated, nil
}

func propertyFields(p *property.Property) map[string]any {
	return map[string]any{
		"name":         p.Name,
		"description":  p.Description,
		"type":         p.Type,
		"address":      p.Address,
		"price":        p.Price,
		"amenities":    p.Amenities,
		"bedroom":      p.Bedroom,
		"images":       p.Images,
		"availability": p.Availability,
		"status":       p.Status,
	}
}
