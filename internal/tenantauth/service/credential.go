package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
)

// collection adapts one store collection to the shared lookup, save and
// listing rules so Account, Client, User and Signal behave identically.
type collection[T any] struct {
	label  string // "Account", used in error messages
	of     func(store.Store) store.Collection[T]
	entity func(*T) *domain.Entity
}

func (c collection[T]) load(ctx context.Context, st store.Store, id string) (*T, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ValidationError("Invalid %s id", strings.ToLower(c.label))
	}
	e, err := c.of(st).Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFoundError("%s not found", c.label)
		}
		return nil, domain.PersistenceError(err, "load %s", strings.ToLower(c.label))
	}
	return e, nil
}

func (c collection[T]) save(ctx context.Context, st store.Store, e *T) error {
	return saveError(c.label, c.of(st).Save(ctx, e))
}

func saveError(label string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.Conflict("%s already exists", label)
	case errors.Is(err, store.ErrNotFound):
		return domain.ValidationError("%s references a missing record", label)
	default:
		return domain.PersistenceError(err, "save %s", strings.ToLower(label))
	}
}

// list applies the shared listing contract: enabled only unless told
// otherwise, newest first, and a paging block unless All is set.
func (c collection[T]) list(ctx context.Context, st store.Store, p domain.ListParams) (*domain.Page[*T], error) {
	crit := store.Criteria{Enabled: p.EnabledFilter(), Fields: p.Filters}
	coll := c.of(st)

	if p.All {
		results, err := coll.Find(ctx, crit, store.Window{All: true})
		if err != nil {
			return nil, c.listError(err)
		}
		return &domain.Page[*T]{Results: nonNil(results)}, nil
	}

	offset, limit := p.Window()
	total, err := coll.Count(ctx, crit)
	if err != nil {
		return nil, c.listError(err)
	}
	results, err := coll.Find(ctx, crit, store.Window{Offset: offset, Limit: limit})
	if err != nil {
		return nil, c.listError(err)
	}
	return &domain.Page[*T]{
		Results: nonNil(results),
		Paging:  domain.NewPaging(offset, limit, total),
	}, nil
}

func (c collection[T]) listError(err error) error {
	if errors.Is(err, store.ErrUnknownField) {
		return domain.ValidationError("Invalid filter: %v", err)
	}
	return domain.PersistenceError(err, "list %s", strings.ToLower(c.label))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// mapPage converts listed entities into their export views.
func mapPage[T, V any](p *domain.Page[T], view func(T) (V, error)) (*domain.Page[V], error) {
	out := &domain.Page[V]{Results: make([]V, 0, len(p.Results)), Paging: p.Paging}
	for _, e := range p.Results {
		v, err := view(e)
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, v)
	}
	return out, nil
}

// credential extends collection with the permission registry so the update
// path is written once for every credential-bearing entity.
type credential[T any, P ~int] struct {
	collection[T]
	registry domain.Registry[P]
	perm     func(*T) *P
}

// apply validates in and then applies it to e. A rejected update never
// touches e.
func (k credential[T, P]) apply(e *T, in domain.CommonAttrs, caller *domain.Caller, now time.Time) error {
	var code P
	if in.Permission != nil {
		c, err := k.registry.Code(*in.Permission)
		if err != nil {
			return err
		}
		code = c
	}

	base := k.entity(e)
	if in.Permission != nil {
		*k.perm(e) = code
	}
	if in.Enabled != nil {
		base.Enabled = *in.Enabled
	}
	if in.ExternalID != nil {
		base.ExternalID = *in.ExternalID
	}
	if in.Extensors != nil {
		base.Extensors = in.Extensors
	}
	base.History.Stamp(caller, now)
	return nil
}

// setEnabled is the enable/disable transition: an update, never a delete.
func (k credential[T, P]) setEnabled(ctx context.Context, st store.Store, id string, enabled bool, caller *domain.Caller) (*T, error) {
	e, err := k.load(ctx, st, id)
	if err != nil {
		return nil, err
	}
	if err := k.apply(e, domain.CommonAttrs{Enabled: &enabled}, caller, time.Now()); err != nil {
		return nil, err
	}
	if err := k.save(ctx, st, e); err != nil {
		return nil, err
	}
	return e, nil
}

// validateName rejects an explicitly blank name.
func validateName(name *string) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return domain.ValidationError("Invalid name")
	}
	return nil
}
