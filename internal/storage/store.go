// Package storage persists templates and payment methods.
package storage

import (
	"context"
	"errors"

	"saldo/internal/core"
)

var ErrNotFound = errors.New("not found")

// Store is the repository the services read snapshots from and write
// single entities to. Revision increases on every successful write so
// callers can tell whether a cached projection is stale.
type Store interface {
	GetTemplate(ctx context.Context, id string) (core.Template, error)
	UpsertTemplate(ctx context.Context, t core.Template) error
	DeleteTemplate(ctx context.Context, id string) error
	// ListTemplates returns templates in insertion order.
	ListTemplates(ctx context.Context) ([]core.Template, error)

	GetPaymentMethod(ctx context.Context, name string) (core.PaymentMethod, error)
	UpsertPaymentMethod(ctx context.Context, pm core.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, name string) error
	ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error)

	Revision(ctx context.Context) (int64, error)
	Close() error
}

// DefaultPaymentMethods are present in every new store.
func DefaultPaymentMethods() []core.PaymentMethod {
	return []core.PaymentMethod{
		{Name: "DINHEIRO"},
		{Name: "PIX"},
	}
}
