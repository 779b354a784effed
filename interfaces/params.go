package interfaces

import "context"

type ParameterStore interface {
	GetParameter(ctx context.Context, name string, decrypt bool) (string, error)
	PutParameter(ctx context.Context, name, value string, secure bool) error
	DeleteParameter(ctx context.Context, name string) error
}
