package pelicula

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ockendenjo/pelicula/internal/handler"
	"github.com/ockendenjo/pelicula/internal/store"
)

const envKeyTableName = "TABLE_NAME"

// Writer persists one item, replacing any item with the same key.
type Writer interface {
	Put(ctx context.Context, table string, item any) (store.PutResult, error)
}

// Creator assigns identifiers and writes records. It holds no per-request state
// and is shared by concurrent invocations.
type Creator struct {
	writer    Writer
	tableName func() (string, error)
	newID     func() string
}

func NewCreator(writer Writer) *Creator {
	return &Creator{
		writer:    writer,
		tableName: tableNameFromEnv,
		newID:     uuid.NewString,
	}
}

func tableNameFromEnv() (string, error) {
	name, ok := handler.LookupEnv(envKeyTableName)
	if !ok {
		return "", &ConfigError{Key: envKeyTableName}
	}
	return name, nil
}

// Create writes a new record for req with a freshly generated id. The write is
// unconditional.
func (c *Creator) Create(ctx context.Context, req CreationRequest) (Record, store.PutResult, error) {
	table, err := c.tableName()
	if err != nil {
		return Record{}, store.PutResult{}, err
	}

	record := Record{
		TenantID: req.TenantID,
		ID:       c.newID(),
		Payload:  req.Payload,
	}

	res, err := c.writer.Put(ctx, table, record)
	if err != nil {
		return Record{}, store.PutResult{}, fmt.Errorf("guardar película: %w", err)
	}
	return record, res, nil
}
