package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// RegisterVectorTypes makes every pooled connection understand the vector column type
func RegisterVectorTypes(poolConfig *pgxpool.Config) {
	next := poolConfig.AfterConnect
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if next != nil {
			if err := next(ctx, conn); err != nil {
				return err
			}
		}
		return pgxvec.RegisterTypes(ctx, conn)
	}
}
