// Package cli implements ragctl, the command line client for ingestion and querying.
package cli

import (
	"context"
	"errors"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type IngestionUsecase interface {
	IngestFile(ctx context.Context, path string) (*entity.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type RagUsecase interface {
	Query(ctx context.Context, req entity.QueryRequest) (*entity.RagAnswer, error)
}

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Services are the components the commands drive
type Services struct {
	Ingestion IngestionUsecase
	Rag       RagUsecase
	Index     Counter
	// Logger, when set, travels in every command's context
	Logger *zap.Logger
}

// Factory builds the services for an environment. The returned func releases them.
type Factory func(ctx context.Context, env string) (Services, func(), error)

type app struct {
	factory  Factory
	env      string
	services Services
	closer   func()
}

// Execute runs ragctl and releases the services even when a command fails
func Execute(factory Factory) error {
	a := &app{factory: factory}
	defer a.close()
	return a.rootCommand().Execute()
}

// NewRootCommand returns the ragctl command tree
func NewRootCommand(factory Factory) *cobra.Command {
	return (&app{factory: factory}).rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "ragctl",
		Short:        "Ingest documents and query the retrieval index",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if a.services.Logger != nil {
				ctx := ctxzap.ToContext(cmd.Context(), a.services.Logger.With(zap.String("command", cmd.Name())))
				cmd.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.env, "env", "local", "environment whose .env file is loaded")

	root.AddCommand(
		a.ingestCommand(),
		a.queryCommand(),
		a.deleteCommand(),
		a.countCommand(),
	)

	return root
}

func (a *app) open(ctx context.Context) error {
	if a.factory == nil {
		return errors.New("services not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	services, closer, err := a.factory(ctx, a.env)
	if err != nil {
		return err
	}
	a.services = services
	a.closer = closer
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer()
		a.closer = nil
	}
}
