package main

import (
	"context"
	"os"

	"github.com/erkion1127/ds-ai2/internal/builder"
	"github.com/erkion1127/ds-ai2/internal/cli"
)

func main() {
	err := cli.Execute(func(ctx context.Context, env string) (cli.Services, func(), error) {
		core, err := builder.BuildCore(ctx, env)
		if err != nil {
			return cli.Services{}, nil, err
		}
		return cli.Services{
			Ingestion: core.Ingestion,
			Rag:       core.Rag,
			Index:     core.Index,
			Logger:    core.Logger,
		}, core.Close, nil
	})
	if err != nil {
		os.Exit(1)
	}
}
