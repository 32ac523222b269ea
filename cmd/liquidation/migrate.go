package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
)

func migrateCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	if cfg.Database.Driver == "none" {
		return fmt.Errorf("%w: DB_DRIVER=none has nothing to migrate", common.ErrInvalidInput)
	}
	// opening a store applies its pending migrations
	_, closeRepo, err := openRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	closeRepo()
	logger.Info("migrations applied", "driver", cfg.Database.Driver)
	return nil
}
