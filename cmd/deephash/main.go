package main

import (
	"context"
	"errors"
	"os"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/app"
	"github.com/xxxsen/deephash/internal/cli"
)

func main() {
	logger.Init("", "info", 0, 0, 0, true)
	if err := cli.Execute(); err != nil {
		if errors.Is(err, app.ErrAuditFailed) {
			os.Exit(1)
		}
		logutil.GetLogger(context.Background()).Fatal("exec cli failed", zap.Error(err))
		os.Exit(1)
	}
}
