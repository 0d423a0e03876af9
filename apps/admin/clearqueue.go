package main

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/labtrack/core/queue"
	logsvc "github.com/trezcool/labtrack/services/logger"
	notifysvc "github.com/trezcool/labtrack/services/notify"
	sqlxrepos "github.com/trezcool/labtrack/storage/database/sqlx"
)

// clearQueue deletes a lab's resolved and cancelled help requests. Waiting
// and claimed items are never touched.
func (cli *commandLine) clearQueue(labID string) error {
	dbx := sqlx.NewDb(cli.db, "postgres")

	appLogger := logsvc.NewRollbarLogger(logger, cli.conf)
	appLogger.Enable(!cli.conf.Debug)
	queueSvc := queue.NewService(sqlxrepos.NewQueueRepository(dbx), notifysvc.NewConsolePublisher(appLogger))

	count, err := queueSvc.ClearClosed(context.Background(), labID)
	if err != nil {
		return err
	}
	logger.Printf("deleted %d closed help request(s)\n", count)
	return nil
}
