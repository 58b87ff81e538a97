package main

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"eproba-editor/config"
	"eproba-editor/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()
	if cfg.Storage.Driver == config.DriverSQLite {
		if cfg.Storage.SQLitePath == "" {
			log.Fatal("missing SQLITE_PATH")
		}
		db, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		log.WithField("path", cfg.Storage.SQLitePath).Info("storage init complete")
		return
	}

	connStr := cfg.Storage.ConnectionString
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	if err := createTables(ctx, connStr, []string{cfg.Storage.DraftsTable}); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	if err := createQueues(ctx, connStr, []string{cfg.Storage.SubmissionQueue}); err != nil {
		log.Fatalf("create queues: %v", err)
	}

	log.WithFields(log.Fields{
		"table": cfg.Storage.DraftsTable,
		"queue": cfg.Storage.SubmissionQueue,
	}).Info("storage init complete")
}

func createTables(ctx context.Context, connStr string, names []string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
			return err
		}
		log.WithField("table", name).Debug("table ready")
	}
	return nil
}

func createQueues(ctx context.Context, connStr string, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
		if err != nil {
			return err
		}
		if _, err := q.Create(ctx, nil); err != nil && !alreadyExists(err, "QueueAlreadyExists") {
			return err
		}
		log.WithField("queue", name).Debug("queue ready")
	}
	return nil
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
