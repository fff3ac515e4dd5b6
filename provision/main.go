package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"taskboard/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("provisioning starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if connStr := os.Getenv("STORAGE_CONNECTION_STRING"); connStr != "" {
		table := os.Getenv("SLOT_TABLE")
		if table == "" {
			table = "BoardSlots"
		}
		if err := createTable(ctx, connStr, table); err != nil {
			log.Fatalf("create table %s: %v", table, err)
		}
		if queue := os.Getenv("NOTIFY_QUEUE"); queue != "" {
			if err := createQueue(ctx, connStr, queue); err != nil {
				log.Fatalf("create queue %s: %v", queue, err)
			}
		}
	}

	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		if err := migrateMySQL(ctx, dsn, os.Getenv("SLOT_TABLE")); err != nil {
			log.Fatalf("mysql: %v", err)
		}
	}

	log.Info("provisioning complete")
}

func createTable(ctx context.Context, connStr, name string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	if _, err := svc.CreateTable(ctx, name, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			log.WithField("table", name).Debug("table already exists")
			return nil
		}
		return err
	}
	log.WithField("table", name).Info("table created")
	return nil
}

func createQueue(ctx context.Context, connStr, name string) error {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
	if err != nil {
		return err
	}
	if _, err := q.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists" {
			log.WithField("queue", name).Debug("queue already exists")
			return nil
		}
		return err
	}
	log.WithField("queue", name).Info("queue created")
	return nil
}

func migrateMySQL(ctx context.Context, dsn, table string) error {
	slot, err := storage.OpenMySQLSlot(ctx, dsn, table)
	if err != nil {
		return err
	}
	defer slot.Close()
	if err := slot.Migrate(ctx); err != nil {
		return err
	}
	log.WithField("statement", slot.CreateTableStatement()).Debug("mysql slot table ready")
	return nil
}
