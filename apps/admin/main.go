package main

import (
	"log"
	"os"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/user"
	logsvc "github.com/madrasa-app/madrasa/services/logger"
	"github.com/madrasa-app/madrasa/storage"
	filestore "github.com/madrasa-app/madrasa/storage/file"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
	pgstore "github.com/madrasa-app/madrasa/storage/postgres"
	redistore "github.com/madrasa-app/madrasa/storage/redis"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	backend, err := openBackend()
	errAndDie(err)
	defer backend.Close()

	applog := logsvc.NewConsoleLogger(logger)

	cli := commandLine{
		usrSvc: user.NewService(user.NewStoreRepository(backend, applog)),
		reg:    school.NewRegistry(backend, applog),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func openBackend() (storage.Backend, error) {
	switch core.Conf.Storage.Backend {
	case "file":
		return filestore.New(core.Conf.Storage.FileDir)
	case "redis":
		return redistore.New(core.Conf.Storage.RedisAddr, core.Conf.Storage.RedisDB)
	case "postgres":
		return pgstore.New(core.Conf.Storage.DatabaseURL)
	default:
		return memstore.New(), nil
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
