package main

import (
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	pgstore "github.com/madrasa-app/madrasa/storage/postgres"
)

var migrateFunc = pgstore.Migrate // mockable

func (cli *commandLine) migrate() error {
	if core.Conf.Storage.Backend != "postgres" {
		return errors.New("migrate only applies to the postgres backend")
	}
	return migrateFunc(core.Conf.Storage.DatabaseURL)
}
