package main

import (
	"github.com/trezcool/goose"

	"github.com/trezcool/mahudhurio/core"
	appfs "github.com/trezcool/mahudhurio/fs"
	"github.com/trezcool/mahudhurio/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", arguments...)
}

func (cli *commandLine) createDB() error {
	return database.CreateIfNotExist(core.Conf)
}
