package main

import (
	"log"
	"os"

	"github.com/learnflow/backend/core"
	emailsvc "github.com/learnflow/backend/services/email"
	logsvc "github.com/learnflow/backend/services/logger"
	"github.com/learnflow/backend/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(false) // CLI logs to stdout only

	cli := newCommandLine(db, appLogger, emailsvc.NewConsoleService(conf))
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
