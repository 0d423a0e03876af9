package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	db   *sql.DB
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                                - create the application database and user if missing")
	fmt.Println("  migrate COMMAND [ARGS]                  - run a goose migration command (up, down, status, ...)")
	fmt.Println("  export -lab LAB_ID [-out FILE]          - export a lab's grade report to a CSV file")
	fmt.Println("  clearqueue -lab LAB_ID                  - delete a lab's resolved and cancelled help requests")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportLab := exportCmd.String("lab", "", "The lab ID to export grades for.")
	exportOut := exportCmd.String("out", "", "Destination file. Defaults to the export's own file name.")

	clearQueueCmd := flag.NewFlagSet("clearqueue", flag.ExitOnError)
	clearQueueLab := clearQueueCmd.String("lab", "", "The lab ID whose closed help requests are deleted.")

	switch args[1] {
	case "createdb":
		return database.CreateIfNotExist(cli.conf)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.openDB(); err != nil {
			return err
		}
		defer cli.db.Close()
		return cli.migrate(args[2:])
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportLab == "" {
			exportCmd.Usage()
			return errHelp
		}
		if err := cli.openDB(); err != nil {
			return err
		}
		defer cli.db.Close()
		return cli.export(*exportLab, *exportOut)
	case "clearqueue":
		if err := clearQueueCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *clearQueueLab == "" {
			clearQueueCmd.Usage()
			return errHelp
		}
		if err := cli.openDB(); err != nil {
			return err
		}
		defer cli.db.Close()
		return cli.clearQueue(*clearQueueLab)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) openDB() error {
	db, err := database.Open(cli.conf)
	if err != nil {
		return err
	}
	if err = db.Ping(); err != nil {
		return err
	}
	cli.db = db
	return nil
}
