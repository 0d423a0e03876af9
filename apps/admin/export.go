package main

import (
	"context"
	"io/ioutil"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/grade"
	"github.com/trezcool/labtrack/core/lab"
	emailsvc "github.com/trezcool/labtrack/services/email"
	sqlxrepos "github.com/trezcool/labtrack/storage/database/sqlx"
)

// export renders a lab's grade report and writes it to out (or the export's
// own file name when out is empty).
func (cli *commandLine) export(labID, out string) error {
	dbx := sqlx.NewDb(cli.db, "postgres")

	labSvc := lab.NewService(sqlxrepos.NewLabRepository(dbx))
	classSvc := class.NewService(sqlxrepos.NewClassRepository(dbx))
	gradeSvc := grade.NewService(labSvc, classSvc, sqlxrepos.NewGroupRepository(dbx), emailsvc.NewConsoleService(cli.conf))

	exp, err := gradeSvc.Export(context.Background(), labID)
	if err != nil {
		return err
	}

	if out == "" {
		out = exp.FileName
	}
	if err = ioutil.WriteFile(out, exp.Content, 0644); err != nil {
		return err
	}
	logger.Printf("wrote %s (%d bytes)\n", out, len(exp.Content))
	return nil
}
