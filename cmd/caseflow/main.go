package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "caseflow",
		Usage: "Immigration case intake service",
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			requirementsCommand,
			idsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
