// Command gqlsource serves one or more remote GraphQL APIs, each namespaced
// under its own root field, as a single GraphQL endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "gqlsource",
		Usage: "namespace remote GraphQL APIs under root fields of one gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration",
				Value:   "gqlsource.yaml",
				Sources: cli.EnvVars("GQLSOURCE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			sdlCommand(),
			introspectCommand(),
		},
	}
}
