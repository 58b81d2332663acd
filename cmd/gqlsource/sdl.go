package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	config "github.com/kissu/gridsome-source-graphql-prismic/internal/config"
	introspection "github.com/kissu/gridsome-source-graphql-prismic/internal/introspection"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

func sdlCommand() *cli.Command {
	return &cli.Command{
		Name:  "sdl",
		Usage: "print the gateway schema built from the configured sources",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			gw, err := buildGateway(ctx, cfg, zap.NewNop())
			if err != nil {
				return err
			}
			return writeSDL(cmd, schema.Render(gw.Schema))
		},
	}
}

func introspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "introspect",
		Usage:     "print the schema of a remote GraphQL API",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: `extra request header, "Name: value"`},
			&cli.BoolFlag{Name: "master-ref", Usage: "query the master ref of a Prismic repository"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			url := cmd.Args().First()
			if url == "" {
				return fmt.Errorf("introspect: missing <url>")
			}
			headers := map[string]string{}
			for _, h := range cmd.StringSlice("header") {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("introspect: invalid header %q", h)
				}
				headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
			}
			l, err := link.New(ctx, link.Config{
				URL:          url,
				Headers:      headers,
				UseMasterRef: cmd.Bool("master-ref"),
				FieldName:    "introspect",
			})
			if err != nil {
				return err
			}
			sch, err := introspection.Fetch(ctx, l)
			if err != nil {
				return err
			}
			return writeSDL(cmd, schema.Render(sch))
		},
	}
}

func writeSDL(cmd *cli.Command, sdl string) error {
	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, []byte(sdl), 0o644)
	}
	_, err := fmt.Fprint(cmd.Root().Writer, sdl)
	return err
}
