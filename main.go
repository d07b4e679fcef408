package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/PiotrWarzachowski/social-uploader/actions/files"
	"github.com/PiotrWarzachowski/social-uploader/actions/instagram"
	"github.com/PiotrWarzachowski/social-uploader/actions/server"
	"github.com/PiotrWarzachowski/social-uploader/actions/youtube"
	"github.com/PiotrWarzachowski/social-uploader/internal/api"
)

func main() {
	cmd := &cli.Command{
		Name:    "social-uploader",
		Usage:   "Upload videos to YouTube and Instagram",
		Version: api.Version,
		Action: func(context.Context, *cli.Command) error {
			fmt.Println("Social Uploader - Use 'social-uploader help' for available commands")
			return nil
		},
		Commands: []*cli.Command{
			server.ServeCommand,
			youtube.YouTubeCommand,
			instagram.InstagramCommand,
			files.FilesCommand,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
