package files

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/PiotrWarzachowski/social-uploader/internal/app"
	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
)

// FilesCommand manages the upload store the API serves from.
var FilesCommand = &cli.Command{
	Name:  "files",
	Usage: "List or delete stored uploads",
	Commands: []*cli.Command{
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "List stored uploads",
			Action:  listAction,
		},
		{
			Name:      "delete",
			Aliases:   []string{"rm"},
			Usage:     "Delete a stored upload",
			ArgsUsage: "<file_id>",
			Action:    deleteAction,
		},
	},
	Action: listAction,
}

func openStore(ctx context.Context) (*app.Env, filestore.Store, error) {
	env, err := app.Load(false)
	if err != nil {
		return nil, nil, err
	}

	store, err := env.OpenStore(ctx)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, store, nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	env, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	defer store.Close()

	list, err := store.List(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("📭 No stored uploads")
		return nil
	}

	for _, f := range list {
		fmt.Printf("%-44s %-9s %8.2f MB  %s\n", f.ID, f.Kind, f.SizeMB(), f.CreatedAt.Format("Jan 2, 3:04 PM"))
	}
	fmt.Printf("\n%d file(s)\n", len(list))
	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("file id is required")
	}

	env, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	defer store.Close()

	if err := store.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted %s\n", id)
	return nil
}
