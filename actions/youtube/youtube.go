package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/PiotrWarzachowski/social-uploader/internal/app"
	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/youtube"
)

var debugFlag = &cli.BoolFlag{
	Name:    "debug",
	Aliases: []string{"d"},
	Usage:   "Enable debug output",
}

// YouTubeCommand groups the YouTube Studio commands.
var YouTubeCommand = &cli.Command{
	Name:    "youtube",
	Aliases: []string{"yt"},
	Usage:   "Publish videos through YouTube Studio",
	Commands: []*cli.Command{
		{
			Name:   "setup",
			Usage:  "Open a visible browser and log in to YouTube Studio manually",
			Flags:  []cli.Flag{debugFlag},
			Action: setupAction,
		},
		{
			Name:   "status",
			Usage:  "Check whether the saved browser profile is logged in",
			Flags:  []cli.Flag{debugFlag},
			Action: statusAction,
		},
		{
			Name:      "upload",
			Usage:     "Upload a local video file",
			ArgsUsage: "<video>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Video title", Required: true},
				&cli.StringFlag{Name: "description", Usage: "Video description"},
				&cli.StringFlag{Name: "thumbnail", Usage: "Thumbnail image (jpg or png)"},
				&cli.StringFlag{Name: "privacy", Value: string(youtube.PrivacyPrivate), Usage: "private, unlisted or public"},
				&cli.BoolFlag{Name: "made-for-kids", Usage: "Mark the video as made for kids"},
				&cli.StringSliceFlag{Name: "tag", Usage: "Video tag (repeatable)"},
				debugFlag,
			},
			Action: uploadAction,
		},
		{
			Name:   "clear-session",
			Usage:  "Delete the saved browser profile",
			Flags:  []cli.Flag{debugFlag},
			Action: clearAction,
		},
	},
}

func loadDriver(cmd *cli.Command) (*app.Env, *youtube.Driver, error) {
	env, err := app.Load(cmd.Bool("debug"))
	if err != nil {
		return nil, nil, err
	}

	driver, err := env.YouTubeDriver()
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, driver, nil
}

func setupAction(ctx context.Context, cmd *cli.Command) error {
	env, driver, err := loadDriver(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Println("🌐 Opening browser, log in to your Google account and open YouTube Studio")
	fmt.Println("   The browser closes by itself once Studio is reached")

	url, err := driver.SetupInteractiveLogin(ctx)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	fmt.Printf("\n✓ Logged in, session saved to %s\n", env.Config.ProfileDir())
	fmt.Printf("  Studio: %s\n", url)
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	env, driver, err := loadDriver(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if !driver.SessionExists() {
		fmt.Println("Status: No saved session")
		fmt.Println("\nUse 'social-uploader youtube setup' to log in")
		return nil
	}

	fmt.Println("Checking YouTube Studio...")
	if driver.IsLoggedIn(ctx) {
		fmt.Println("Status: Logged in")
		if email := driver.Email(); email != "" {
			fmt.Printf("  Account: %s\n", email)
		}
	} else {
		fmt.Println("Status: Session expired")
		fmt.Println("\nUse 'social-uploader youtube setup' to log in again")
	}
	fmt.Printf("  Profile: %s\n", env.Config.ProfileDir())
	return nil
}

func uploadAction(ctx context.Context, cmd *cli.Command) error {
	videoPath := cmd.Args().First()
	if videoPath == "" {
		return errors.New("video path is required")
	}

	req := youtube.UploadRequest{
		VideoFileID:     videoPath,
		Title:           cmd.String("title"),
		Description:     cmd.String("description"),
		ThumbnailFileID: cmd.String("thumbnail"),
		Privacy:         cmd.String("privacy"),
		MadeForKids:     cmd.Bool("made-for-kids"),
		Tags:            cmd.StringSlice("tag"),
	}
	privacy, err := req.Normalize()
	if err != nil {
		return err
	}

	if err := checkFile(req.VideoFileID, filestore.VideoExtensions); err != nil {
		return err
	}
	if req.ThumbnailFileID != "" {
		if err := checkFile(req.ThumbnailFileID, []string{".jpg", ".jpeg", ".png"}); err != nil {
			return err
		}
	}

	env, driver, err := loadDriver(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Printf("📤 Uploading %s as %s...\n", req.VideoFileID, privacy)

	res, err := driver.UploadVideo(ctx, youtube.Video{
		Path:          req.VideoFileID,
		Title:         req.Title,
		Description:   req.Description,
		ThumbnailPath: req.ThumbnailFileID,
		Privacy:       privacy,
		MadeForKids:   req.MadeForKids,
		Tags:          req.Tags,
	})
	if err != nil {
		var stage *youtube.StageError
		if errors.As(err, &stage) {
			fmt.Printf("\n❌ Failed at stage %q\n", stage.Stage)
		}
		return err
	}

	fmt.Printf("\n✅ Published \"%s\"\n", res.Title)
	if res.URL != nil {
		fmt.Printf("  URL: %s\n", *res.URL)
	} else {
		fmt.Println("  URL: not available yet, check YouTube Studio")
	}
	for _, w := range res.Warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
	return nil
}

func clearAction(ctx context.Context, cmd *cli.Command) error {
	env, driver, err := loadDriver(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := driver.ClearSession(); err != nil {
		return err
	}
	fmt.Println("✓ YouTube session cleared")
	return nil
}

func checkFile(path string, allowed []string) error {
	if !filestore.HasExtension(path, allowed) {
		return fmt.Errorf("%s: %w", path, filestore.ErrUnsupportedType)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
