package instagram

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/urfave/cli/v3"

	"github.com/PiotrWarzachowski/social-uploader/internal/app"
	"github.com/PiotrWarzachowski/social-uploader/internal/filestore"
	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
	"github.com/PiotrWarzachowski/social-uploader/providers"
)

const maxCaptionLen = 2200

var debugFlag = &cli.BoolFlag{
	Name:    "debug",
	Aliases: []string{"d"},
	Usage:   "Enable debug output",
}

// InstagramCommand groups the Instagram reel commands.
var InstagramCommand = &cli.Command{
	Name:    "instagram",
	Aliases: []string{"ig"},
	Usage:   "Publish reels to Instagram",
	Commands: []*cli.Command{
		{
			Name:  "login",
			Usage: "Login to your Instagram account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "username",
					Aliases: []string{"u"},
					Usage:   "Instagram username (defaults to INSTAGRAM_USERNAME)",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Instagram password (not recommended, use interactive prompt)",
				},
				&cli.StringFlag{
					Name:    "session",
					Aliases: []string{"s"},
					Usage:   "Login using session ID",
				},
				&cli.StringFlag{
					Name:  "2fa",
					Usage: "Two-factor authentication code",
				},
				&cli.BoolFlag{
					Name:    "force",
					Aliases: []string{"f"},
					Usage:   "Force new login even if session exists",
				},
				debugFlag,
			},
			Action: loginAction,
		},
		{
			Name:   "logout",
			Usage:  "Delete the saved Instagram session",
			Flags:  []cli.Flag{debugFlag},
			Action: logoutAction,
		},
		{
			Name:   "status",
			Usage:  "Check current login status",
			Flags:  []cli.Flag{debugFlag},
			Action: statusAction,
		},
		{
			Name:      "upload",
			Usage:     "Publish a video as a reel",
			ArgsUsage: "<video>",
			Aliases:   []string{"post", "reel"},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "caption",
					Aliases: []string{"c"},
					Usage:   "Reel caption",
				},
				debugFlag,
			},
			Action: uploadAction,
		},
	},
}

func loadProvider(cmd *cli.Command) (*app.Env, *providers.ReelProvider, error) {
	env, err := app.Load(cmd.Bool("debug"))
	if err != nil {
		return nil, nil, err
	}

	provider, err := env.ReelProvider()
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, provider, nil
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	env, provider, err := loadProvider(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if !cmd.Bool("force") && provider.CheckLoginStatus(ctx) {
		acct := provider.AccountInfo(ctx)
		fmt.Printf("✓ Already logged in as %s\n", acct.Username)
		fmt.Printf("  Session storage: %s\n", env.Config.InstagramSessionDir())
		return nil
	}

	if sessionID := cmd.String("session"); sessionID != "" {
		return loginWithSessionID(env, sessionID)
	}

	creds := providers.Credentials{
		Username:         firstNonEmpty(cmd.String("username"), env.Config.InstagramUsername),
		Password:         firstNonEmpty(cmd.String("password"), env.Config.InstagramPassword),
		VerificationCode: cmd.String("2fa"),
	}

	if creds.Username == "" {
		if creds.Username, err = promptInput("Username: "); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if creds.Password == "" {
		if creds.Password, err = promptPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	fmt.Println("Logging in...")

	res := provider.LoginAs(ctx, creds)
	if res.Error == providers.TwoFactorRequired && creds.VerificationCode == "" {
		fmt.Println("\n⚠ Two-factor authentication required")

		if creds.VerificationCode, err = promptInput("Enter 2FA code: "); err != nil {
			return fmt.Errorf("failed to read 2FA code: %w", err)
		}
		res = provider.LoginAs(ctx, creds)
	}

	switch {
	case res.Success:
		fmt.Printf("\n✓ Successfully logged in as %s\n", res.Username)
		fmt.Printf("  Session saved to: %s\n", env.Config.InstagramSessionDir())
		return nil
	case res.Error == providers.ChallengeRequired:
		fmt.Println("\n⚠ Instagram security challenge required")
		fmt.Println("  Please complete the challenge in the Instagram app or website")
		return errors.New("challenge required")
	default:
		return fmt.Errorf("login failed: %s", res.Message)
	}
}

func loginWithSessionID(env *app.Env, sessionID string) error {
	store, err := env.SessionStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize session storage: %w", err)
	}

	igClient := instagram.NewClient(instagram.WithLogger(env.Logger))

	result, err := igClient.LoginBySessionID(sessionID)
	if err != nil {
		return fmt.Errorf("session login failed: %w", err)
	}

	if err := store.SaveSession(igClient.ToSession()); err != nil {
		fmt.Printf("⚠ Warning: Failed to save session: %v\n", err)
	}

	fmt.Printf("\n✓ Successfully logged in with session ID\n")
	fmt.Printf("  User ID: %d\n", result.UserID)
	fmt.Printf("  Session saved to: %s\n", store.BasePath())
	return nil
}

func logoutAction(ctx context.Context, cmd *cli.Command) error {
	env, provider, err := loadProvider(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := provider.Logout(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Println("✓ Instagram session deleted")
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	env, provider, err := loadProvider(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if !provider.CheckLoginStatus(ctx) {
		fmt.Println("Status: Not logged in")
		fmt.Println("\nUse 'social-uploader instagram login' to authenticate")
		return nil
	}

	acct := provider.AccountInfo(ctx)
	fmt.Println("Status: Logged in")
	fmt.Printf("  Username: %s\n", acct.Username)
	if acct.UserID != "" {
		fmt.Printf("  User ID: %s\n", acct.UserID)
	}
	if acct.FullName != "" {
		fmt.Printf("  Name: %s\n", acct.FullName)
	}
	fmt.Printf("  Storage: %s\n", env.Config.InstagramSessionDir())
	return nil
}

func uploadAction(ctx context.Context, cmd *cli.Command) error {
	videoPath := cmd.Args().First()
	if videoPath == "" {
		return errors.New("video path is required")
	}
	if !filestore.HasExtension(videoPath, []string{".mp4", ".mov"}) {
		return fmt.Errorf("%s: %w", videoPath, filestore.ErrUnsupportedType)
	}

	caption := cmd.String("caption")
	if n := utf8.RuneCountInString(caption); n > maxCaptionLen {
		return fmt.Errorf("caption must be at most %d characters, got %d", maxCaptionLen, n)
	}

	env, provider, err := loadProvider(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := provider.EnsureLoggedIn(ctx); err != nil {
		fmt.Println("❌ Not logged in")
		fmt.Println("\nPlease login first using: social-uploader instagram login")
		return err
	}

	reporter := NewCLIReporter()
	result, err := provider.UploadReel(ctx, videoPath, caption, reporter)
	reporter.Wait()

	if err != nil {
		fmt.Printf("\n❌ Upload failed: %v\n", err)
		return err
	}

	if result.Warning != "" {
		fmt.Printf("\n⚠️  %s\n", result.Message)
		fmt.Printf("  %s\n", result.Warning)
		return nil
	}

	fmt.Println("\n✅ Reel published!")
	fmt.Printf("  URL: %s\n", result.URL)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
