package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"wallswitch/internal/app"
	"wallswitch/internal/database"
	"wallswitch/internal/selection"
	"wallswitch/internal/settings"
	"wallswitch/internal/startup"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the environment and wires the application. The scanner
// worker is started; the scheduler is not. The caller must Close the app.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := startup.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := startup.EnsureDataDir(cfg); err != nil {
		return nil, err
	}
	cfg.DownloadsEnabled = true

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	a.Host.Start(ctx)
	return a, nil
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wallctl",
		Short:         "Manage the wallswitch catalog and wallpaper",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Bool("json", false, "Force JSON output")

	root.AddCommand(
		newRefreshCmd(),
		newBackfillCmd(),
		newNextCmd(),
		newPrevCmd(),
		newSearchCmd(),
		newMembershipCmd("favorite", "Manage favorites", false),
		newMembershipCmd("privacy", "Manage the privacy exclusion set", true),
		newDeleteCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
	return root
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Scan the configured folders and catalog new files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Sync.RefreshDirectory(ctx, true)
				if err != nil {
					return err
				}
				return newPrinter(cmd).refresh(res)
			})
		},
	}
}

func newBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute quality and orientation for unscored images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			passes, _ := cmd.Flags().GetInt("passes")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Sync.Stagger = 0
				total := 0
				for i := 0; i < passes; i++ {
					n, err := a.Sync.HandleQuality(ctx)
					if err != nil {
						return err
					}
					total += n
					if n == 0 {
						break
					}
				}
				return newPrinter(cmd).count("updated", total)
			})
		},
	}
	cmd.Flags().Int("passes", 1, "Maximum number of backfill passes")
	return cmd
}

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Switch to the next wallpaper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res := a.Engine.Next(ctx, selection.Options{DryRun: dryRun})
				return newPrinter(cmd).selection(res)
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "Pick without applying or recording history")
	return cmd
}

func newPrevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prev",
		Short: "Step back through the wallpaper history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return newPrinter(cmd).selection(a.Engine.Prev(ctx))
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List catalogued resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, f, p, err := searchParams(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Catalog.Search(ctx, scope, f, p)
				if err != nil {
					return err
				}
				return newPrinter(cmd).resources(res)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("scope", string(database.ScopeResources), "resources, favorites, history, privacy or a source name")
	flags.String("keywords", "", "Comma-separated keywords matched against path, title and description")
	flags.StringSlice("quality", nil, "Quality tiers to include (8K, 5K, 4K, 2K)")
	flags.String("orientation", "", "landscape or portrait")
	flags.Int("page", 1, "Page number")
	flags.Int("page-size", database.DefaultPageSize, "Results per page")
	flags.String("sort", "created_at", "Sort field")
	flags.Bool("asc", false, "Sort ascending")
	return cmd
}

func searchParams(cmd *cobra.Command) (database.Scope, database.Filters, database.Page, error) {
	flags := cmd.Flags()
	scope, _ := flags.GetString("scope")
	keywords, _ := flags.GetString("keywords")
	qualities, _ := flags.GetStringSlice("quality")
	orientation, _ := flags.GetString("orientation")
	page, _ := flags.GetInt("page")
	pageSize, _ := flags.GetInt("page-size")
	sortField, _ := flags.GetString("sort")
	asc, _ := flags.GetBool("asc")

	switch orientation {
	case "", database.OrientationLandscape, database.OrientationPortrait:
	default:
		return "", database.Filters{}, database.Page{}, fmt.Errorf("invalid orientation %q", orientation)
	}

	s := settings.Default()
	s.FilterKeywords = keywords
	f := database.Filters{
		Keywords:    s.Keywords(),
		Qualities:   qualities,
		Orientation: orientation,
	}
	p := database.Page{Page: page, PageSize: pageSize, SortField: sortField, SortDesc: !asc}
	return database.Scope(scope), f, p, nil
}

// newMembershipCmd builds the favorite and privacy command groups, which
// differ only in the set they target.
func newMembershipCmd(use, short string, isPrivacy bool) *cobra.Command {
	group := &cobra.Command{Use: use, Short: short}

	group.AddCommand(
		&cobra.Command{
			Use:   "add <id>",
			Short: "Add a resource",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					if err := a.Catalog.AddToFavorites(ctx, id, isPrivacy); err != nil {
						return err
					}
					return newPrinter(cmd).membership(use, id, true)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a resource",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					removed, err := a.Catalog.RemoveFavorites(ctx, id, isPrivacy)
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("resource %d is not in %s", id, use)
					}
					return newPrinter(cmd).membership(use, id, false)
				})
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Toggle a resource",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					member, err := a.Catalog.ToggleFavorite(ctx, id, isPrivacy)
					if err != nil {
						return err
					}
					return newPrinter(cmd).membership(use, id, member)
				})
			},
		},
	)
	return group
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				r, err := a.Catalog.DeleteResource(ctx, id)
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("resource %d not found", id)
				}
				if err != nil {
					return err
				}
				return newPrinter(cmd).deleted(r)
			})
		},
	}
}

func newSettingsCmd() *cobra.Command {
	group := &cobra.Command{Use: "settings", Short: "Manage the settings file"}

	group.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := startup.ConfigFromEnv()
				if err != nil {
					return err
				}
				store, err := settings.NewStore(cfg.SettingsFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", cfg.SettingsFile)
				return settings.Write(cmd.OutOrStdout(), store.Get())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a settings file with default values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := startup.ConfigFromEnv()
				if err != nil {
					return err
				}
				if _, err := os.Stat(cfg.SettingsFile); err == nil {
					return fmt.Errorf("settings file %s already exists", cfg.SettingsFile)
				}
				if err := settings.Save(cfg.SettingsFile, settings.Default()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Settings initialized at %s\n", cfg.SettingsFile)
				return nil
			},
		},
	)
	return group
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newPrinter(cmd).version(startup.GetBuildInfo())
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid resource id %q", s)
	}
	return id, nil
}
