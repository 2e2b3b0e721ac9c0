package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitUsageError       = 2
	ExitDataError        = 3
	ExitNotAuthenticated = 4
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "portal-cli",
		Usage:   "A scriptable client for the portal user and data services",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default: ./config.yaml or ~/.config/portal-cli/config.yaml)",
				EnvVars: []string{"PORTAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Session database file path",
				EnvVars: []string{"PORTAL_DB"},
			},
			&cli.StringFlag{
				Name:  "user-service",
				Usage: "User service base URL",
			},
			&cli.StringFlag{
				Name:  "data-service",
				Usage: "Data service base URL",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and remember the session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password",
						EnvVars: []string{"PORTAL_PASSWORD"},
					},
				},
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: logout,
			},
			{
				Name:    "profile",
				Aliases: []string{"whoami"},
				Usage:   "Show the logged in user and their content",
				Action:  showProfile,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", EnvVars: []string{"PORTAL_PASSWORD"}},
				},
				Action: register,
			},
			{
				Name:  "users",
				Usage: "Browse user accounts",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List all users",
						Action: listUsers,
					},
					{
						Name:      "show",
						Usage:     "Show one user",
						ArgsUsage: "<user-id>",
						Action:    showUser,
					},
				},
			},
			{
				Name:  "content",
				Usage: "Manage the content library",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List content",
						Flags:  filterFlags(),
						Action: listContent,
					},
					{
						Name:      "show",
						Usage:     "Show content details",
						ArgsUsage: "<content-id>",
						Action:    showContent,
					},
					{
						Name:   "create",
						Usage:  "Create content",
						Flags:  draftFlags(true),
						Action: createContent,
					},
					{
						Name:      "update",
						Usage:     "Update content",
						ArgsUsage: "<content-id>",
						Flags:     draftFlags(false),
						Action:    updateContent,
					},
					{
						Name:      "delete",
						Usage:     "Delete content",
						ArgsUsage: "<content-id>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:    "yes",
								Aliases: []string{"y"},
								Usage:   "Do not ask for confirmation",
							},
						},
						Action: deleteContent,
					},
					{
						Name:      "like",
						Usage:     "Like content",
						ArgsUsage: "<content-id>",
						Action:    likeContent,
					},
				},
			},
			{
				Name:   "categories",
				Usage:  "List content categories",
				Action: listCategories,
			},
			{
				Name:   "tags",
				Usage:  "List content tags",
				Action: listTags,
			},
			{
				Name:   "dashboard",
				Usage:  "Show analytics",
				Action: showDashboard,
			},
			{
				Name:      "open",
				Usage:     "Navigate to a portal path (e.g. /dashboard, /content?tag=go, /content/3)",
				ArgsUsage: "<path>",
				Action:    openPath,
			},
			{
				Name:      "import-feed",
				Usage:     "Post the items of an RSS/Atom feed as content",
				ArgsUsage: "<url>",
				Flags:     importFlags(),
				Action:    importFeed,
			},
			{
				Name:      "import-opml",
				Usage:     "Import every feed listed in an OPML file",
				ArgsUsage: "<opml-file>",
				Flags:     importFlags(),
				Action:    importOPML,
			},
			{
				Name:  "imports",
				Usage: "List feed items already posted as content",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "feed",
						Aliases: []string{"f"},
						Usage:   "Only items from this feed URL",
					},
				},
				Action: listImports,
			},
			{
				Name:  "export",
				Usage: "Export the content library as OPML",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: stdout)",
					},
				},
				Action: exportOPML,
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Search text"},
		&cli.StringFlag{Name: "category", Usage: "Filter by category"},
		&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag"},
		&cli.StringFlag{Name: "sort-by", Usage: "Sort field (created_at, views, likes, title)"},
		&cli.StringFlag{Name: "featured", Usage: "Only featured (true) or non-featured (false) content"},
		&cli.StringFlag{Name: "status", Usage: "Filter by status (draft, published)"},
	}
}

func draftFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Title", Required: create},
		&cli.StringFlag{Name: "content", Usage: "Body text", Required: create},
		&cli.StringFlag{Name: "category", Usage: "Category"},
		&cli.StringFlag{Name: "tags", Usage: "Comma separated tags"},
		&cli.StringFlag{Name: "status", Usage: "Status (draft, published)"},
		&cli.BoolFlag{Name: "featured", Usage: "Mark as featured"},
	}
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "category", Usage: "Category for imported content"},
		&cli.StringFlag{Name: "status", Value: "draft", Usage: "Status for imported content"},
		&cli.BoolFlag{Name: "featured", Usage: "Mark imported content as featured"},
	}
}
