// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "rollback", Usage: "Revert the most recently applied migration instead"},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// secretCommand manages the shared OAuth client secret.
func secretCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage stored secrets",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Store the OAuth client secret JSON downloaded from the Google Cloud console",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to client_secret.json (reads stdin when omitted)",
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Secret name (default: youtube.client_secret_key)",
					},
				},
				Action: r.withApp(r.SecretSet),
			},
		},
	}
}

// channelCommand manages publish destinations and their account connections.
func channelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "channel",
		Aliases: []string{"ch"},
		Usage:   "Manage channels",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a channel",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "external-id",
						Usage:    "Channel id on YouTube (UC...)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Email of the account that owns the channel",
						Required: true,
					},
				},
				Action: r.withApp(r.ChannelAdd),
			},
			{
				Name:  "list",
				Usage: "List channels and whether their owner is connected",
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Only channels owned by this email",
					},
					&cli.BoolFlag{
						Name:  "active",
						Usage: "Only active channels",
					},
				),
				Action: r.withApp(r.ChannelList),
			},
			{
				Name:      "connect",
				Usage:     "Authorize the channel owner's account in the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.withApp(r.ChannelConnect),
			},
			{
				Name:      "disconnect",
				Usage:     "Remove the stored refresh token of the channel owner",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.withApp(r.ChannelDisconnect),
			},
			{
				Name:      "enable",
				Usage:     "Allow publishing to the channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.withApp(r.ChannelEnable),
			},
			{
				Name:      "disable",
				Usage:     "Reject publishes to the channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.withApp(r.ChannelDisable),
			},
		},
	}
}

// taskCommand manages editing tasks and their revisions.
func taskCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage editing tasks",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Action:    r.withApp(r.TaskAdd),
			},
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only tasks with this status (open, in_review, completed)",
					},
				),
				Action: r.withApp(r.TaskList),
			},
			{
				Name:      "show",
				Usage:     "Show a task with its revisions, comments and publishes",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.withApp(r.TaskShow),
			},
			{
				Name:      "revision",
				Usage:     "Attach a new revision to a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Local video file to copy into the asset store",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Existing asset URL (file://, http(s)://, s3://)",
					},
				},
				Action: r.withApp(r.TaskRevision),
			},
			{
				Name:      "export",
				Usage:     "Export a task's publish history",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "csv",
						Usage: "Export format (csv, markdown, text)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Base path (csv), directory (markdown) or file (text); defaults to the task id",
					},
				},
				Action: r.withApp(r.TaskExport),
			},
		},
	}
}

// publishCommand submits a task's latest revision to a channel.
func publishCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish the latest revision of a task to a channel",
		Arguments: []cli.Argument{&cli.StringArg{Name: "task"}},
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:     "channel",
				Usage:    "Channel id",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "metadata",
				Aliases: []string{"m"},
				Usage:   "JSON file with the full metadata; individual flags override it",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Video title",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Video description",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Tag (repeatable)",
			},
			&cli.StringFlag{
				Name:  "privacy",
				Usage: "private, unlisted or public",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category id",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Default language (BCP-47)",
			},
			&cli.StringFlag{
				Name:  "thumbnail",
				Usage: "Thumbnail image URL",
			},
			&cli.StringFlag{
				Name:  "chapters",
				Usage: "JSON file with a list of {title, timestamp} chapters",
			},
			&cli.BoolFlag{
				Name:  "made-for-kids",
				Usage: "Declare the video made for kids",
			},
			&cli.BoolFlag{
				Name:  "age-restricted",
				Usage: "Restrict the video to adult viewers",
			},
			&cli.StringFlag{
				Name:  "by",
				Usage: "Submitter recorded on the publish",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the publish finishes and print the outcome",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow the publish in an interactive progress view",
			},
		),
		Action: r.logToFile(r.withApp(r.Publish)),
	}
}

// chaptersCommand validates chapter lists without publishing.
func chaptersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chapters",
		Usage: "Chapter list tools",
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Validate a chapter list and print the rendered description",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:  "description",
						Usage: "Base description the chapter section is appended to",
					},
				),
				Action: r.ChaptersCheck,
			},
		},
	}
}

// videoCommand reads and edits videos already on a channel.
func videoCommand(r *Runner) *cli.Command {
	channel := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "channel",
			Usage:    "Channel id whose owner's account is used",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "video",
		Usage: "Remote video operations",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the remote metadata of a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     append(outputFlags(), channel()),
				Action:    r.withApp(r.VideoShow),
			},
			{
				Name:      "update",
				Usage:     "Replace the title, description, tags and privacy of a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					channel(),
					&cli.StringFlag{
						Name:     "metadata",
						Aliases:  []string{"m"},
						Usage:    "JSON file with the new metadata",
						Required: true,
					},
				},
				Action: r.withApp(r.VideoUpdate),
			},
			{
				Name:      "delete",
				Usage:     "Delete a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{channel()},
				Action:    r.withApp(r.VideoDelete),
			},
		},
	}
}

// serveCommand runs the HTTP publish API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP publish API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: r.withApp(r.Serve),
	}
}
