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
		},
	}
}

// setupCommand initializes the local database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database, and migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// searchCommand queries the public music catalog.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "search",
		Aliases: []string{"s"},
		Usage:   "Search the music catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "term"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "entity",
				Aliases: []string{"e"},
				Usage:   "Result kind: song or album",
				Value:   "song",
			},
		}, outputFlags()...),
		Action: r.Search,
	}
}

// albumCommand looks up an album's track listing.
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "album",
		Usage: "Show an album's track listing",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: r.Album,
	}
}

// downloadCommand creates download jobs directly.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl"},
		Usage:   "Create and watch download jobs",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a download job for a song or album URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Format key: aac, lossless, hires_lossless, dolby_atmos, dolby_audio",
					},
					&cli.BoolFlag{
						Name:  "album",
						Usage: "Treat the URL as an album",
					},
					&cli.BoolFlag{
						Name:  "all-tracks",
						Usage: "Download every track of the album",
					},
					&cli.BoolFlag{
						Name:  "no-watch",
						Usage: "Submit without following progress",
					},
				},
				Action: r.DownloadStart,
			},
			{
				Name:  "formats",
				Usage: "List the formats available for a URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "track",
						Usage: "Track name hint for multi-track URLs",
					},
				}, outputFlags()...),
				Action: r.DownloadFormats,
			},
		},
	}
}

// jobsCommand inspects and controls backend jobs.
func jobsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and control download jobs",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show a job's status record",
				Arguments: idArg,
				Flags:     outputFlags(),
				Action:    r.JobStatus,
			},
			{
				Name:      "progress",
				Usage:     "Show a job's latest progress snapshot",
				Arguments: idArg,
				Flags:     outputFlags(),
				Action:    r.JobProgress,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a running job",
				Arguments: idArg,
				Action:    r.JobCancel,
			},
			{
				Name:      "watch",
				Usage:     "Follow a job's live progress until it finishes",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name for the job",
					},
				},
				Action: r.JobWatch,
			},
			{
				Name:      "fetch",
				Usage:     "Save a completed job's archive",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Archive file name (without extension)",
					},
				},
				Action: r.JobFetch,
			},
		},
	}
}

// queueCommand manages the local download queue.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Manage the download queue",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Search the catalog and enqueue matching songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Enqueue every song result, not just the first",
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:   "list",
				Usage:  "Show the queue",
				Flags:  outputFlags(),
				Action: r.QueueList,
			},
			{
				Name:      "remove",
				Usage:     "Remove an item from the queue",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.QueueRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove every item from the queue",
				Action: r.QueueClear,
			},
			{
				Name:      "toggle",
				Usage:     "Toggle an item's selection",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.QueueToggle,
			},
			{
				Name:   "select-all",
				Usage:  "Select every item",
				Action: r.QueueSelectAll,
			},
			{
				Name:   "unselect-all",
				Usage:  "Unselect every item",
				Action: r.QueueUnselectAll,
			},
			{
				Name:      "format",
				Usage:     "Choose the format an item downloads in",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "key"}},
				Action:    r.QueueFormat,
			},
			{
				Name:  "submit",
				Usage: "Submit ready items as one batch of jobs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "selected",
						Usage: "Submit only selected items",
					},
					&cli.StringFlag{
						Name:  "group",
						Usage: "Submit only one group's items",
					},
					&cli.BoolFlag{
						Name:  "no-watch",
						Usage: "Submit without following progress",
					},
				},
				Action: r.QueueSubmit,
			},
			{
				Name:  "export",
				Usage: "Export the queue to csv, markdown, or text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, md, txt",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (base name for csv, directory for md)",
					},
				},
				Action: r.QueueExport,
			},
			groupCommand(r),
		},
	}
}

// groupCommand manages queue groups.
func groupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Organize queue items into named groups",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a group",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Group name; defaults to Queue N",
					},
				},
				Action: r.GroupCreate,
			},
			{
				Name:   "list",
				Usage:  "List groups, newest first",
				Flags:  outputFlags(),
				Action: r.GroupList,
			},
			{
				Name:      "rename",
				Usage:     "Rename a group",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "name"}},
				Action:    r.GroupRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a group, keeping its items",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.GroupDelete,
			},
			{
				Name:      "assign",
				Usage:     "Move an item into a group, or out with an empty group id",
				Arguments: []cli.Argument{&cli.StringArg{Name: "item"}, &cli.StringArg{Name: "group"}},
				Action:    r.GroupAssign,
			},
		},
	}
}

// tuiCommand launches the interactive interface.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive queue and downloads interface",
		Action: r.TUI,
	}
}
