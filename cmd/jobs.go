package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
	"github.com/urfave/cli/v3"
)

func (r *Runner) JobStatus(ctx context.Context, cmd *cli.Command) error {
	jobID, err := jobArg(cmd)
	if err != nil {
		return err
	}

	job, err := r.downloads.Status(ctx, jobID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, cmd.Bool("pretty"))
	}

	r.writePlain("Job:    %s\n", job.JobID)
	r.writePlain("Status: %s\n", job.Status)
	if job.Status.IsTerminal() && job.ReturnCode != 0 {
		r.writePlain("Exit:   %d\n", job.ReturnCode)
	}
	return nil
}

func (r *Runner) JobProgress(ctx context.Context, cmd *cli.Command) error {
	jobID, err := jobArg(cmd)
	if err != nil {
		return err
	}

	snapshot, err := r.downloads.Progress(ctx, jobID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	if snapshot.Phase == "" {
		r.writePlainln("No progress reported yet.")
		return nil
	}
	r.writePlain("%s %5.1f%% %s %s/%s\n",
		snapshot.Phase, snapshot.Percent, snapshot.Speed,
		snapshot.Downloaded, snapshot.Total)
	return nil
}

func (r *Runner) JobCancel(ctx context.Context, cmd *cli.Command) error {
	jobID, err := jobArg(cmd)
	if err != nil {
		return err
	}

	if err := r.downloads.Cancel(ctx, jobID); err != nil {
		return err
	}

	r.logger.Info("job cancelled", "job", jobID)
	r.writePlain("Job %s cancelled.\n", jobID)
	return nil
}

// JobWatch attaches to an already-submitted job and follows it to a
// terminal state. Works on completed jobs too; those report their final
// state immediately.
func (r *Runner) JobWatch(ctx context.Context, cmd *cli.Command) error {
	jobID, err := jobArg(cmd)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = jobID
	}
	return r.watch(ctx, tracker.Entry{JobID: jobID, DisplayName: name})
}

func (r *Runner) JobFetch(ctx context.Context, cmd *cli.Command) error {
	jobID, err := jobArg(cmd)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = jobID
	}
	path := filepath.Join(r.config.Downloads.OutputDir, name+".zip")

	if err := r.downloads.SaveArchive(ctx, jobID, path); err != nil {
		return err
	}

	r.logger.Info("archive saved", "job", jobID, "path", path)
	r.writePlain("Saved %s\n", path)
	return nil
}

func jobArg(cmd *cli.Command) (string, error) {
	jobID := strings.TrimSpace(cmd.StringArg("id"))
	if jobID == "" {
		return "", fmt.Errorf("%w: job id required", shared.ErrMissingArgument)
	}
	return jobID, nil
}
