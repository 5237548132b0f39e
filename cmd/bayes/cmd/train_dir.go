package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/app"
)

var trainDirJobs int

var trainDirCmd = &cobra.Command{
	Use:   "train-dir <dir>",
	Short: "Train every class from a directory tree",
	Long: "Trains <dir>/<class>/* into <class>. Files are tokenized in parallel.\n" +
		"Hidden files and directories are skipped.",
	Args: cobra.ExactArgs(1),
	RunE: runTrainDir,
}

func init() {
	trainDirCmd.Flags().IntVarP(&trainDirJobs, "jobs", "j", 0, "Parallel tokenizers (default train.jobs, then GOMAXPROCS)")
}

func runTrainDir(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	if socket.NewClient(socket.SocketPath(root)).Ping() {
		return fmt.Errorf("the daemon owns the model\n" +
			"  → stop it first:      bayes daemon stop\n" +
			"  → or drop files into: daemon.watch_dir/<class>/")
	}

	a, err := openApp(root)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs := trainDirJobs
	if jobs <= 0 {
		jobs = a.Config.Train.Jobs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.TrainDir(ctx, a.Classifier, args[0], jobs)
	if err != nil {
		return err
	}

	fmt.Printf("⚡ trained %d files, %d tokens, %d classes\n", res.Files, res.Tokens, len(res.Classes))
	for class, n := range res.Classes {
		fmt.Printf("  %s  %d files\n", classColor.Sprint(class), n)
	}
	for _, p := range res.Skipped {
		fmt.Fprintf(os.Stderr, "  %s %s\n", warnColor.Sprint("skipped"), p)
	}
	return nil
}
