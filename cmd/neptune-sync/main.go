// Command neptune-sync sends an experiment described by a JSON file to a
// tracking project.
//
//	neptune-sync -f experiment.json -p team/project
//
// It writes a driver script and a config file next to the working
// directory, runs `neptune run` on them and removes both afterwards. The
// replay subcommand writes the same experiment into a local run directory
// instead.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/jsonsync"
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
	"github.com/YuminosukeSato/scigo-neptune/tracking"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "NEPTUNE_SYNC"

// deps are the process resources the commands use; tests swap them out
type deps struct {
	fs     afero.Fs
	runner jsonsync.Runner
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], deps{fs: afero.NewOsFs(), stdout: os.Stdout, stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, d deps) int {
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetOut(d.stdout)
	root.SetErr(d.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(d.stderr, "neptune-sync: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *errors.SubprocessError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}

func newRootCmd(d deps) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var (
		filePath string
		project  string
	)

	root := &cobra.Command{
		Use:           "neptune-sync -f FILE -p PROJECT",
		Short:         "Send an experiment JSON file to a tracking project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return log.SetupLogger(v.GetString("log-level"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer := newSyncer(cmd, d, v)
			return syncer.Sync(cmd.Context(), filePath, project)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&filePath, "filepath", "f", "", "experiment JSON file")
	pf.String("runner", jsonsync.DefaultTool, "synchronization tool to invoke")
	pf.String("workdir", ".", "directory for the generated files")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = root.MarkPersistentFlagRequired("filepath")
	for _, name := range []string{"runner", "workdir", "log-level"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.Flags().StringVarP(&project, "project_name", "p", "", "destination project, e.g. team/project")
	_ = root.MarkFlagRequired("project_name")

	root.AddCommand(newReplayCmd(d, v, &filePath))
	return root
}

func newSyncer(cmd *cobra.Command, d deps, v *viper.Viper) *jsonsync.Syncer {
	runner := d.runner
	if runner == nil {
		runner = jsonsync.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	}
	return &jsonsync.Syncer{
		Fs:      d.fs,
		WorkDir: v.GetString("workdir"),
		Tool:    v.GetString("runner"),
		Runner:  runner,
		Logger:  log.GetLoggerWithName("neptune-sync"),
	}
}

func newReplayCmd(d deps, v *viper.Viper, filePath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "replay -f FILE --dir ROOT",
		Short: "Write the experiment into a new local run directory under ROOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := newSyncer(cmd, d, v).Load(*filePath)
			if err != nil {
				return err
			}
			session, err := tracking.NewDirSession(d.fs, dir, tracking.WithSourceFs(d.fs))
			if err != nil {
				return err
			}
			if err := jsonsync.Replay(session, rec); err != nil {
				_ = session.Stop()
				return err
			}
			if err := session.Stop(); err != nil {
				return err
			}
			log.GetLoggerWithName("neptune-sync").Info("Replayed experiment",
				log.FilePathKey, *filePath,
				log.SessionIDKey, session.ID(),
			)
			fmt.Fprintln(cmd.OutOrStdout(), session.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "root directory for local runs")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
