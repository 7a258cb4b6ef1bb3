package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/lpspool/internal/logger"
	"github.com/marmos91/lpspool/internal/protocol/lpd"
	"github.com/marmos91/lpspool/pkg/helper"
)

var (
	receiveLogLevel string
	receiveSpawn    bool
)

var receiveCmd = &cobra.Command{
	Use:   "receive SPOOLDIR [HELPER [ARG...]]",
	Short: "Receive a single print job on stdin/stdout",
	Long: `Receive a single print job, speaking the printer protocol on
stdin and stdout. This is the inetd-style mode: a super-server accepts the
TCP connection on port 515 and hands the stream to this command.

SPOOLDIR is the spool root. A queue that exists as a subdirectory of
SPOOLDIR is a spooling queue; anything else is written to directly.

When a HELPER command is given, it is executed after a spooled job
completes, replacing this process. The helper runs in the queue directory
with the job's control file attributes in its environment.

Examples:
  # inetd.conf entry (spool into /var/spool/lpd, print with lp)
  printer stream tcp nowait lp /usr/sbin/lpspool lpspool receive /var/spool/lpd lp

  # Receive one job from a pipe, no helper
  lpspool receive /var/spool/lpd < job.stream`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReceive,
}

func init() {
	receiveCmd.Flags().StringVar(&receiveLogLevel, "log-level", "WARN", "Log level for the session (logs go to stderr)")
	receiveCmd.Flags().BoolVar(&receiveSpawn, "spawn-helper", false, "Spawn the helper as a child instead of replacing the process")
}

func runReceive(cmd *cobra.Command, args []string) error {
	// stdout carries protocol bytes to the peer, so logs must stay on stderr
	if err := logger.Init(logger.Config{
		Level:  receiveLogLevel,
		Format: "text",
		Output: "stderr",
	}); err != nil {
		return err
	}

	spoolDir := args[0]

	var launcher lpd.HelperLauncher
	if runner := helper.New(args[1:]); runner != nil {
		runner.ReplaceProcess = !receiveSpawn
		launcher = runner
	}

	session := lpd.NewSession(os.Stdin, os.Stdout, lpd.Config{
		SpoolDir:   spoolDir,
		Helper:     launcher,
		ClientAddr: "stdio",
	}, nil)

	return session.Run(context.Background())
}
