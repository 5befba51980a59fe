package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/lock"
)

func newUnlockCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unlock [config]",
		Short: "Show or clear the pass lock",
		Long: `Show who holds the pass lock. With --force, remove it. Only force a
lock left behind by a crashed run; removing a live lock lets two passes
write the same trees.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyPositional(args)
			cfg, err := opts.setup()
			if err != nil {
				return err
			}

			passLock, err := lock.NewPassLock(afero.NewOsFs(), cfg.DataDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !passLock.IsLocked() {
				fmt.Fprintln(out, "Not locked")
				return nil
			}

			holder, err := passLock.GetHolder()
			if err == nil && holder != nil {
				fmt.Fprintf(out, "Locked by PID %d on %s since %s (pass %s)\n",
					holder.PID, holder.Hostname, holder.StartTime.Format("2006-01-02 15:04:05"), holder.PassID)
			}

			if !force {
				return fmt.Errorf("lock is held; use --force to remove it")
			}
			if err := passLock.ForceRelease(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Lock removed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "remove the lock even if held")
	return cmd
}
