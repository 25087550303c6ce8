package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kopi-lang/kopi/internal/kopierr"
)

// Execute builds the root command and runs it; cmd/kopi/main.go only
// calls this, mirroring spec §6's "cmd/kopi/main.go only wiring
// rootCmd.Execute()" and Jenvy's own thin main.go entry point.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kopi",
		Short:         "Kopi manages installed JDKs and dispatches JDK tools per-project",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(false)
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
	}

	root.AddCommand(
		newInstallCmd(),
		newUninstallCmd(),
		newListCmd(),
		newUseCmd(),
		newShellCmd(),
		newGlobalCmd(),
		newLocalCmd(),
		newCurrentCmd(),
		newWhichCmd(),
		newEnvCmd(),
		newCacheCmd(),
		newSetupCmd(),
		newDoctorCmd(),
		newDefaultCmd(),
	)

	return root
}

// exitCodeFor maps any error surfacing out of Execute to a process exit
// code per spec §6. Kopi's own *kopierr.Error carries its code directly;
// any other error (cobra usage errors, flag parsing) is a generic
// failure. Exit code 137 ("killed") is a signal-delivery concern handled
// by the OS/shell before Kopi's own error handling ever runs, not a
// kopierr.Kind — there is no Go-level error value to map it from here.
func exitCodeFor(err error) int {
	if kind, ok := kopierr.KindOf(err); ok {
		printErr(err)
		return kind.ExitCode()
	}
	printErr(err)
	return 1
}

func printErr(err error) {
	fmt.Fprintln(os.Stderr, "[ERROR] "+err.Error())
	if kerr, ok := err.(*kopierr.Error); ok && kerr.Hint != "" {
		fmt.Fprintln(os.Stderr, "hint: "+kerr.Hint)
	}
}
