package root

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "kuloydis",
	Short: "A Redis-wire-protocol key-value server",
	Long:  `kuloydis speaks the RESP protocol over TCP: strings, lists, streams, sorted sets, geo, pub/sub and single-leader replication.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func AddCommand(cmds ...*cobra.Command) {
	rootCmd.AddCommand(cmds...)
}
