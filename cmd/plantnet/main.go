// Command plantnet runs the PlantNet marketplace server and its
// maintenance tasks.
//
//	plantnet serve         # HTTP + gRPC + workers
//	plantnet route:list    # list API routes
//	plantnet migrate       # create MongoDB indexes
//	plantnet seed          # load the demo catalogue
//	plantnet queue:work    # run queue workers only
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "plantnet",
	Short:        "PlantNet marketplace server",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
}
