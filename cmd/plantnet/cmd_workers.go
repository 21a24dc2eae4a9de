package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plantnet/plantnet-server/app/jobs"
	"github.com/plantnet/plantnet-server/internal/server"
)

var queueWorkersFlag int

// plantnet queue:work runs the receipt workers without the HTTP server.
// Useful with QUEUE_DRIVER=redis, where jobs are shared across processes.
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := server.Connect(ctx)
		if err != nil {
			return err
		}
		defer res.Close(context.Background())

		jobs.Register(res.Queue, res.Store.Payments, res.Mailer)

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 1
		}
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		res.Queue.Work(ctx, workers)
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 2, "Number of concurrent workers")
}
