package main

import (
	"context"
	"fmt"
)

// backfillNotifications records a registration notification for every pending
// tutor missing one. Safe to run repeatedly.
func (cli *commandLine) backfillNotifications() error {
	n, err := cli.approvalSvc.Backfill(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("scanned %d pending tutor(s)\n", n)
	return nil
}
