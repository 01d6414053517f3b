package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) reapBlobs(grace time.Duration) error {
	n, err := cli.matSvc.ReapOrphanBlobs(context.Background(), grace)
	if err != nil {
		return err
	}
	fmt.Printf("reaped %d orphan file(s)\n", n)
	return nil
}
