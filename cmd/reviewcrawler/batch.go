package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

var errNoAppIDs = errors.New("no app ids given")

func newBatchCmd() *cobra.Command {
	var (
		flags    requestFlags
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "batch [APP_ID...]",
		Short: "Acquire reviews for many apps concurrently and print every job as JSON.",
		Long: `batch runs one cascade per app through the worker pool sized by
batch.concurrency. App ids come from the arguments and, with --file, from a
file holding one id per line ("-" reads stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}
			appIDs := args
			if fromFile != "" {
				listed, err := readAppIDs(cmd.InOrStdin(), fromFile)
				if err != nil {
					return err
				}
				appIDs = append(appIDs, listed...)
			}
			if len(appIDs) == 0 {
				return errNoAppIDs
			}

			requests := make([]review.ExtractionRequest, 0, len(appIDs))
			for _, appID := range appIDs {
				req, err := flags.request(svc.cfg, appID)
				if err != nil {
					return err
				}
				requests = append(requests, req)
			}

			jobs, err := runBatch(cmd.Context(), svc, requests)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(jobs); err != nil {
				return fmt.Errorf("write jobs: %w", err)
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&fromFile, "file", "", "read app ids from this file, one per line")
	return cmd
}

// runBatch queues every request, waits for the pool to drain and returns the
// jobs in submission order.
func runBatch(ctx context.Context, svc *services, requests []review.ExtractionRequest) ([]review.Job, error) {
	p := newPool(svc)
	p.start(ctx)

	jobIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		jobID, err := svc.jobIDs.NewID()
		if err != nil {
			p.drain()
			return nil, fmt.Errorf("generate job id: %w", err)
		}
		if err := p.submit(ctx, jobID, req); err != nil {
			withAppID(svc.logger, req.AppID).Warn("job not queued", zap.Error(err))
		}
		jobIDs = append(jobIDs, jobID)
	}
	p.drain()

	jobs := make([]review.Job, 0, len(jobIDs))
	var failed int
	for _, jobID := range jobIDs {
		job, err := p.store.GetJob(context.WithoutCancel(ctx), jobID)
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", jobID, err)
		}
		if job.Status != review.JobStatusSucceeded {
			failed++
		}
		jobs = append(jobs, job)
	}
	svc.logger.Info("batch complete", zap.Int("jobs", len(jobs)), zap.Int("unsuccessful", failed))
	return jobs, nil
}

func readAppIDs(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open app id file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read app ids: %w", err)
	}
	return ids, nil
}
