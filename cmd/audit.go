package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/learnpath/config"
	"github.com/mohammad-safakhou/learnpath/internal/queue/streams"
)

func auditCMD(cfgPath *string) *cobra.Command {
	var count int64
	var requestID string

	var audit = &cobra.Command{
		Use:   "audit",
		Short: "Print agent run records from the redis audit stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			rc := cfg.Storage.Redis
			if !rc.Enabled {
				return errors.New("storage.redis.enabled is false; no audit stream to read")
			}
			rdb := redis.NewClient(&redis.Options{Addr: rc.Address(), Password: rc.Password, DB: rc.DB, DialTimeout: rc.Timeout})
			defer func() { _ = rdb.Close() }()

			runs, err := streams.ReadRuns(cmd.Context(), rdb, rc.Stream, count)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, r := range runs {
				if requestID != "" && r.RequestID != requestID {
					continue
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	audit.Flags().Int64Var(&count, "count", 100, "maximum stream entries to read")
	audit.Flags().StringVar(&requestID, "request-id", "", "only print runs of this request")

	return audit
}
