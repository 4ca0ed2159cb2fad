/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seatunnel/procctl/internal/history"
	"github.com/seatunnel/procctl/internal/timestr"
)

// openHistory loads the configuration and opens the history database even
// when recording is disabled
func openHistory(cmd *cobra.Command, flags *globalFlags) (*history.Store, func(), error) {
	a, err := newApp(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	store := a.store
	if store == nil {
		store, err = history.Open(a.cfg.History.Path, a.log)
		if err != nil {
			_ = a.close()
			return nil, nil, err
		}
	}
	cleanup := func() {
		if a.store == nil {
			_ = store.Close()
		}
		_ = a.close()
	}
	return store, cleanup, nil
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		query history.Query
		since string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded lifecycle events / 显示已记录的生命周期事件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" {
				d, err := timestr.Parse(since)
				if err != nil {
					return err
				}
				query.Since = time.Now().Add(-d)
			}

			store, cleanup, err := openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := store.List(cmd.Context(), query)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tINDEX\tALIAS\tPID\tRC\tCOMMAND")
			for _, r := range records {
				rc := "-"
				if r.ReturnCode != nil {
					rc = fmt.Sprint(*r.ReturnCode)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
					r.OccurredAt.Local().Format(time.DateTime), r.Event, r.ProcessIndex, orDash(r.Alias), r.PID, rc, r.Command)
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&query.Alias, "alias", "", "only events of this alias")
	f.StringVar(&query.ExecutionID, "id", "", "only events of this execution ID")
	f.StringVar(&query.Event, "event", "", "only events of this type")
	f.IntVar(&query.Limit, "limit", 50, "maximum number of events, 0 for all")
	f.StringVar(&since, "since", "", "only events newer than this interval, e.g. \"2 hours\"")

	cmd.AddCommand(newHistoryPurgeCmd(flags))
	return cmd
}

func newHistoryPurgeCmd(flags *globalFlags) *cobra.Command {
	var olderThan string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old lifecycle events / 删除旧的生命周期事件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := timestr.Parse(olderThan)
			if err != nil {
				return err
			}
			store, cleanup, err := openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.Purge(cmd.Context(), time.Now().Add(-d))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d events.\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "30 days", "delete events older than this interval")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
