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
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seatunnel/procctl/internal/batch"
)

func newBatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch manifest.yaml",
		Short: "Run the processes of a manifest / 运行清单中的进程",
		Long: `Batch starts every process of a YAML manifest in order, waits for each
in order with its own timeout and prints one outcome per process.
Processes still running at the end are terminated.
batch 按顺序启动清单中的所有进程，再按顺序等待，最后终止仍在运行的进程。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			manifest, err := batch.Load(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := a.close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			action, err := a.defaultAction()
			if err != nil {
				return err
			}
			outcomes, runErr := batch.NewRunner(a.controller, action, a.log).Run(cmd.Context(), manifest)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"outcomes": outcomes}); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if runErr != nil {
				return runErr
			}
			for _, o := range outcomes {
				if !o.Finished || o.ReturnCode != 0 {
					return &exitCodeError{code: 1}
				}
			}
			return nil
		},
	}
}
