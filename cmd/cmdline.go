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

	"github.com/spf13/cobra"

	"github.com/seatunnel/procctl/internal/cmdline"
)

func newSplitCmd() *cobra.Command {
	var escaping bool
	cmd := &cobra.Command{
		Use:   "split command-line",
		Short: "Split a command line into arguments / 将命令行拆分为参数",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := cmdline.Split(args[0], escaping)
			if err != nil {
				return err
			}
			for _, p := range parts {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&escaping, "escaping", false, "treat backslashes as escape characters")
	return cmd
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join -- args...",
		Short: "Join arguments into a command line / 将参数拼接为命令行",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cmdline.Join(args...))
			return nil
		},
	}
}
