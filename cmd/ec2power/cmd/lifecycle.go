/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/mulgadc/ec2power/ec2power/handler"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// invocationResult is the response shape printed with --json
type invocationResult struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func (c *cli) newStartCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Request that the configured instance be started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, asJSON, (*handler.Handler).Start)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response as JSON")
	return cmd
}

func (c *cli) newStopCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Request that the configured instance be stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, asJSON, (*handler.Handler).Stop)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response as JSON")
	return cmd
}

func (c *cli) invoke(cmd *cobra.Command, asJSON bool, run func(*handler.Handler, context.Context) events.APIGatewayProxyResponse) error {
	ctrl, closeCtrl, err := newController(c.appConfig)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle client: %w", err)
	}
	defer closeCtrl()

	resp := run(handler.New(c.appConfig, ctrl), cmd.Context())

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.Marshal(invocationResult{StatusCode: resp.StatusCode, Body: resp.Body})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else if resp.StatusCode == http.StatusOK {
		pterm.Success.WithWriter(out).Printfln("%s (%s)", resp.Body, c.appConfig.InstanceID)
	} else {
		pterm.Error.WithWriter(out).Printfln("%d %s", resp.StatusCode, resp.Body)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s failed with status %d", cmd.Name(), c.appConfig.InstanceID, resp.StatusCode)
	}
	return nil
}

func (c *cli) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.appConfig.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
