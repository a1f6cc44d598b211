/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/docsync/server/backend/database"
)

// summary is the printed form of a stored snapshot.
type summary struct {
	DocID     string    `json:"docID" yaml:"docID"`
	Size      int       `json:"size" yaml:"size"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, closeDB, err := openGateway()
			if err != nil {
				return err
			}
			defer func() {
				_ = closeDB()
			}()

			infos, err := gateway.List(context.Background())
			if err != nil {
				return err
			}

			return printSnapshots(cmd, output, infos)
		},
	}
}

func printSnapshots(cmd *cobra.Command, output string, infos []*database.SnapshotInfo) error {
	summaries := make([]summary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, summary{
			DocID:     info.DocID,
			Size:      info.Size,
			UpdatedAt: info.UpdatedAt,
		})
	}

	switch output {
	case "":
		tw := table.NewWriter()
		tw.Style().Options.DrawBorder = false
		tw.Style().Options.SeparateColumns = false
		tw.Style().Options.SeparateFooter = false
		tw.Style().Options.SeparateHeader = false
		tw.Style().Options.SeparateRows = false
		tw.AppendHeader(table.Row{
			"DOC ID",
			"SIZE",
			"UPDATED AT",
		})
		for _, s := range summaries {
			tw.AppendRow(table.Row{
				s.DocID,
				s.Size,
				humanDuration(time.Now().UTC().Sub(s.UpdatedAt)),
			})
		}
		cmd.Printf("%s\n", tw.Render())
	case "json":
		jsonOutput, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(summaries)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(yamlOutput))
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}

	return nil
}

// humanDuration returns a human-readable approximation of the given
// duration such as "5 minutes ago".
func humanDuration(d time.Duration) string {
	switch seconds := int(d.Seconds()); {
	case seconds < 1:
		return "less than a second ago"
	case seconds < 60:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < 60*60:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	case seconds < 60*60*48:
		return fmt.Sprintf("%d hours ago", seconds/(60*60))
	default:
		return fmt.Sprintf("%d days ago", seconds/(60*60*24))
	}
}
