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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/docsync/pkg/document"
)

// content is the printed form of a stored document.
type content struct {
	DocID     string    `json:"docID" yaml:"docID"`
	Text      string    `json:"text" yaml:"text"`
	Size      int       `json:"size" yaml:"size"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func newCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat [doc id]",
		Short: "Print the text of the stored snapshot of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("doc id is required")
			}
			docID := args[0]

			gateway, closeDB, err := openGateway()
			if err != nil {
				return err
			}
			defer func() {
				_ = closeDB()
			}()

			info, err := gateway.Info(context.Background(), docID)
			if err != nil {
				return err
			}

			doc, err := document.FromSnapshot(docID, info.Snapshot)
			if err != nil {
				return fmt.Errorf("decode snapshot of %s: %w", docID, err)
			}

			c := content{
				DocID:     docID,
				Text:      doc.String(),
				Size:      info.Size,
				UpdatedAt: info.UpdatedAt,
			}

			switch output {
			case "":
				cmd.Println(c.Text)
			case "json":
				jsonOutput, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				cmd.Println(string(jsonOutput))
			case "yaml":
				yamlOutput, err := yaml.Marshal(c)
				if err != nil {
					return fmt.Errorf("marshal YAML: %w", err)
				}
				cmd.Println(string(yamlOutput))
			default:
				return fmt.Errorf("unknown output format: %s", output)
			}

			return nil
		},
	}
}
