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
	"errors"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/docsync/internal/validation"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [doc id]",
		Short: "Remove the stored snapshot of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("doc id is required")
			}
			docID := args[0]
			if err := validation.ValidateDocID(docID); err != nil {
				return err
			}

			gateway, closeDB, err := openGateway()
			if err != nil {
				return err
			}
			defer func() {
				_ = closeDB()
			}()

			if err := gateway.Delete(context.Background(), docID); err != nil {
				return err
			}

			cmd.Printf("removed snapshot of %s\n", docID)
			return nil
		},
	}
}
