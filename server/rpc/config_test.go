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

package rpc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/server/rpc"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		validConf := rpc.Config{
			Port:            8080,
			PingInterval:    "10s",
			LivenessTimeout: "30s",
			MaxMessageBytes: 8 << 20,
			SendBufferSize:  256,
		}
		assert.NoError(t, validConf.Validate())
		assert.Equal(t, 10*time.Second, validConf.ParsePingInterval())
		assert.Equal(t, 30*time.Second, validConf.ParseLivenessTimeout())

		conf1 := validConf
		conf1.Port = -1
		assert.ErrorIs(t, conf1.Validate(), rpc.ErrInvalidRPCPort)

		conf2 := validConf
		conf2.PingInterval = "often"
		assert.ErrorIs(t, conf2.Validate(), rpc.ErrInvalidPingInterval)

		conf3 := validConf
		conf3.PingInterval = "0s"
		assert.ErrorIs(t, conf3.Validate(), rpc.ErrInvalidPingInterval)

		conf4 := validConf
		conf4.LivenessTimeout = "10s"
		assert.ErrorIs(t, conf4.Validate(), rpc.ErrInvalidLivenessTimeout)

		conf5 := validConf
		conf5.LivenessTimeout = "never"
		assert.ErrorIs(t, conf5.Validate(), rpc.ErrInvalidLivenessTimeout)

		conf6 := validConf
		conf6.MaxMessageBytes = 0
		assert.ErrorIs(t, conf6.Validate(), rpc.ErrInvalidMaxMessageBytes)

		conf7 := validConf
		conf7.SendBufferSize = 0
		assert.ErrorIs(t, conf7.Validate(), rpc.ErrInvalidSendBufferSize)
	})
}
