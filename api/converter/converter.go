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

// Package converter provides the converter for converting the model of the
// document and the sync protocol to bytes and vice versa. The bytes follow the
// protocol buffers wire format so that clients in any language can read them
// with a generated schema.
package converter

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yorkie-team/docsync/pkg/document/time"
	"github.com/yorkie-team/docsync/pkg/errors"
)

var (
	// ErrDecode is returned when the given bytes are not a well-formed
	// update, version vector, snapshot or message.
	ErrDecode = errors.InvalidArgument("malformed payload").WithCode("ErrDecode")
)

// SnapshotFormat is the version of the snapshot layout written by ToSnapshot.
const SnapshotFormat = 1

// Field numbers of the wire format.
const (
	updateChanges protowire.Number = 1

	changeActor      protowire.Number = 1
	changeClientSeq  protowire.Number = 2
	changeLamport    protowire.Number = 3
	changeOperations protowire.Number = 4

	operationInsert protowire.Number = 1
	operationRemove protowire.Number = 2

	insertOrigin    protowire.Number = 1
	insertCreatedAt protowire.Number = 2
	insertContent   protowire.Number = 3

	removeExecutedAt protowire.Number = 1
	removeTargets    protowire.Number = 2

	ticketLamport   protowire.Number = 1
	ticketDelimiter protowire.Number = 2
	ticketActor     protowire.Number = 3

	versionVectorEntries protowire.Number = 1
	entryActor           protowire.Number = 1
	entryLamport         protowire.Number = 2

	snapshotFormat protowire.Number = 1
	snapshotUpdate protowire.Number = 2

	messageType    protowire.Number = 1
	messagePayload protowire.Number = 2
)

func decodeErrorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrDecode)
}

// walkFields calls visit for every field of the given message. visit returns
// the number of bytes of the field value it consumed.
func walkFields(
	data []byte,
	visit func(num protowire.Number, typ protowire.Type, value []byte) (int, error),
) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return decodeErrorf("tag: %v", protowire.ParseError(n))
		}
		data = data[n:]

		m, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		data = data[m:]
	}

	return nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, data []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, decodeErrorf("field %d: wire type %d is not varint", num, typ)
	}

	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, decodeErrorf("field %d: %v", num, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, data []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, decodeErrorf("field %d: wire type %d is not bytes", num, typ)
	}

	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, decodeErrorf("field %d: %v", num, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeLamport(num protowire.Number, typ protowire.Type, data []byte) (int64, int, error) {
	v, n, err := consumeVarint(num, typ, data)
	if err != nil {
		return 0, 0, err
	}
	if v > time.MaxLamport {
		return 0, 0, decodeErrorf("field %d: lamport %d exceeds %d", num, v, int64(time.MaxLamport))
	}
	return int64(v), n, nil
}

func unknownField(num protowire.Number) error {
	return decodeErrorf("unknown field %d", num)
}
