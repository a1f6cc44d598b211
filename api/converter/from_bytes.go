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

package converter

import (
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// FromUpdate converts the given bytes of an update to changes. An empty input
// is an empty update.
func FromUpdate(data []byte) ([]*change.Change, error) {
	var changes []*change.Change
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if num != updateChanges {
			return 0, unknownField(num)
		}

		body, n, err := consumeBytes(num, typ, value)
		if err != nil {
			return 0, err
		}

		c, err := fromChange(body)
		if err != nil {
			return 0, err
		}
		changes = append(changes, c)
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

func fromChange(data []byte) (*change.Change, error) {
	var actor time.ActorID
	var hasActor bool
	var clientSeq uint64
	var lamport int64
	var opBodies [][]byte

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch num {
		case changeActor:
			b, n, err := consumeBytes(num, typ, value)
			if err != nil {
				return 0, err
			}
			if actor, err = time.ActorIDFromBytes(b); err != nil {
				return 0, decodeErrorf("change actor: %v", err)
			}
			hasActor = true
			return n, nil
		case changeClientSeq:
			v, n, err := consumeVarint(num, typ, value)
			if err != nil {
				return 0, err
			}
			clientSeq = v
			return n, nil
		case changeLamport:
			v, n, err := consumeLamport(num, typ, value)
			if err != nil {
				return 0, err
			}
			lamport = v
			return n, nil
		case changeOperations:
			b, n, err := consumeBytes(num, typ, value)
			if err != nil {
				return 0, err
			}
			opBodies = append(opBodies, b)
			return n, nil
		default:
			return 0, unknownField(num)
		}
	})
	if err != nil {
		return nil, err
	}

	if !hasActor || actor == time.InitialActorID {
		return nil, decodeErrorf("change without actor")
	}
	if clientSeq == 0 || clientSeq > uint64(^uint32(0)) {
		return nil, decodeErrorf("change client seq %d out of range", clientSeq)
	}
	if lamport <= time.InitialLamport {
		return nil, decodeErrorf("change lamport %d out of range", lamport)
	}

	id := change.NewID(uint32(clientSeq), lamport, actor)
	ops := make([]operations.Operation, 0, len(opBodies))
	for _, body := range opBodies {
		op, err := fromOperation(body)
		if err != nil {
			return nil, err
		}

		// Nodes created by a change carry the ID of the change.
		executedAt := op.ExecutedAt()
		if executedAt.Lamport() != lamport || executedAt.ActorID() != actor {
			return nil, decodeErrorf("operation %s does not belong to change", executedAt)
		}
		ops = append(ops, op)
	}

	return change.New(id, ops), nil
}

func fromOperation(data []byte) (operations.Operation, error) {
	var op operations.Operation
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if op != nil {
			return 0, decodeErrorf("operation with more than one body")
		}

		b, n, err := consumeBytes(num, typ, value)
		if err != nil {
			return 0, err
		}

		switch num {
		case operationInsert:
			op, err = fromInsert(b)
		case operationRemove:
			op, err = fromRemove(b)
		default:
			err = unknownField(num)
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	if op == nil {
		return nil, decodeErrorf("operation without body")
	}
	return op, nil
}

func fromInsert(data []byte) (*operations.Insert, error) {
	var origin, createdAt time.Ticket
	var content string

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		b, n, err := consumeBytes(num, typ, value)
		if err != nil {
			return 0, err
		}

		switch num {
		case insertOrigin:
			origin, err = fromTicket(b)
		case insertCreatedAt:
			createdAt, err = fromTicket(b)
		case insertContent:
			if !utf8.Valid(b) {
				err = decodeErrorf("insert content is not valid utf-8")
			}
			content = string(b)
		default:
			err = unknownField(num)
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	return operations.NewInsert(origin, createdAt, content), nil
}

func fromRemove(data []byte) (*operations.Remove, error) {
	var executedAt time.Ticket
	var targets []time.Ticket

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		b, n, err := consumeBytes(num, typ, value)
		if err != nil {
			return 0, err
		}

		switch num {
		case removeExecutedAt:
			executedAt, err = fromTicket(b)
		case removeTargets:
			var target time.Ticket
			if target, err = fromTicket(b); err == nil {
				if target.IsInitial() {
					err = decodeErrorf("remove targets the head")
				}
				targets = append(targets, target)
			}
		default:
			err = unknownField(num)
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	return operations.NewRemove(targets, executedAt), nil
}

func fromTicket(data []byte) (time.Ticket, error) {
	var lamport int64
	var delimiter uint64
	actor := time.InitialActorID

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch num {
		case ticketLamport:
			v, n, err := consumeLamport(num, typ, value)
			if err != nil {
				return 0, err
			}
			lamport = v
			return n, nil
		case ticketDelimiter:
			v, n, err := consumeVarint(num, typ, value)
			if err != nil {
				return 0, err
			}
			if v > uint64(^uint32(0)) {
				return 0, decodeErrorf("ticket delimiter %d overflows", v)
			}
			delimiter = v
			return n, nil
		case ticketActor:
			b, n, err := consumeBytes(num, typ, value)
			if err != nil {
				return 0, err
			}
			if actor, err = time.ActorIDFromBytes(b); err != nil {
				return 0, decodeErrorf("ticket actor: %v", err)
			}
			return n, nil
		default:
			return 0, unknownField(num)
		}
	})
	if err != nil {
		return time.InitialTicket, err
	}

	return time.NewTicket(lamport, uint32(delimiter), actor), nil
}

// FromVersionVector converts the given bytes to a version vector.
func FromVersionVector(data []byte) (time.VersionVector, error) {
	vector := time.NewVersionVector()
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if num != versionVectorEntries {
			return 0, unknownField(num)
		}

		b, n, err := consumeBytes(num, typ, value)
		if err != nil {
			return 0, err
		}

		var actor time.ActorID
		var lamport int64
		if err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
			switch num {
			case entryActor:
				b, n, err := consumeBytes(num, typ, value)
				if err != nil {
					return 0, err
				}
				if actor, err = time.ActorIDFromBytes(b); err != nil {
					return 0, decodeErrorf("version vector actor: %v", err)
				}
				return n, nil
			case entryLamport:
				v, n, err := consumeLamport(num, typ, value)
				if err != nil {
					return 0, err
				}
				lamport = v
				return n, nil
			default:
				return 0, unknownField(num)
			}
		}); err != nil {
			return 0, err
		}

		if _, ok := vector[actor]; ok {
			return 0, decodeErrorf("duplicated version vector entry %s", actor)
		}
		vector.Set(actor, lamport)
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	return vector, nil
}

// FromSnapshot returns the full update stored in the given snapshot.
func FromSnapshot(data []byte) ([]byte, error) {
	var format uint64
	var update []byte

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch num {
		case snapshotFormat:
			v, n, err := consumeVarint(num, typ, value)
			if err != nil {
				return 0, err
			}
			format = v
			return n, nil
		case snapshotUpdate:
			b, n, err := consumeBytes(num, typ, value)
			if err != nil {
				return 0, err
			}
			update = b
			return n, nil
		default:
			return 0, unknownField(num)
		}
	})
	if err != nil {
		return nil, err
	}

	if format != SnapshotFormat {
		return nil, decodeErrorf("snapshot format %d is not supported", format)
	}
	return update, nil
}

// FromMessage converts the given frame to a protocol message.
func FromMessage(data []byte) (types.MessageType, []byte, error) {
	var t types.MessageType
	var payload []byte

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch num {
		case messageType:
			v, n, err := consumeVarint(num, typ, value)
			if err != nil {
				return 0, err
			}
			if v > uint64(types.Awareness) {
				return 0, decodeErrorf("message type %d", v)
			}
			t = types.MessageType(v)
			return n, nil
		case messagePayload:
			b, n, err := consumeBytes(num, typ, value)
			if err != nil {
				return 0, err
			}
			payload = b
			return n, nil
		default:
			return 0, unknownField(num)
		}
	})
	if err != nil {
		return 0, nil, err
	}

	if !t.IsValid() {
		return 0, nil, decodeErrorf("message type %d", int(t))
	}
	return t, payload, nil
}
