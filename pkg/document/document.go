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

// Package document provides the replicated text document. A Document can be
// edited locally and merged with the changes of other replicas in any order;
// replicas that have merged the same changes hold the same text.
package document

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
	"github.com/yorkie-team/docsync/pkg/errors"
)

var (
	// ErrInvalidPosition is returned when a local edit refers to a position
	// outside of the text.
	ErrInvalidPosition = errors.InvalidArgument("invalid position").WithCode("ErrInvalidPosition")

	// ErrInvalidContent is returned when inserted content is not valid UTF-8.
	ErrInvalidContent = errors.InvalidArgument("invalid content").WithCode("ErrInvalidContent")

	// ErrLamportOutOfRange is returned when a merged change moves the clock
	// further than the drift allowed by SetMaxLamportDrift.
	ErrLamportOutOfRange = errors.InvalidArgument("lamport out of range").WithCode("ErrLamportOutOfRange")
)

// pendingKey identifies a change that is waiting for its dependencies.
type pendingKey struct {
	actor     time.ActorID
	clientSeq uint32
}

// Document represents a replica of a text document.
type Document struct {
	// key is the key of the document.
	key string

	// changeID is the ID of the last local change.
	changeID change.ID

	// text is the replicated text.
	text *crdt.RGA

	// lamport is the greatest lamport timestamp seen by this replica.
	lamport int64

	// vector maps each actor to the lamport of its last applied change.
	vector time.VersionVector

	// seqs maps each actor to the client sequence of its last applied change.
	seqs map[time.ActorID]uint32

	// history holds every applied change in the order of application.
	history []*change.Change

	// pending holds the changes whose dependencies have not arrived yet.
	pending map[pendingKey]*change.Change

	// maxLamportDrift bounds the clock gaps of merged updates. Zero means
	// no bound.
	maxLamportDrift int64
}

// New creates a new instance of Document with a fresh actor.
func New(key string) *Document {
	actor := time.NewActorID()
	return &Document{
		key:      key,
		changeID: change.NewID(0, time.InitialLamport, actor),
		text:     crdt.NewRGA(),
		vector:   time.NewVersionVector(),
		seqs:     make(map[time.ActorID]uint32),
		pending:  make(map[pendingKey]*change.Change),
	}
}

// DecodeFull creates a new Document from the given full update.
func DecodeFull(key string, update []byte) (*Document, error) {
	doc := New(key)
	if _, err := doc.MergeBytes(update); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromSnapshot creates a new Document from the given snapshot.
func FromSnapshot(key string, snapshot []byte) (*Document, error) {
	update, err := converter.FromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	return DecodeFull(key, update)
}

// Key returns the key of this document.
func (d *Document) Key() string {
	return d.key
}

// ActorID returns the actor of this replica.
func (d *Document) ActorID() time.ActorID {
	return d.changeID.Actor()
}

// SetActor sets the actor of this replica. It must be called before the
// first local change.
func (d *Document) SetActor(actor time.ActorID) {
	d.changeID = change.NewID(d.changeID.ClientSeq(), d.changeID.Lamport(), actor)
}

// SetMaxLamportDrift bounds how far the changes of a merged update may move
// the clock of this replica. Walking the changes of the update in lamport
// order, each one may be at most drift ahead of the greatest lamport seen
// before it; otherwise the whole update is refused with ErrLamportOutOfRange.
func (d *Document) SetMaxLamportDrift(drift int64) {
	d.maxLamportDrift = drift
}

// Lamport returns the greatest lamport timestamp seen by this replica.
func (d *Document) Lamport() int64 {
	return d.lamport
}

// VersionVector returns a copy of the version vector of this replica.
func (d *Document) VersionVector() time.VersionVector {
	return d.vector.DeepCopy()
}

// String returns the visible text of this document.
func (d *Document) String() string {
	return d.text.String()
}

// Len returns the number of runes of the visible text.
func (d *Document) Len() int {
	return d.text.Len()
}

// HasPending returns whether some merged changes wait for their dependencies.
func (d *Document) HasPending() bool {
	return len(d.pending) > 0
}

// Insert inserts the given content at the given position and returns the
// encoded update of the change.
func (d *Document) Insert(pos int, content string) ([]byte, error) {
	return d.ApplyLocalChange(InsertText{Pos: pos, Content: content})
}

// Delete removes length runes from the given position and returns the
// encoded update of the change.
func (d *Document) Delete(pos, length int) ([]byte, error) {
	return d.ApplyLocalChange(DeleteText{Pos: pos, Length: length})
}

// ApplyLocalChange applies the given edits as a single change and returns the
// encoded update carrying exactly that change. Positions of each edit refer
// to the text after the previous edits. Either every edit is applied or none
// of them. It returns nil if the edits change nothing.
func (d *Document) ApplyLocalChange(edits ...Edit) ([]byte, error) {
	length := d.text.Len()
	for _, edit := range edits {
		next, err := edit.validate(length)
		if err != nil {
			return nil, err
		}
		length = next
	}

	ctx := change.NewContext(d.changeID.Next(d.lamport))
	for _, edit := range edits {
		if err := edit.apply(ctx, d.text); err != nil {
			return nil, fmt.Errorf("apply local edit: %w", err)
		}
	}

	if !ctx.HasChange() {
		return nil, nil
	}

	c := ctx.ToChange()
	d.changeID = c.ID()
	d.record(c)

	return converter.ToUpdate([]*change.Change{c}), nil
}

// MergeBytes decodes the given update and merges it. It returns the encoded
// update of the changes that were applied for the first time, or nil if
// there are none.
func (d *Document) MergeBytes(update []byte) ([]byte, error) {
	changes, err := converter.FromUpdate(update)
	if err != nil {
		return nil, err
	}

	applied, err := d.Merge(changes)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, nil
	}

	return converter.ToUpdate(applied), nil
}

// Merge integrates the given changes of other replicas. Changes that were
// already merged are ignored, and changes whose dependencies are missing wait
// until the dependencies arrive. It returns the changes that were applied by
// this call, including earlier pending changes that became applicable.
func (d *Document) Merge(changes []*change.Change) ([]*change.Change, error) {
	if err := d.checkDrift(changes); err != nil {
		return nil, err
	}

	for _, c := range changes {
		id := c.ID()
		if id.ClientSeq() <= d.seqs[id.Actor()] {
			continue
		}

		key := pendingKey{actor: id.Actor(), clientSeq: id.ClientSeq()}
		if _, ok := d.pending[key]; ok {
			continue
		}
		d.pending[key] = c
	}

	var applied []*change.Change
	for progress := true; progress; {
		progress = false
		for _, c := range d.sortedPending() {
			if !d.isApplicable(c) {
				continue
			}

			id := c.ID()
			delete(d.pending, pendingKey{actor: id.Actor(), clientSeq: id.ClientSeq()})

			// A change of an actor must move its clock forward. One that
			// does not is discarded.
			if id.Lamport() <= d.vector.VersionOf(id.Actor()) {
				d.seqs[id.Actor()] = id.ClientSeq()
				progress = true
				continue
			}

			if err := c.Execute(d.text); err != nil {
				return applied, fmt.Errorf("execute change %d of %s: %w", id.ClientSeq(), id.Actor(), err)
			}
			d.record(c)
			applied = append(applied, c)
			progress = true
		}
	}

	return applied, nil
}

// EncodeFull encodes every change known to this replica. Applied changes are
// sorted by their IDs and followed by the pending ones, so replicas that
// merged the same changes produce the same bytes.
func (d *Document) EncodeFull() []byte {
	changes := make([]*change.Change, len(d.history))
	copy(changes, d.history)
	sortChanges(changes)

	return converter.ToUpdate(append(changes, d.sortedPending()...))
}

// EncodeSince encodes the changes that a replica at the given version vector
// does not have yet. Pending changes are always included.
func (d *Document) EncodeSince(vector time.VersionVector) []byte {
	var changes []*change.Change
	for _, c := range d.history {
		if c.ID().Lamport() > vector.VersionOf(c.ID().Actor()) {
			changes = append(changes, c)
		}
	}
	sortChanges(changes)

	return converter.ToUpdate(append(changes, d.sortedPending()...))
}

// Snapshot encodes the full state of this document as a snapshot.
func (d *Document) Snapshot() []byte {
	return converter.ToSnapshot(d.EncodeFull())
}

// StructureAsString returns a string containing the metadata of the text
// for debugging purpose.
func (d *Document) StructureAsString() string {
	return d.text.StructureAsString()
}

func (d *Document) record(c *change.Change) {
	id := c.ID()
	d.seqs[id.Actor()] = id.ClientSeq()
	d.vector.Set(id.Actor(), id.Lamport())
	if id.Lamport() > d.lamport {
		d.lamport = id.Lamport()
	}
	d.history = append(d.history, c)
}

func (d *Document) checkDrift(changes []*change.Change) error {
	if d.maxLamportDrift <= 0 || len(changes) == 0 {
		return nil
	}

	lamports := make([]int64, len(changes))
	for i, c := range changes {
		lamports[i] = c.ID().Lamport()
	}
	sort.Slice(lamports, func(i, j int) bool { return lamports[i] < lamports[j] })

	seen := d.lamport
	for _, lamport := range lamports {
		if lamport-seen > d.maxLamportDrift {
			return fmt.Errorf("lamport %d after %d: %w", lamport, seen, ErrLamportOutOfRange)
		}
		if lamport > seen {
			seen = lamport
		}
	}
	return nil
}

func (d *Document) isApplicable(c *change.Change) bool {
	id := c.ID()
	if id.ClientSeq() != d.seqs[id.Actor()]+1 {
		return false
	}

	for _, dep := range c.Dependencies() {
		if !d.text.Has(dep) {
			return false
		}
	}

	return true
}

func (d *Document) sortedPending() []*change.Change {
	changes := make([]*change.Change, 0, len(d.pending))
	for _, c := range d.pending {
		changes = append(changes, c)
	}
	sortChanges(changes)
	return changes
}

func sortChanges(changes []*change.Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].ID().Compare(changes[j].ID()) < 0
	})
}

// Edit is a local edit of the text.
type Edit interface {
	// validate returns the length of the text after this edit is applied to
	// a text of the given length.
	validate(length int) (int, error)

	// apply pushes the operation of this edit to the given context and
	// executes it.
	apply(ctx *change.Context, text *crdt.RGA) error
}

// InsertText inserts Content at Pos.
type InsertText struct {
	Pos     int
	Content string
}

func (e InsertText) validate(length int) (int, error) {
	if e.Pos < 0 || e.Pos > length {
		return 0, fmt.Errorf("insert at %d of %d: %w", e.Pos, length, ErrInvalidPosition)
	}
	if !utf8.ValidString(e.Content) {
		return 0, fmt.Errorf("insert at %d: %w", e.Pos, ErrInvalidContent)
	}
	return length + utf8.RuneCountInString(e.Content), nil
}

func (e InsertText) apply(ctx *change.Context, text *crdt.RGA) error {
	if e.Content == "" {
		return nil
	}

	origin, err := text.OriginAt(e.Pos)
	if err != nil {
		return err
	}

	op := operations.NewInsert(origin, ctx.IssueTimeTickets(utf8.RuneCountInString(e.Content)), e.Content)
	if err := op.Execute(text); err != nil {
		return err
	}
	ctx.Push(op)
	return nil
}

// DeleteText removes Length runes starting at Pos.
type DeleteText struct {
	Pos    int
	Length int
}

func (e DeleteText) validate(length int) (int, error) {
	if e.Pos < 0 || e.Length < 0 || e.Pos+e.Length > length {
		return 0, fmt.Errorf("delete %d:%d of %d: %w", e.Pos, e.Length, length, ErrInvalidPosition)
	}
	return length - e.Length, nil
}

func (e DeleteText) apply(ctx *change.Context, text *crdt.RGA) error {
	if e.Length == 0 {
		return nil
	}

	targets, err := text.VisibleRange(e.Pos, e.Length)
	if err != nil {
		return err
	}

	op := operations.NewRemove(targets, ctx.IssueTimeTicket())
	if err := op.Execute(text); err != nil {
		return err
	}
	ctx.Push(op)
	return nil
}
