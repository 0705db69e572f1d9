/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
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

package change

import (
	"encoding/json"
	"errors"
	"fmt"
	gotime "time"

	"github.com/manuscript-team/manuscript/pkg/document/crdt"
	"github.com/manuscript-team/manuscript/pkg/document/key"
	"github.com/manuscript-team/manuscript/pkg/document/operations"
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// ErrInvalidWireFormat is returned when serialized changes cannot be
// decoded.
var ErrInvalidWireFormat = errors.New("invalid wire format")

const (
	opTypeEdit     = "edit"
	opTypeSetTitle = "set_title"
)

type ticketJSON struct {
	Lamport   int64  `json:"lamport"`
	Delimiter uint32 `json:"delimiter"`
	Actor     string `json:"actor"`
}

type posJSON struct {
	CreatedAt      ticketJSON `json:"created_at"`
	Offset         int        `json:"offset"`
	RelativeOffset int        `json:"relative_offset"`
}

type operationJSON struct {
	Type string `json:"type"`

	// edit
	From         *posJSON              `json:"from,omitempty"`
	To           *posJSON              `json:"to,omitempty"`
	MaxCreatedAt map[string]ticketJSON `json:"max_created_at,omitempty"`
	Content      string                `json:"content,omitempty"`

	// set_title
	Title string `json:"title,omitempty"`

	ExecutedAt ticketJSON `json:"executed_at"`
}

type changeJSON struct {
	Actor      string          `json:"actor"`
	ClientSeq  uint32          `json:"client_seq"`
	Lamport    int64           `json:"lamport"`
	Message    string          `json:"message,omitempty"`
	CreatedAt  gotime.Time     `json:"created_at"`
	Operations []operationJSON `json:"operations"`
}

type packJSON struct {
	DocumentKey string            `json:"document_key"`
	Vector      map[string]uint32 `json:"vector"`
	Changes     []changeJSON      `json:"changes"`
}

func ticketToJSON(t *time.Ticket) ticketJSON {
	return ticketJSON{
		Lamport:   t.Lamport(),
		Delimiter: t.Delimiter(),
		Actor:     t.ActorIDHex(),
	}
}

func ticketFromJSON(t ticketJSON) (*time.Ticket, error) {
	actor, err := time.ActorIDFromHex(t.Actor)
	if err != nil {
		return nil, fmt.Errorf("ticket actor %q: %w", t.Actor, ErrInvalidWireFormat)
	}
	return time.NewTicket(t.Lamport, t.Delimiter, actor), nil
}

func posToJSON(pos *crdt.NodePos) *posJSON {
	return &posJSON{
		CreatedAt:      ticketToJSON(pos.ID().CreatedAt()),
		Offset:         pos.ID().Offset(),
		RelativeOffset: pos.RelativeOffset(),
	}
}

func posFromJSON(pos *posJSON) (*crdt.NodePos, error) {
	if pos == nil {
		return nil, fmt.Errorf("missing position: %w", ErrInvalidWireFormat)
	}
	createdAt, err := ticketFromJSON(pos.CreatedAt)
	if err != nil {
		return nil, err
	}
	return crdt.NewNodePos(crdt.NewNodeID(createdAt, pos.Offset), pos.RelativeOffset), nil
}

func operationToJSON(op operations.Operation) (operationJSON, error) {
	switch typed := op.(type) {
	case *operations.Edit:
		maxCreatedAt := make(map[string]ticketJSON, len(typed.MaxCreatedAtMapByActor()))
		for actor, ticket := range typed.MaxCreatedAtMapByActor() {
			maxCreatedAt[actor] = ticketToJSON(ticket)
		}
		return operationJSON{
			Type:         opTypeEdit,
			From:         posToJSON(typed.From()),
			To:           posToJSON(typed.To()),
			MaxCreatedAt: maxCreatedAt,
			Content:      typed.Content(),
			ExecutedAt:   ticketToJSON(typed.ExecutedAt()),
		}, nil
	case *operations.SetTitle:
		return operationJSON{
			Type:       opTypeSetTitle,
			Title:      typed.Title(),
			ExecutedAt: ticketToJSON(typed.ExecutedAt()),
		}, nil
	default:
		return operationJSON{}, fmt.Errorf("operation %T: %w", op, ErrInvalidWireFormat)
	}
}

func operationFromJSON(op operationJSON) (operations.Operation, error) {
	executedAt, err := ticketFromJSON(op.ExecutedAt)
	if err != nil {
		return nil, err
	}

	switch op.Type {
	case opTypeEdit:
		from, err := posFromJSON(op.From)
		if err != nil {
			return nil, err
		}
		to, err := posFromJSON(op.To)
		if err != nil {
			return nil, err
		}
		var maxCreatedAt map[string]*time.Ticket
		if len(op.MaxCreatedAt) > 0 {
			maxCreatedAt = make(map[string]*time.Ticket, len(op.MaxCreatedAt))
			for actor, ticket := range op.MaxCreatedAt {
				decoded, err := ticketFromJSON(ticket)
				if err != nil {
					return nil, err
				}
				maxCreatedAt[actor] = decoded
			}
		}
		return operations.NewEdit(from, to, maxCreatedAt, op.Content, executedAt), nil
	case opTypeSetTitle:
		return operations.NewSetTitle(op.Title, executedAt), nil
	default:
		return nil, fmt.Errorf("operation type %q: %w", op.Type, ErrInvalidWireFormat)
	}
}

func changeToJSON(c *Change) (changeJSON, error) {
	ops := make([]operationJSON, 0, len(c.Operations()))
	for _, op := range c.Operations() {
		encoded, err := operationToJSON(op)
		if err != nil {
			return changeJSON{}, err
		}
		ops = append(ops, encoded)
	}

	return changeJSON{
		Actor:      c.ID().Actor().String(),
		ClientSeq:  c.ID().ClientSeq(),
		Lamport:    c.ID().Lamport(),
		Message:    c.Message(),
		CreatedAt:  c.CreatedAt(),
		Operations: ops,
	}, nil
}

func changeFromJSON(c changeJSON) (*Change, error) {
	actor, err := time.ActorIDFromHex(c.Actor)
	if err != nil {
		return nil, fmt.Errorf("change actor %q: %w", c.Actor, ErrInvalidWireFormat)
	}

	ops := make([]operations.Operation, 0, len(c.Operations))
	for _, op := range c.Operations {
		decoded, err := operationFromJSON(op)
		if err != nil {
			return nil, err
		}
		ops = append(ops, decoded)
	}

	return New(NewID(c.ClientSeq, c.Lamport, actor), c.Message, c.CreatedAt, ops), nil
}

// EncodeChanges serializes changes to JSON.
func EncodeChanges(changes []*Change) ([]byte, error) {
	encoded := make([]changeJSON, 0, len(changes))
	for _, c := range changes {
		e, err := changeToJSON(c)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
	}
	return json.Marshal(encoded)
}

// DecodeChanges deserializes changes encoded by EncodeChanges.
func DecodeChanges(data []byte) ([]*Change, error) {
	var encoded []changeJSON
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidWireFormat)
	}

	changes := make([]*Change, 0, len(encoded))
	for _, e := range encoded {
		c, err := changeFromJSON(e)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// EncodePack serializes a change pack to JSON for the wire.
func EncodePack(pack *Pack) ([]byte, error) {
	changes := make([]changeJSON, 0, len(pack.Changes))
	for _, c := range pack.Changes {
		e, err := changeToJSON(c)
		if err != nil {
			return nil, err
		}
		changes = append(changes, e)
	}

	return json.Marshal(packJSON{
		DocumentKey: pack.DocumentKey.String(),
		Vector:      pack.Vector,
		Changes:     changes,
	})
}

// DecodePack deserializes a change pack encoded by EncodePack.
func DecodePack(data []byte) (*Pack, error) {
	var encoded packJSON
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidWireFormat)
	}

	k, err := key.FromString(encoded.DocumentKey)
	if err != nil {
		return nil, fmt.Errorf("document key %q: %w", encoded.DocumentKey, ErrInvalidWireFormat)
	}

	changes := make([]*Change, 0, len(encoded.Changes))
	for _, e := range encoded.Changes {
		c, err := changeFromJSON(e)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	vector := NewVector()
	for actor, seq := range encoded.Vector {
		vector.Forward(actor, seq)
	}
	return NewPack(k, vector, changes), nil
}
