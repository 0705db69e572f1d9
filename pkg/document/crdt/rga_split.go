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

// Package crdt provides the replicated data types the document is built on.
package crdt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/manuscript-team/manuscript/pkg/document/time"
)

var initialNodeID = NewNodeID(time.InitialTicket, 0)

// NodeID is the ID of a Node. A node is identified by the ticket of the edit
// that created it plus the byte offset of the node within that edit, so that
// split halves of one insertion stay addressable.
type NodeID struct {
	createdAt *time.Ticket
	offset    int

	// cachedKey is the cache of the string representation of the ID.
	cachedKey string
}

// NewNodeID creates a new instance of NodeID.
func NewNodeID(createdAt *time.Ticket, offset int) *NodeID {
	return &NodeID{
		createdAt: createdAt,
		offset:    offset,
	}
}

// CreatedAt returns the creation time of this ID.
func (id *NodeID) CreatedAt() *time.Ticket {
	return id.createdAt
}

// Offset returns the offset of this ID.
func (id *NodeID) Offset() int {
	return id.offset
}

// Split creates a new ID with an offset from this ID.
func (id *NodeID) Split(offset int) *NodeID {
	return NewNodeID(id.createdAt, id.offset+offset)
}

// Equal returns whether the given ID equals this ID or not.
func (id *NodeID) Equal(other *NodeID) bool {
	return id.createdAt.Compare(other.createdAt) == 0 && id.offset == other.offset
}

func (id *NodeID) hasSameCreatedAt(other *NodeID) bool {
	return id.createdAt.Compare(other.createdAt) == 0
}

// key returns a string representation of the ID. The result is cached to
// prevent instantiation of a new string on every lookup.
func (id *NodeID) key() string {
	if id.cachedKey == "" {
		id.cachedKey = id.createdAt.Key() + ":" + strconv.Itoa(id.offset)
	}

	return id.cachedKey
}

// NodePos is the position of a byte inside a node. Positions are exchanged
// between replicas instead of plain indexes because they stay stable while
// concurrent edits shift the document around them.
type NodePos struct {
	id             *NodeID
	relativeOffset int
}

// NewNodePos creates a new instance of NodePos.
func NewNodePos(id *NodeID, relativeOffset int) *NodePos {
	return &NodePos{id, relativeOffset}
}

// ID returns the ID of this NodePos.
func (pos *NodePos) ID() *NodeID {
	return pos.id
}

// RelativeOffset returns the relative offset of this NodePos.
func (pos *NodePos) RelativeOffset() int {
	return pos.relativeOffset
}

// Equal returns whether the given pos equals this pos or not.
func (pos *NodePos) Equal(other *NodePos) bool {
	return pos.id.Equal(other.id) && pos.relativeOffset == other.relativeOffset
}

func (pos *NodePos) getAbsoluteID() *NodeID {
	return NewNodeID(pos.id.createdAt, pos.id.offset+pos.relativeOffset)
}

// Node is a block of contiguous text inserted by a single edit. Deletion only
// marks the removal time (tombstone); removed nodes keep their place in the
// sequence so that concurrent positions still resolve.
type Node struct {
	id        *NodeID
	value     string
	removedAt *time.Ticket

	prev    *Node
	next    *Node
	insPrev *Node
	insNext *Node
}

// NewNode creates a new instance of Node.
func NewNode(id *NodeID, value string) *Node {
	return &Node{
		id:    id,
		value: value,
	}
}

// ID returns the ID of this Node.
func (n *Node) ID() *NodeID {
	return n.id
}

// InsPrevID returns the ID of the previous node at the time of this node's
// insertion.
func (n *Node) InsPrevID() *NodeID {
	if n.insPrev == nil {
		return nil
	}

	return n.insPrev.id
}

// Value returns the value of this node.
func (n *Node) Value() string {
	return n.value
}

// RemovedAt returns the removal time of this node.
func (n *Node) RemovedAt() *time.Ticket {
	return n.removedAt
}

func (n *Node) contentLen() int {
	return len(n.value)
}

// Len returns the visible length of this node in bytes.
func (n *Node) Len() int {
	if n.removedAt != nil {
		return 0
	}
	return n.contentLen()
}

func (n *Node) createdAt() *time.Ticket {
	return n.id.createdAt
}

// SetInsPrev sets the previous node of this node at insertion time.
func (n *Node) SetInsPrev(node *Node) {
	n.insPrev = node
	node.insNext = n
}

func (n *Node) setPrev(node *Node) {
	n.prev = node
	node.next = n
}

func (n *Node) split(offset int) *Node {
	newNode := NewNode(n.id.Split(offset), n.value[offset:])
	newNode.removedAt = n.removedAt
	n.value = n.value[:offset]
	return newNode
}

// Remove removes this node if it was created before the deletion was issued
// and has not already been removed by a later deletion. latestCreatedAt bounds
// what the deleting replica had seen, so content inserted concurrently with
// the deletion survives it.
func (n *Node) Remove(removedAt *time.Ticket, latestCreatedAt *time.Ticket) bool {
	if !n.createdAt().After(latestCreatedAt) &&
		(n.removedAt == nil || removedAt.After(n.removedAt)) {
		n.removedAt = removedAt
		return true
	}
	return false
}

// DeepCopy returns a copy of this node without structural info.
func (n *Node) DeepCopy() *Node {
	return &Node{
		id:        n.id,
		value:     n.value,
		removedAt: n.removedAt,
	}
}

// Split is a block-based replicated list of text nodes. Blocks are split on
// edit so that CRDT metadata is kept per run of inserted text rather than per
// byte. Two indexes are kept besides the linked list: nodes grouped by the
// creating ticket for ID lookups, and a map of tombstones for purging.
type Split struct {
	initialHead *Node

	// nodesByCreatedAt groups nodes by the key of their creation ticket,
	// sorted by offset, for floor lookups when resolving remote positions.
	nodesByCreatedAt map[string][]*Node

	// removedNodes stores tombstones until they are physically purged.
	removedNodes map[string]*Node
}

// NewSplit creates a new instance of Split with a zero-length sentinel head.
func NewSplit() *Split {
	head := NewNode(initialNodeID, "")
	return &Split{
		initialHead:      head,
		nodesByCreatedAt: map[string][]*Node{initialNodeID.createdAt.Key(): {head}},
		removedNodes:     make(map[string]*Node),
	}
}

// InitialHead returns the sentinel head node of this Split.
func (s *Split) InitialHead() *Node {
	return s.initialHead
}

// Len returns the visible length of the whole list in bytes.
func (s *Split) Len() int {
	length := 0
	for node := s.initialHead.next; node != nil; node = node.next {
		length += node.Len()
	}
	return length
}

// String returns the visible content of the list.
func (s *Split) String() string {
	builder := strings.Builder{}
	for node := s.initialHead.next; node != nil; node = node.next {
		if node.removedAt == nil {
			builder.WriteString(node.value)
		}
	}
	return builder.String()
}

// CreateRange returns a pair of NodePos for the given byte offsets.
func (s *Split) CreateRange(from, to int) (*NodePos, *NodePos, error) {
	fromPos, err := s.findNodePos(from)
	if err != nil {
		return nil, nil, err
	}
	if from == to {
		return fromPos, fromPos, nil
	}

	toPos, err := s.findNodePos(to)
	if err != nil {
		return nil, nil, err
	}

	return fromPos, toPos, nil
}

// findNodePos resolves a byte index to a stable position. The boundary
// between two nodes belongs to the left node.
func (s *Split) findNodePos(index int) (*NodePos, error) {
	if index < 0 {
		return nil, fmt.Errorf("index %d: %w", index, ErrIndexOutOfBounds)
	}
	if index == 0 {
		return NewNodePos(s.initialHead.id, 0), nil
	}

	remaining := index
	for node := s.initialHead.next; node != nil; node = node.next {
		length := node.Len()
		if length == 0 {
			continue
		}
		if remaining <= length {
			return NewNodePos(node.id, remaining), nil
		}
		remaining -= length
	}

	return nil, fmt.Errorf("index %d beyond length %d: %w", index, s.Len(), ErrIndexOutOfBounds)
}

// findNodeWithSplit splits the node at the given position and then skips over
// nodes that were inserted after the edit was issued. Skipping orders
// concurrent insertions at the same position deterministically on every
// replica, regardless of delivery order.
func (s *Split) findNodeWithSplit(pos *NodePos, updatedAt *time.Ticket) (*Node, *Node, error) {
	absoluteID := pos.getAbsoluteID()
	node, err := s.findFloorNodePreferToLeft(absoluteID)
	if err != nil {
		return nil, nil, err
	}

	relativeOffset := absoluteID.offset - node.id.offset
	if _, err := s.splitNode(node, relativeOffset); err != nil {
		return nil, nil, err
	}

	for node.next != nil && node.next.createdAt().After(updatedAt) {
		node = node.next
	}

	return node, node.next, nil
}

func (s *Split) findFloorNodePreferToLeft(id *NodeID) (*Node, error) {
	node := s.findFloorNode(id)
	if node == nil {
		return nil, fmt.Errorf("node of id %s: %w", id.key(), ErrNodeNotFound)
	}

	if id.offset > 0 && node.id.offset == id.offset {
		// NOTE: insPrev may not be present due to tombstone purging.
		if node.insPrev == nil {
			return node, nil
		}
		node = node.insPrev
	}

	return node, nil
}

// findFloorNode returns the node with the same creation ticket and the
// greatest offset not exceeding the given ID's offset. Split boundaries may
// differ between replicas, so an exact match cannot be assumed.
func (s *Split) findFloorNode(id *NodeID) *Node {
	nodes, ok := s.nodesByCreatedAt[id.createdAt.Key()]
	if !ok || len(nodes) == 0 {
		return nil
	}

	idx := sort.Search(len(nodes), func(i int) bool {
		return nodes[i].id.offset > id.offset
	})
	if idx == 0 {
		return nil
	}

	return nodes[idx-1]
}

func (s *Split) indexNode(node *Node) {
	k := node.id.createdAt.Key()
	nodes := s.nodesByCreatedAt[k]
	idx := sort.Search(len(nodes), func(i int) bool {
		return nodes[i].id.offset > node.id.offset
	})
	nodes = append(nodes, nil)
	copy(nodes[idx+1:], nodes[idx:])
	nodes[idx] = node
	s.nodesByCreatedAt[k] = nodes
}

func (s *Split) unindexNode(node *Node) {
	k := node.id.createdAt.Key()
	nodes := s.nodesByCreatedAt[k]
	for i, candidate := range nodes {
		if candidate == node {
			s.nodesByCreatedAt[k] = append(nodes[:i], nodes[i+1:]...)
			return
		}
	}
}

func (s *Split) splitNode(node *Node, offset int) (*Node, error) {
	if offset > node.contentLen() {
		return nil, fmt.Errorf("offset %d larger than node length %d: %w",
			offset, node.contentLen(), ErrIndexOutOfBounds)
	}

	if offset == 0 {
		return node, nil
	} else if offset == node.contentLen() {
		return node.next, nil
	}

	splitNode := node.split(offset)
	s.InsertAfter(node, splitNode)

	insNext := node.insNext
	if insNext != nil {
		insNext.SetInsPrev(splitNode)
	}
	splitNode.SetInsPrev(node)

	return splitNode, nil
}

// InsertAfter inserts the given node after the given previous node.
func (s *Split) InsertAfter(prev, node *Node) *Node {
	next := prev.next
	node.setPrev(prev)
	if next != nil {
		next.setPrev(node)
	}

	s.indexNode(node)
	return node
}

// FindNode returns the node of the given ID, nil when absent.
func (s *Split) FindNode(id *NodeID) *Node {
	if id == nil {
		return nil
	}

	node := s.findFloorNode(id)
	if node == nil || !node.id.Equal(id) {
		return nil
	}
	return node
}

// edit replaces the given range with the given content. It returns the caret
// position after the edit and the map of the latest creation time per actor
// among the deleted nodes, which remote replicas need to replay the deletion
// without discarding content the editor had not seen.
func (s *Split) edit(
	from *NodePos,
	to *NodePos,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	editedAt *time.Ticket,
) (*NodePos, map[string]*time.Ticket, error) {
	// 01. split nodes at the range boundaries
	toLeft, toRight, err := s.findNodeWithSplit(to, editedAt)
	if err != nil {
		return nil, nil, err
	}
	fromLeft, fromRight, err := s.findNodeWithSplit(from, editedAt)
	if err != nil {
		return nil, nil, err
	}

	// 02. delete the nodes between from and to
	nodesToDelete := s.findBetween(fromRight, toRight)
	latestCreatedAtMap, removedNodes := s.deleteNodes(nodesToDelete, latestCreatedAtMapByActor, editedAt)

	var caretID *NodeID
	if toRight == nil {
		caretID = toLeft.id
	} else {
		caretID = toRight.id
	}
	caretPos := NewNodePos(caretID, 0)

	// 03. insert the new content
	if len(content) > 0 {
		inserted := s.InsertAfter(fromLeft, NewNode(NewNodeID(editedAt, 0), content))
		caretPos = NewNodePos(inserted.id, inserted.contentLen())
	}

	// 04. keep the tombstones for later purging
	for k, removed := range removedNodes {
		s.removedNodes[k] = removed
	}

	return caretPos, latestCreatedAtMap, nil
}

func (s *Split) findBetween(from, to *Node) []*Node {
	var nodes []*Node
	for current := from; current != nil && current != to; current = current.next {
		nodes = append(nodes, current)
	}
	return nodes
}

func (s *Split) deleteNodes(
	candidates []*Node,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	editedAt *time.Ticket,
) (map[string]*time.Ticket, map[string]*Node) {
	createdAtMapByActor := make(map[string]*time.Ticket)
	removedNodes := make(map[string]*Node)

	for _, node := range candidates {
		actorIDHex := node.createdAt().ActorIDHex()

		var latestCreatedAt *time.Ticket
		if latestCreatedAtMapByActor == nil {
			latestCreatedAt = time.MaxTicket
		} else if createdAt, ok := latestCreatedAtMapByActor[actorIDHex]; ok {
			latestCreatedAt = createdAt
		} else {
			latestCreatedAt = time.InitialTicket
		}

		if node.Remove(editedAt, latestCreatedAt) {
			latest := createdAtMapByActor[actorIDHex]
			createdAt := node.id.createdAt
			if latest == nil || createdAt.After(latest) {
				createdAtMapByActor[actorIDHex] = createdAt
			}

			removedNodes[node.id.key()] = node
		}
	}

	return createdAtMapByActor, removedNodes
}

// Nodes returns all nodes of this Split in sequence order, tombstones
// included.
func (s *Split) Nodes() []*Node {
	var nodes []*Node
	for node := s.initialHead.next; node != nil; node = node.next {
		nodes = append(nodes, node)
	}
	return nodes
}

// removedNodesLen returns the number of tombstoned nodes.
func (s *Split) removedNodesLen() int {
	return len(s.removedNodes)
}

// purgeRemovedNodesBefore physically purges tombstones removed at or before
// the given ticket.
func (s *Split) purgeRemovedNodesBefore(ticket *time.Ticket) int {
	count := 0
	for k, node := range s.removedNodes {
		if node.removedAt != nil && ticket.Compare(node.removedAt) >= 0 {
			s.purge(node)
			s.unindexNode(node)
			delete(s.removedNodes, k)
			count++
		}
	}

	return count
}

// purge physically unlinks the given node from this Split.
func (s *Split) purge(node *Node) {
	node.prev.next = node.next
	if node.next != nil {
		node.next.prev = node.prev
	}
	node.prev, node.next = nil, nil

	if node.insPrev != nil {
		node.insPrev.insNext = node.insNext
	}
	if node.insNext != nil {
		node.insNext.insPrev = node.insPrev
	}
	node.insPrev, node.insNext = nil, nil
}
