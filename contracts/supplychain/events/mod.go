// Package events implements the append-only log of the accepted mutations.
//
// The log lives in the same snapshot as the records it describes, so an event
// exists if and only if its mutation has been committed. Every event is indexed
// by kind, actor and subject so that an auditor can follow a batch or a
// participant without scanning the whole log.
//
// Documentation Last Review: 14.10.2026
//
package events

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"golang.org/x/xerrors"
)

// Namespace is the prefix of the keys of the log in the store.
const Namespace = "coffeetrace.events"

const (
	logList     = "log"
	kindList    = "kind/"
	actorList   = "actor/"
	subjectList = "subject/"
)

// Query selects events. Empty fields match every event.
type Query struct {
	Kind    types.EventKind
	Actor   *access.Address
	Subject []byte

	// From is the first index to consider.
	From uint64

	// Limit is the maximum number of events returned, or unlimited when it is
	// zero.
	Limit int
}

// Log is the event log stored in a snapshot.
type Log struct {
	snap store.Snapshot
}

// NewLog returns the log stored in the snapshot.
func NewLog(snap store.Snapshot) Log {
	return Log{
		snap: prefixed.NewSnapshot(Namespace, snap),
	}
}

// Append adds the event at the end of the log and returns its index. The index
// of the given event is ignored.
func (l Log) Append(event types.Event) (uint64, error) {
	index, err := l.length(logList)
	if err != nil {
		return 0, xerrors.Errorf("failed to read length: %v", err)
	}

	event.Index = index

	data, err := json.Marshal(event)
	if err != nil {
		return 0, xerrors.Errorf("failed to encode event: %v", err)
	}

	err = l.snap.Set(entryKey(logList, index), data)
	if err != nil {
		return 0, xerrors.Errorf("failed to store event: %v", err)
	}

	err = l.snap.Set(lengthKey(logList), encodeUint64(index+1))
	if err != nil {
		return 0, xerrors.Errorf("failed to store length: %v", err)
	}

	for _, name := range listsOf(event) {
		err = l.push(name, index)
		if err != nil {
			return 0, xerrors.Errorf("failed to index event: %v", err)
		}
	}

	return index, nil
}

// Len returns the number of events in the log.
func (l Log) Len() (uint64, error) {
	return l.length(logList)
}

// Get returns the event at the given index.
func (l Log) Get(index uint64) (types.Event, error) {
	var event types.Event

	data, err := l.snap.Get(entryKey(logList, index))
	if err != nil {
		return event, xerrors.Errorf("failed to read event: %v", err)
	}

	if data == nil {
		return event, xerrors.Errorf("event %d not found", index)
	}

	err = json.Unmarshal(data, &event)
	if err != nil {
		return event, xerrors.Errorf("failed to decode event: %v", err)
	}

	return event, nil
}

// Filter returns the events matching the query in the order of the log. It
// walks the shortest index among the criteria of the query.
func (l Log) Filter(q Query) ([]types.Event, error) {
	lists := make([]string, 0, 3)

	if q.Kind != "" {
		lists = append(lists, kindList+string(q.Kind))
	}

	if q.Actor != nil {
		lists = append(lists, actorList+q.Actor.String())
	}

	if q.Subject != nil {
		lists = append(lists, subjectList+hex.EncodeToString(q.Subject))
	}

	name := logList
	size, err := l.length(logList)
	if err != nil {
		return nil, xerrors.Errorf("failed to read length: %v", err)
	}

	for _, list := range lists {
		n, err := l.length(list)
		if err != nil {
			return nil, xerrors.Errorf("failed to read length: %v", err)
		}

		if n <= size {
			name = list
			size = n
		}
	}

	res := []types.Event{}

	for i := uint64(0); i < size; i++ {
		index := i

		if name != logList {
			index, err = l.entry(name, i)
			if err != nil {
				return nil, xerrors.Errorf("failed to read index: %v", err)
			}
		}

		if index < q.From {
			continue
		}

		event, err := l.Get(index)
		if err != nil {
			return nil, err
		}

		if !q.match(event) {
			continue
		}

		res = append(res, event)

		if q.Limit > 0 && len(res) >= q.Limit {
			break
		}
	}

	return res, nil
}

func (q Query) match(event types.Event) bool {
	if q.Kind != "" && q.Kind != event.Kind {
		return false
	}

	if q.Actor != nil && *q.Actor != event.Actor {
		return false
	}

	if q.Subject != nil && !bytes.Equal(q.Subject, event.Subject) {
		return false
	}

	return true
}

func (l Log) push(name string, index uint64) error {
	n, err := l.length(name)
	if err != nil {
		return err
	}

	err = l.snap.Set(entryKey(name, n), encodeUint64(index))
	if err != nil {
		return err
	}

	return l.snap.Set(lengthKey(name), encodeUint64(n+1))
}

func (l Log) length(name string) (uint64, error) {
	data, err := l.snap.Get(lengthKey(name))
	if err != nil {
		return 0, err
	}

	return decodeUint64(data)
}

func (l Log) entry(name string, n uint64) (uint64, error) {
	data, err := l.snap.Get(entryKey(name, n))
	if err != nil {
		return 0, err
	}

	return decodeUint64(data)
}

func listsOf(event types.Event) []string {
	return []string{
		kindList + string(event.Kind),
		actorList + event.Actor.String(),
		subjectList + hex.EncodeToString(event.Subject),
	}
}

func lengthKey(name string) []byte {
	return []byte(name + "#len")
}

func entryKey(name string, n uint64) []byte {
	return append([]byte(name+"#"), encodeUint64(n)...)
}

func encodeUint64(v uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, v)

	return buffer
}

func decodeUint64(data []byte) (uint64, error) {
	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, xerrors.Errorf("invalid counter of %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}
