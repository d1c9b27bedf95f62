package repo

import (
	"slices"

	"github.com/segmentio/kafka-go"
)

type partitionKey struct {
	topic     string
	partition int
}

type partitionOffsets struct {
	inFlight []int64 // fetched and not yet committable, ascending
	done     map[int64]bool
}

// offsetTracker decides how far each partition may be committed when messages are handled
// concurrently. A partition's commit point is the last offset of the acked prefix of its fetched
// messages. Callers serialize access.
type offsetTracker struct {
	partitions map[partitionKey]*partitionOffsets
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[partitionKey]*partitionOffsets)}
}

func (t *offsetTracker) fetched(m kafka.Message) {
	key := partitionKey{m.Topic, m.Partition}
	p, ok := t.partitions[key]
	// An offset at or below the newest one seen means the partition was reassigned and replayed.
	if !ok || (len(p.inFlight) > 0 && m.Offset <= p.inFlight[len(p.inFlight)-1]) {
		p = &partitionOffsets{done: make(map[int64]bool)}
		t.partitions[key] = p
	}
	p.inFlight = append(p.inFlight, m.Offset)
}

// acked marks m handled and returns the message to commit when the partition's commit point moved.
func (t *offsetTracker) acked(m kafka.Message) (kafka.Message, bool) {
	p, ok := t.partitions[partitionKey{m.Topic, m.Partition}]
	if !ok {
		return kafka.Message{}, false
	}
	// Acks for messages fetched before a reassignment are ignored.
	if _, found := slices.BinarySearch(p.inFlight, m.Offset); !found {
		return kafka.Message{}, false
	}
	p.done[m.Offset] = true

	var (
		upTo  int64
		moved bool
	)
	for len(p.inFlight) > 0 && p.done[p.inFlight[0]] {
		upTo = p.inFlight[0]
		delete(p.done, upTo)
		p.inFlight = p.inFlight[1:]
		moved = true
	}
	if !moved {
		return kafka.Message{}, false
	}
	return kafka.Message{Topic: m.Topic, Partition: m.Partition, Offset: upTo}, true
}
