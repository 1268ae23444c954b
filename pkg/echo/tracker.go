package echo

// Tracker remembers which echo requests went out and when, so a ping loop can
// match replies, spot duplicates and give up on the ones that never return.

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// lostMarker is appended to ReceivedAtNs when a request times out.
const lostMarker int64 = 0

type TrackerEntry struct {
	SentAtNs     int64
	ReceivedAtNs []int64
	Lost         bool
}

func (ent *TrackerEntry) HasReceived() bool {
	if ent == nil {
		return false
	}
	return len(ent.ReceivedAtNs) > 0 && !ent.Lost
}

func (ent *TrackerEntry) HasDup() bool {
	if ent == nil {
		return false
	}
	return len(ent.ReceivedAtNs) > 1
}

func (ent *TrackerEntry) RTTs() []time.Duration {
	if ent == nil || ent.Lost {
		return nil
	}

	deltas := make([]time.Duration, 0, len(ent.ReceivedAtNs))
	for _, receivedAt := range ent.ReceivedAtNs {
		deltas = append(deltas, time.Duration(receivedAt-ent.SentAtNs))
	}
	return deltas
}

type TrackerConfig struct {
	InitialSeq    int
	MaxCount      *int
	PacketTimeout time.Duration
	Interval      time.Duration
}

const leastAcceptablePktIntervalMilliseconds = 10
const maximumAcceptablePktTimeoutSecs = 10

type Tracker struct {
	mu         sync.Mutex
	initSeq    int
	latestSeq  int
	store      map[int]*TrackerEntry
	nrUnAck    int
	nrMaxCount *int
	intv       time.Duration
	pktTimeout time.Duration
}

func NewTracker(config *TrackerConfig) (*Tracker, error) {
	if config.Interval.Milliseconds() < leastAcceptablePktIntervalMilliseconds {
		return nil, fmt.Errorf("interval must be at least %d milliseconds", leastAcceptablePktIntervalMilliseconds)
	}

	if config.PacketTimeout.Seconds() > maximumAcceptablePktTimeoutSecs {
		return nil, fmt.Errorf("packet timeout must be at most %d seconds", maximumAcceptablePktTimeoutSecs)
	}

	return &Tracker{
		initSeq:    config.InitialSeq,
		latestSeq:  config.InitialSeq,
		nrMaxCount: config.MaxCount,
		store:      make(map[int]*TrackerEntry),
		intv:       config.Interval,
		pktTimeout: config.PacketTimeout,
	}, nil
}

// IterateSeq hands out the next sequence number.
func (it *Tracker) IterateSeq() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	seq := it.latestSeq
	it.latestSeq++
	return seq
}

func (it *Tracker) MarkSent(seq int, sentAtNs int64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.store[seq] = &TrackerEntry{SentAtNs: sentAtNs}
	it.nrUnAck++
}

// MarkReceived records a reply and returns its round-trip time. ok is false
// for sequence numbers that were never sent or have already expired.
func (it *Tracker) MarkReceived(seq int, receivedAtNs int64) (rtt time.Duration, dup bool, ok bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	ent, found := it.store[seq]
	if !found || ent.Lost {
		return 0, false, false
	}
	if len(ent.ReceivedAtNs) == 0 {
		it.nrUnAck--
	}
	ent.ReceivedAtNs = append(ent.ReceivedAtNs, receivedAtNs)
	return time.Duration(receivedAtNs - ent.SentAtNs), len(ent.ReceivedAtNs) > 1, true
}

// Expire marks every unanswered request older than the packet timeout as
// lost and returns their sequence numbers in ascending order.
func (it *Tracker) Expire(nowNs int64) []int {
	it.mu.Lock()
	defer it.mu.Unlock()

	expired := make([]int, 0)
	for seq, ent := range it.store {
		if ent.Lost || len(ent.ReceivedAtNs) > 0 {
			continue
		}
		if time.Duration(nowNs-ent.SentAtNs) < it.pktTimeout {
			continue
		}
		ent.Lost = true
		ent.ReceivedAtNs = append(ent.ReceivedAtNs, lostMarker)
		it.nrUnAck--
		expired = append(expired, seq)
	}
	sort.Ints(expired)
	return expired
}

func (it *Tracker) NrUnAck() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.nrUnAck
}

func shouldTrackerContinue(latestSeq, initSeq, maxCount int) bool {
	return (latestSeq - initSeq) < maxCount
}

// IsNotDone reports whether more requests should be sent.
func (it *Tracker) IsNotDone() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.nrMaxCount == nil {
		return true
	}
	return shouldTrackerContinue(it.latestSeq, it.initSeq, *it.nrMaxCount)
}

// WaitForNext returns how long to pause before the next request, zero when
// the run has sent everything.
func (it *Tracker) WaitForNext() time.Duration {
	if !it.IsNotDone() {
		return 0
	}
	return it.intv
}

func (it *Tracker) PacketTimeout() time.Duration {
	return it.pktTimeout
}

func (it *Tracker) ReadTrackerEntry(seq int) *TrackerEntry {
	it.mu.Lock()
	defer it.mu.Unlock()
	ent, ok := it.store[seq]
	if !ok {
		return nil
	}
	cloned := *ent
	cloned.ReceivedAtNs = append([]int64(nil), ent.ReceivedAtNs...)
	return &cloned
}

type Summary struct {
	Sent     int
	Received int
	Lost     int
	Dups     int
	MinRTT   time.Duration
	AvgRTT   time.Duration
	MaxRTT   time.Duration
}

func (s Summary) LossRatio() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Sent-s.Received) / float64(s.Sent)
}

// Summarize folds every entry into run totals. Duplicate replies count
// toward Dups only.
func (it *Tracker) Summarize() Summary {
	it.mu.Lock()
	defer it.mu.Unlock()

	var sum Summary
	var total time.Duration
	for _, ent := range it.store {
		sum.Sent++
		if ent.Lost {
			sum.Lost++
			continue
		}
		if len(ent.ReceivedAtNs) == 0 {
			continue
		}
		sum.Received++
		sum.Dups += len(ent.ReceivedAtNs) - 1

		rtt := time.Duration(ent.ReceivedAtNs[0] - ent.SentAtNs)
		total += rtt
		if sum.Received == 1 || rtt < sum.MinRTT {
			sum.MinRTT = rtt
		}
		if rtt > sum.MaxRTT {
			sum.MaxRTT = rtt
		}
	}
	if sum.Received > 0 {
		sum.AvgRTT = total / time.Duration(sum.Received)
	}
	return sum
}
