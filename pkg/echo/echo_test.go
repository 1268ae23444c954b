package echo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// asReply flips an echo request into the reply a peer would send.
func asReply(t *testing.T, req []byte) []byte {
	t.Helper()
	msg, err := icmp.ParseMessage(1, req)
	require.NoError(t, err)
	msg.Type = ipv4.ICMPTypeEchoReply
	wb, err := msg.Marshal(nil)
	require.NoError(t, err)
	return wb
}

func TestBuildAndParse(t *testing.T) {
	tag := uuid.New()
	req, err := BuildRequest(0x1234, 7, tag, 987654321, 56)
	require.NoError(t, err)
	assert.Len(t, req, 8+56)

	_, err = ParseReply(req)
	assert.ErrorIs(t, err, ErrNotEchoReply)

	reply, err := ParseReplyFor(asReply(t, req), tag)
	require.NoError(t, err)
	assert.Equal(t, 0x1234, reply.ID)
	assert.Equal(t, 7, reply.Seq)
	assert.Equal(t, tag, reply.Tag)
	assert.Equal(t, int64(987654321), reply.SentAtNs)
	assert.Equal(t, 64, reply.Size)
}

func TestBuildRequestPadsToMinimum(t *testing.T) {
	req, err := BuildRequest(1, 1, uuid.New(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, req, 8+MinPayloadSize)

	_, err = BuildRequest(1, 1, uuid.New(), 1, 70000)
	assert.ErrorIs(t, err, ErrPayloadTooBig)
}

func TestParseReplyRejects(t *testing.T) {
	req, err := BuildRequest(1, 1, uuid.New(), 1, 32)
	require.NoError(t, err)

	_, err = ParseReplyFor(asReply(t, req), uuid.New())
	assert.ErrorIs(t, err, ErrForeignReply)

	short := asReply(t, req)[:8+10]
	_, err = ParseReply(short)
	assert.ErrorIs(t, err, ErrShortPayload)

	_, err = ParseReply([]byte{0, 0})
	assert.Error(t, err)
}

func TestTrackerConfigValidation(t *testing.T) {
	_, err := NewTracker(&TrackerConfig{Interval: time.Millisecond, PacketTimeout: time.Second})
	assert.Error(t, err)
	_, err = NewTracker(&TrackerConfig{Interval: time.Second, PacketTimeout: time.Minute})
	assert.Error(t, err)
}

func TestTracker(t *testing.T) {
	maxCount := 3
	tr, err := NewTracker(&TrackerConfig{
		InitialSeq:    10,
		MaxCount:      &maxCount,
		PacketTimeout: time.Second,
		Interval:      100 * time.Millisecond,
	})
	require.NoError(t, err)

	base := int64(1_000_000_000)
	for i := 0; i < 3; i++ {
		require.True(t, tr.IsNotDone())
		assert.Equal(t, 100*time.Millisecond, tr.WaitForNext())
		seq := tr.IterateSeq()
		assert.Equal(t, 10+i, seq)
		tr.MarkSent(seq, base+int64(i)*int64(time.Millisecond))
	}
	assert.False(t, tr.IsNotDone())
	assert.Equal(t, time.Duration(0), tr.WaitForNext())
	assert.Equal(t, 3, tr.NrUnAck())

	rtt, dup, ok := tr.MarkReceived(10, base+int64(5*time.Millisecond))
	require.True(t, ok)
	assert.False(t, dup)
	assert.Equal(t, 5*time.Millisecond, rtt)

	_, dup, ok = tr.MarkReceived(10, base+int64(6*time.Millisecond))
	require.True(t, ok)
	assert.True(t, dup)
	assert.Equal(t, 2, tr.NrUnAck())

	_, _, ok = tr.MarkReceived(99, base)
	assert.False(t, ok)

	tr.MarkReceived(11, base+int64(21*time.Millisecond))

	assert.Empty(t, tr.Expire(base+int64(500*time.Millisecond)))
	assert.Equal(t, []int{12}, tr.Expire(base+int64(2*time.Second)))
	assert.Equal(t, 0, tr.NrUnAck())

	_, _, ok = tr.MarkReceived(12, base+int64(3*time.Second))
	assert.False(t, ok)

	ent := tr.ReadTrackerEntry(10)
	require.NotNil(t, ent)
	assert.True(t, ent.HasReceived())
	assert.True(t, ent.HasDup())
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 6 * time.Millisecond}, ent.RTTs())

	lost := tr.ReadTrackerEntry(12)
	assert.False(t, lost.HasReceived())
	assert.Nil(t, lost.RTTs())

	var missing *TrackerEntry
	assert.False(t, missing.HasReceived())

	sum := tr.Summarize()
	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 2, sum.Received)
	assert.Equal(t, 1, sum.Lost)
	assert.Equal(t, 1, sum.Dups)
	assert.Equal(t, 5*time.Millisecond, sum.MinRTT)
	assert.Equal(t, 20*time.Millisecond, sum.MaxRTT)
	assert.InDelta(t, 1.0/3.0, sum.LossRatio(), 1e-9)
}
