package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/gcomserver-go/types"
)

func encodeRequest(t *testing.T, cmd types.Command, id uint16, count int) []byte {
	t.Helper()
	elems, err := Request(cmd, id, count)
	require.NoError(t, err)
	frame, err := Encode(elems)
	require.NoError(t, err)
	return frame
}

func TestReadMessageBeginGroup(t *testing.T) {
	frame := encodeRequest(t, types.CommandBeginGroup, 7, 3)

	cmd, elems, err := New().ReadMessage(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, types.CommandBeginGroup, cmd)

	n, err := GroupSize(elems)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	id, ok := Lookup(elems, TagMessageID)
	require.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestFrameHeaderLengths(t *testing.T) {
	frame := encodeRequest(t, types.CommandReady, 1, 0)

	assert.Equal(t, uint32(len(frame)-frameHeaderSize), binary.LittleEndian.Uint32(frame[20:24]))

	// everything up to the end of group 0000 is covered by its group length
	_, elems, err := New().ReadMessage(bytes.NewReader(frame))
	require.NoError(t, err)
	groupLen, ok := Lookup(elems, TagGroupLength)
	require.True(t, ok)
	var group0 int
	for _, e := range elems {
		if e.Tag.Group == 0x0000 && e.Tag != TagGroupLength {
			group0 += elementHeaderSize + len(e.Value)
		}
	}
	assert.Equal(t, group0, groupLen)
}

func TestReadMessageSequential(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(encodeRequest(t, types.CommandBeginGroup, 1, 2))
	stream.Write(encodeRequest(t, types.CommandReady, 2, 0))
	stream.Write(encodeRequest(t, types.CommandCancel, 3, 0))

	c := New()
	for _, want := range []types.Command{types.CommandBeginGroup, types.CommandReady, types.CommandCancel} {
		cmd, _, err := c.ReadMessage(&stream)
		require.NoError(t, err)
		assert.Equal(t, want, cmd)
	}
	_, _, err := c.ReadMessage(&stream)
	assert.ErrorIs(t, err, types.ErrEndOfInput)
}

func TestReadMessageErrors(t *testing.T) {
	frame := encodeRequest(t, types.CommandSend, 1, 0)

	t.Run("truncated body", func(t *testing.T) {
		_, _, err := New().ReadMessage(bytes.NewReader(frame[:len(frame)-2]))
		assert.ErrorIs(t, err, types.ErrIO)
	})
	t.Run("truncated header", func(t *testing.T) {
		_, _, err := New().ReadMessage(bytes.NewReader(frame[:10]))
		assert.ErrorIs(t, err, types.ErrIO)
	})
	t.Run("object ends mid-frame", func(t *testing.T) {
		_, _, err := New().ReadRawObject(bytes.NewReader(frame[:len(frame)-1]))
		assert.ErrorIs(t, err, types.ErrIO)
		assert.NotErrorIs(t, err, types.ErrProtocol)
	})
	t.Run("wrong first tag", func(t *testing.T) {
		bad := bytes.Clone(frame)
		bad[0] = 0x08
		_, _, err := New().ReadMessage(bytes.NewReader(bad))
		assert.ErrorIs(t, err, types.ErrProtocol)
	})
	t.Run("over limit", func(t *testing.T) {
		c := &Codec{MaxMessageSize: 8, MaxObjectSize: 8}
		_, _, err := c.ReadMessage(bytes.NewReader(frame))
		assert.ErrorIs(t, err, types.ErrProtocol)
	})
	t.Run("element overruns frame", func(t *testing.T) {
		bad := bytes.Clone(frame)
		// length field of the first body element after the header
		binary.LittleEndian.PutUint32(bad[frameHeaderSize+4:], 0x1000)
		_, _, err := New().ReadMessage(bytes.NewReader(bad))
		assert.ErrorIs(t, err, types.ErrProtocol)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		elems types.ElementSet
		want  types.Command
	}{
		{"no command", types.ElementSet{}, types.CommandUnknown},
		{"cancel ignores sub-code", types.ElementSet{
			{Tag: TagCommand, Value: U16(ACRCancelRequest)},
			{Tag: TagSPICommand, Value: U16(0x7777)},
		}, types.CommandCancel},
		{"send without sub-code", types.ElementSet{
			{Tag: TagCommand, Value: U16(ACRSendRequest)},
		}, types.CommandUnknown},
		{"send with unknown sub-code", types.ElementSet{
			{Tag: TagCommand, Value: U16(ACRSendRequest)},
			{Tag: TagSPICommand, Value: U16(0x0099)},
		}, types.CommandUnknown},
		{"unknown control code", types.ElementSet{
			{Tag: TagCommand, Value: U16(0x0020)},
			{Tag: TagSPICommand, Value: U16(SPIReadyRequest)},
		}, types.CommandUnknown},
		{"end group", types.ElementSet{
			{Tag: TagCommand, Value: U16(ACRSendRequest)},
			{Tag: TagSPICommand, Value: U16(SPIGroupEndRequest)},
		}, types.CommandEndGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.elems))
		})
	}
}

func TestGroupSizeRejects(t *testing.T) {
	_, err := GroupSize(types.ElementSet{})
	assert.ErrorIs(t, err, types.ErrProtocol)

	for _, n := range []uint32{0, MaxGroupSize + 1} {
		_, err := GroupSize(types.ElementSet{{Tag: TagNumberOfObjects, Value: U32(n)}})
		assert.ErrorIs(t, err, types.ErrProtocol, "size %d", n)
	}
}

func TestReplies(t *testing.T) {
	for _, cmd := range []types.Command{
		types.CommandBeginGroup, types.CommandReady, types.CommandSend,
		types.CommandEndGroup, types.CommandCancel,
	} {
		req, err := Request(cmd, 42, 5)
		require.NoError(t, err)
		out, err := Reply(cmd, req, 5)
		require.NoError(t, err)

		assert.True(t, IsSuccessReply(cmd, out), cmd.String())
		id, ok := Lookup(out, TagRespondingTo)
		require.True(t, ok)
		assert.Equal(t, 42, id)
	}

	// a READY acknowledgement does not acknowledge SEND
	req, _ := Request(types.CommandReady, 1, 0)
	assert.False(t, IsSuccessReply(types.CommandSend, ReadyReply(req)))

	_, err := Reply(types.CommandUnknown, nil, 0)
	assert.ErrorIs(t, err, types.ErrProtocol)

	n, ok := Lookup(BeginGroupReply(nil, 9), TagNumberOfObjects)
	require.True(t, ok)
	assert.Equal(t, 9, n)
}

func TestReadRawObject(t *testing.T) {
	info := types.ObjectInfo{
		PatientName:       "DOE^JANE",
		StudyID:           "1234",
		AcquisitionNumber: 3,
		ImageNumber:       12,
		Reconstruction:    1,
		ImageType:         2,
	}
	frame, err := Encode(ObjectElements(info, []byte{1, 2, 3, 4}))
	require.NoError(t, err)

	raw, elems, err := New().ReadRawObject(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, frame, raw)

	got := DescribeObject(elems)
	assert.Equal(t, info, got)

	px, ok := elems.Find(TagPixelData)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, px.Value)
}
