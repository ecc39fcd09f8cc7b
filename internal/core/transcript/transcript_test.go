package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

func TestParseTimedText(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="10" dur="4">The NHS funding bill was &amp;#39;debated&amp;#39; today</text>
<text start="14.5" dur="2.25">  Order,   order.  </text>
<text start="17" dur="1"></text>
</transcript>`

	segs, err := ParseTimedText([]byte(doc))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, "The NHS funding bill was 'debated' today", segs[0].Text)
	assert.Equal(t, 10.0, segs[0].Start)
	assert.Equal(t, 14.0, segs[0].End)
	assert.Equal(t, "Order, order.", segs[1].Text)
	assert.Equal(t, 16.75, segs[1].End)

	_, err = ParseTimedText([]byte("<transcript><text"))
	assert.Error(t, err)
}

func TestParseSRT(t *testing.T) {
	srt := "1\r\n00:00:10,000 --> 00:00:14,000\r\nMr Smith welcomed\r\nthe NHS funding Bill\r\n\r\n" +
		"2\n00:00:14,500 --> 00:00:16,000 align:start\nOrder!\n\n" +
		"3\nnot a timing line\nignored text\n\n" +
		"4\n01:02:03.5 --> 01:02:04.0\nLate remark\n"

	segs := ParseSRT(srt)
	require.Len(t, segs, 3)

	assert.Equal(t, "Mr Smith welcomed the NHS funding Bill", segs[0].Text)
	assert.Equal(t, 10.0, segs[0].Start)
	assert.Equal(t, 14.0, segs[0].End)
	assert.Equal(t, "Order!", segs[1].Text)
	assert.Equal(t, 3723.5, segs[2].Start)
}

func TestParseTimestamp(t *testing.T) {
	v, err := ParseTimestamp("00:01:02,250")
	require.NoError(t, err)
	assert.Equal(t, 62.25, v)

	v, err = ParseTimestamp("05:30.5")
	require.NoError(t, err)
	assert.Equal(t, 330.5, v)

	for _, bad := range []string{"", "12", "aa:bb:cc", "1:2:3:4", "-1:00"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalize(t *testing.T) {
	in := []model.Segment{
		{Text: "second", Start: 5, End: 6},
		{Text: "  ", Start: 1, End: 2},
		{Text: "first", Start: 1, End: 0.5},
	}
	out := Normalize("vid", in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Text)
	assert.Equal(t, 0, out[0].Sequence)
	assert.Equal(t, 1.0, out[0].End)
	assert.Equal(t, "vid", out[1].VideoID)
	assert.Equal(t, 1, out[1].Sequence)
}

func TestMergeSentences(t *testing.T) {
	in := []model.Segment{
		{Text: "The minister", Start: 0, End: 2},
		{Text: "rose to speak.", Start: 2, End: 4},
		{Text: "Order", Start: 4, End: 5},
		{Text: "order", Start: 40, End: 41},
	}
	out := MergeSentences(in, 30)
	require.Len(t, out, 3)
	assert.Equal(t, "The minister rose to speak.", out[0].Text)
	assert.Equal(t, 4.0, out[0].End)
	assert.Equal(t, "Order", out[1].Text)
	assert.Equal(t, "order", out[2].Text)
}
