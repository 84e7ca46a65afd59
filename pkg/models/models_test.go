package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexCountUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want FlexCount
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`""`, 0},
		{`"  "`, 0},
		{`"abc"`, 0},
		{`null`, 0},
		{`-3`, -3},
	}
	for _, tt := range tests {
		var f FlexCount
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), "input %s", tt.in)
		assert.Equal(t, tt.want, f, "input %s", tt.in)
	}
}

func TestFlexCountMarshal(t *testing.T) {
	out, err := json.Marshal(FlexCount(7))
	require.NoError(t, err)
	assert.Equal(t, "7", string(out))
}

func TestPostPublishTimeRoundTrip(t *testing.T) {
	post := Post{
		Platform:    PlatformInstagram,
		Permalink:   "https://instagram.com/p/abc",
		PublishTime: time.Date(2024, 3, 15, 18, 30, 45, 0, time.FixedZone("CST", 8*3600)),
	}

	data, err := json.Marshal(post)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"publishTime":"2024-03-15T18:30:45+08:00"`)

	var decoded Post
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, post.PublishTime.Equal(decoded.PublishTime))
}

func TestEmptyUserData(t *testing.T) {
	ud := EmptyUserData()
	assert.NotNil(t, ud.DataSets)
	assert.NotNil(t, ud.Selection.DataSets)
	assert.NotNil(t, ud.Selection.Posts)
	assert.NotNil(t, ud.MonthlyFollowers)
	assert.NotNil(t, ud.Analyses)
}
