package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestRecordValue(t *testing.T) {
	var empty Record
	require.Nil(t, empty.Value("color"))

	r := Record{"color": []byte(`"green"`)}
	require.Equal(t, `"green"`, string(r.Value("color")))
	require.Nil(t, r.Value("height"))
}
