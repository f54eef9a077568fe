package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("db fail")
	e := &Error{Kind: KindMetadataWrite, Op: "commit", Message: "save document record", Err: cause}

	assert.Equal(t, "commit: save document record: db fail", e.Error())
	assert.ErrorIs(t, e, cause)
	assert.False(t, e.Orphaned())

	e.OrphanBlobKey = "documents/x/a.pdf"
	e.CompensationErr = errors.New("delete fail")
	assert.True(t, e.Orphaned())
	assert.Equal(t, `commit: save document record: db fail; blob "documents/x/a.pdf" left for reconciliation: delete fail`, e.Error())

	wrapped := fmt.Errorf("handler: %w", e)
	assert.Equal(t, KindMetadataWrite, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindMetadataWrite))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindValidation))
}

func TestMonotonicClock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base, base.Add(-time.Hour), base.Add(time.Second)}
	i := 0
	c := newMonotonicClock(func() time.Time {
		t := times[i]
		i++
		return t
	})

	got := []time.Time{c.Next(), c.Next(), c.Next(), c.Next()}

	assert.Equal(t, base, got[0])
	assert.Equal(t, base.Add(time.Millisecond), got[1])
	assert.Equal(t, base.Add(2*time.Millisecond), got[2])
	assert.Equal(t, base.Add(time.Second), got[3])
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)

	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeCommit(nil)
		m.observeViewURL(errors.New("x"))
	})
}
