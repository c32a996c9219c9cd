package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/dancore/consensus"
	"github.com/tolelom/dancore/core"
)

func TestRecordingPacemakerTracksLastCall(t *testing.T) {
	p := &consensus.RecordingPacemaker{}
	p.UpdateView(1, 0)
	p.UpdateView(5, 3)

	require.Equal(t, 2, p.Calls)
	require.Equal(t, core.NodeHeight(5), p.LastHeight)
	require.Equal(t, core.NodeHeight(3), p.LastHighQcHeight)
}

func TestNoopPacemakerDiscardsUpdates(t *testing.T) {
	require.NotPanics(t, func() {
		consensus.NoopPacemaker{}.UpdateView(10, 10)
	})
}
