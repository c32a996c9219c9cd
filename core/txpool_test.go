package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatestUpdatesPicksGreatestHeightThenId(t *testing.T) {
	tx := TxId(hashOf([]byte("tx")))
	updates := []TransactionPoolStateUpdate{
		{Id: 1, TxId: tx, BlockHeight: 5, Stage: StagePrepared},
		{Id: 2, TxId: tx, BlockHeight: 7, Stage: StageLocalPrepared},
		{Id: 3, TxId: tx, BlockHeight: 7, Stage: StageAllPrepared}, // tie-broken by greater Id
	}
	latest := LatestUpdates(updates)
	require.Equal(t, StageAllPrepared, latest[tx].Stage)
}

func TestLatestUpdatesIgnoresOtherTransactions(t *testing.T) {
	a := TxId(hashOf([]byte("a")))
	b := TxId(hashOf([]byte("b")))
	updates := []TransactionPoolStateUpdate{
		{Id: 1, TxId: a, BlockHeight: 1, Stage: StagePrepared},
		{Id: 2, TxId: b, BlockHeight: 1, Stage: StageAllAccepted},
	}
	latest := LatestUpdates(updates)
	require.Len(t, latest, 2)
	require.Equal(t, StagePrepared, latest[a].Stage)
	require.Equal(t, StageAllAccepted, latest[b].Stage)
}

func TestApplyOverlaysStageReadinessAndDecision(t *testing.T) {
	rec := TransactionPoolRecord{TxId: TxId(hashOf([]byte("tx"))), Stage: StageNew, IsReady: true}
	update := TransactionPoolStateUpdate{Stage: StagePrepared, IsReady: false, LocalDecision: DecisionCommit}

	effective := rec.Apply(update)
	require.Equal(t, StagePrepared, effective.Stage)
	require.False(t, effective.IsReady)
	require.Equal(t, DecisionCommit, effective.LocalDecision)
}

func TestApplyLeavesDecisionUnchangedWhenUpdateCarriesNone(t *testing.T) {
	rec := TransactionPoolRecord{LocalDecision: DecisionCommit}
	update := TransactionPoolStateUpdate{Stage: StageAllPrepared, IsReady: true}

	effective := rec.Apply(update)
	require.Equal(t, DecisionCommit, effective.LocalDecision)
}

func TestPoolStageAdvances(t *testing.T) {
	require.True(t, StageNew.Advances(StagePrepared))
	require.True(t, StagePrepared.Advances(StagePrepared))
	require.False(t, StageAllPrepared.Advances(StageNew))
}
