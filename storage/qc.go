package storage

import "github.com/tolelom/dancore/core"

// QuorumCertificatesGet fetches a single QC by id.
func (t *ReadTx) QuorumCertificatesGet(id core.QcId) (*core.QuorumCertificate, error) {
	qc, ok := t.s.state.QCs[id]
	if !ok {
		return nil, core.NewStorageError(core.StorageErrNotFound, "qc %s not found", id)
	}
	return qc, nil
}

// QuorumCertificatesGetAll fetches every QC listed in ids, failing with
// NotAllItemsFound if any is missing.
func (t *ReadTx) QuorumCertificatesGetAll(ids []core.QcId) ([]*core.QuorumCertificate, error) {
	out := make([]*core.QuorumCertificate, 0, len(ids))
	for _, id := range ids {
		qc, ok := t.s.state.QCs[id]
		if !ok {
			return nil, core.NewStorageError(core.StorageErrNotAllItemsFound, "qc %s not found", id)
		}
		out = append(out, qc)
	}
	return out, nil
}

// QuorumCertificatesGetByBlockId returns every QC attesting to block id.
func (t *ReadTx) QuorumCertificatesGetByBlockId(id core.BlockId) []*core.QuorumCertificate {
	qcIds := t.s.state.QCsByBlockID[id]
	out := make([]*core.QuorumCertificate, 0, len(qcIds))
	for _, qcId := range qcIds {
		out = append(out, t.s.state.QCs[qcId])
	}
	return out
}

// QuorumCertificatesInsert persists qc once, idempotently.
func (t *WriteTx) QuorumCertificatesInsert(qc *core.QuorumCertificate) error {
	if _, exists := t.s.state.QCs[qc.Id]; exists {
		return nil
	}
	cp := *qc
	t.s.state.QCs[qc.Id] = &cp
	t.s.state.QCsByBlockID[qc.BlockId] = append(t.s.state.QCsByBlockID[qc.BlockId], qc.Id)
	t.markDirty()
	return nil
}

// HighQcUpdate sets HighQc to qc only if qc's block height exceeds the
// current HighQc's (spec.md §4.1 high_qc_update, §8 monotonicity property).
func (t *WriteTx) HighQcUpdate(qc *core.QuorumCertificate) error {
	cur, err := t.HighQcGet()
	if err == nil && qc.BlockHeight <= cur.BlockHeight {
		return nil
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	rec := core.HighQcRecord{
		Id:          nextId(&t.s.state.HighQc),
		QcId:        qc.Id,
		BlockId:     qc.BlockId,
		BlockHeight: qc.BlockHeight,
	}
	t.s.state.HighQc = append(t.s.state.HighQc, rec)
	t.markDirty()
	return nil
}

// HighQcGet returns the current HighQc record ("highest id wins").
func (t *ReadTx) HighQcGet() (core.HighQcRecord, error) {
	if len(t.s.state.HighQc) == 0 {
		return core.HighQcRecord{}, core.NewStorageError(core.StorageErrNotFound, "high qc not set")
	}
	return t.s.state.HighQc[len(t.s.state.HighQc)-1], nil
}

func isNotFound(err error) bool {
	se, ok := err.(*core.StorageError)
	return ok && se.Kind == core.StorageErrNotFound
}

// nextId returns the auto-increment id the next append to an append-only
// record slice should carry.
func nextId[T any](records *[]T) uint64 {
	return uint64(len(*records)) + 1
}
