package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tolelom/dancore/core"
)

// leveldbBatch implements Batch over *leveldb.Batch.
type leveldbBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *leveldbBatch) Set(key, value []byte) { b.batch.Put(key, value) }
func (b *leveldbBatch) Delete(key []byte)      { b.batch.Delete(key) }
func (b *leveldbBatch) Reset()                 { b.batch.Reset() }
func (b *leveldbBatch) Write() error           { return b.db.Write(b.batch, nil) }

// LevelDB implements DB using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, core.WrapStorage(core.StorageErrQuery, "open leveldb %q", err, path)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, core.ErrNotFound
	}
	return val, err
}

func (l *LevelDB) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

func (l *LevelDB) NewBatch() Batch {
	return &leveldbBatch{db: l.db, batch: new(leveldb.Batch)}
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
