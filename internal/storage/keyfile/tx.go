package keyfile

import (
	"github.com/xenking/keygate/internal/domain/apikey"
)

// Tx is the view of the collection inside Store.Update. It is only valid for
// the duration of the callback.
type Tx struct {
	base    *snapshot
	records []apikey.Record
	index   map[string]int
	dirty   bool
}

// touch copies the base snapshot on first write so published snapshots stay
// immutable.
func (tx *Tx) touch() {
	if tx.dirty {
		return
	}
	tx.dirty = true
	tx.records = make([]apikey.Record, len(tx.base.records), len(tx.base.records)+1)
	copy(tx.records, tx.base.records)
	tx.index = make(map[string]int, len(tx.base.index)+1)
	for k, v := range tx.base.index {
		tx.index[k] = v
	}
}

// Get returns the record for secret as seen by this transaction.
func (tx *Tx) Get(secret string) (apikey.Record, bool) {
	i, ok := tx.index[secret]
	if !ok {
		return apikey.Record{}, false
	}
	return tx.records[i], true
}

// Len returns the number of records as seen by this transaction.
func (tx *Tx) Len() int {
	return len(tx.records)
}

// Records returns the records as seen by this transaction. The slice must not
// be modified.
func (tx *Tx) Records() []apikey.Record {
	return tx.records
}

// Insert appends r. It fails with apikey.ErrDuplicateSecret if the secret is
// already stored.
func (tx *Tx) Insert(r apikey.Record) error {
	if _, ok := tx.index[r.Secret]; ok {
		return apikey.ErrDuplicateSecret
	}
	tx.touch()
	tx.index[r.Secret] = len(tx.records)
	tx.records = append(tx.records, r)
	return nil
}

// Replace overwrites the stored record with the same secret. It reports false
// if there is none.
func (tx *Tx) Replace(r apikey.Record) bool {
	i, ok := tx.index[r.Secret]
	if !ok {
		return false
	}
	tx.touch()
	tx.records[i] = r
	return true
}

// Delete removes the record for secret. It reports false if there is none.
func (tx *Tx) Delete(secret string) bool {
	i, ok := tx.index[secret]
	if !ok {
		return false
	}
	tx.touch()
	tx.records = append(tx.records[:i], tx.records[i+1:]...)
	delete(tx.index, secret)
	for j := i; j < len(tx.records); j++ {
		tx.index[tx.records[j].Secret] = j
	}
	return true
}
