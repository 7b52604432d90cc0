package converter

import "time"

// KVEntryModel представляет запись таблицы kv_entries в PostgreSQL.
type KVEntryModel struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
