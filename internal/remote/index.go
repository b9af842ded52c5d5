package remote

import (
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

const indexBucket = "modules"

// indexRecord describes a cached module.
type indexRecord struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"finalUrl"`
	ContentType string    `json:"contentType"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

type index struct {
	bolt *bolt.DB
}

func openIndex(filename string) (*index, error) {
	db, err := bolt.Open(filename, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(indexBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &index{db}, nil
}

func (i *index) Get(url string) (record *indexRecord, err error) {
	var value []byte
	err = i.bolt.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(indexBucket)).Get([]byte(url)); v != nil {
			value = append(value, v...)
		}
		return nil
	})
	if err != nil || value == nil {
		return
	}
	record = &indexRecord{}
	err = json.Unmarshal(value, record)
	return
}

func (i *index) Put(record *indexRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return i.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(indexBucket)).Put([]byte(record.URL), value)
	})
}

func (i *index) Delete(url string) error {
	return i.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(indexBucket)).Delete([]byte(url))
	})
}

func (i *index) Len() (n int) {
	i.bolt.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(indexBucket)).Stats().KeyN
		return nil
	})
	return
}

func (i *index) Close() error {
	return i.bolt.Close()
}
