// Package persist durably stores a host's finished partition build (its
// LocalIndex and CSR edge table) so a restarted host can resume without
// re-running Inspector, MetadataExchange and EdgeLoader.
//
// A snapshot alternates between two collections, primary and secondary,
// so a crash mid-save never leaves the only copy half-written.
// encoding/gob serializes the LocalIndex and CSR payloads into opaque
// bson binary fields rather than modeling them as first-class bson
// fields.
package persist

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/distgraph/cartesiancut/edgeloader"
	"github.com/distgraph/cartesiancut/localindex"
	"github.com/distgraph/cartesiancut/partitionerr"
)

const dbName = "cartesiancut"

// Access names a job's two alternating snapshot collections: the
// caller keeps using Key() to read, writes a fresh snapshot to
// OtherKey(), and swaps keys once that write has succeeded.
type Access struct {
	Primary        string
	Secondary      string
	PrimaryCurrent bool
}

// NewAccess produces an Access with the primary collection active.
func NewAccess(jobName string) Access {
	return Access{Primary: jobName, Secondary: jobName + "-secondary", PrimaryCurrent: true}
}

func (a Access) Key() string {
	if a.PrimaryCurrent {
		return a.Primary
	}
	return a.Secondary
}

func (a Access) OtherKey() string {
	if a.PrimaryCurrent {
		return a.Secondary
	}
	return a.Primary
}

// SwapKeys flips which collection is currently active, to be called
// after a successful Save to the other one.
func (a *Access) SwapKeys() {
	a.PrimaryCurrent = !a.PrimaryCurrent
}

// Store wraps an mgo session and the job's collection naming.
type Store struct {
	dialInfo mgo.DialInfo
}

// New builds a Store dialing mongoAddr.
func New(mongoAddr string) *Store {
	return &Store{
		dialInfo: mgo.DialInfo{
			Addrs:   []string{mongoAddr},
			Direct:  true,
			Timeout: 10 * time.Second,
		},
	}
}

// snapshotDoc is the bson document one host's partition build snapshot
// is stored as.
type snapshotDoc struct {
	HostID     int    `bson:"host_id"`
	SavedAt    int64  `bson:"saved_at"`
	LocalIndex []byte `bson:"local_index"`
	CSR        []byte `bson:"csr"`
}

// Save gob-encodes li and csr and upserts them into collection at
// access.OtherKey(), the idle half of the primary/secondary pair,
// keyed by hostID. Callers should call access.SwapKeys() after Save
// returns successfully.
func Save[E any](s *Store, access Access, hostID int, savedAt int64, li *localindex.LocalIndex, csr *edgeloader.CSR[E]) error {
	session, err := mgo.DialWithInfo(&s.dialInfo)
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, hostID, 0, "dialing mongo", err)
	}
	defer session.Close()

	liBytes, err := encodeGob(li)
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, hostID, 0, "encoding local index snapshot", err)
	}
	csrBytes, err := encodeGob(csr)
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, hostID, 0, "encoding csr snapshot", err)
	}

	c := session.DB(dbName).C(access.OtherKey())
	_, err = c.Upsert(bson.M{"host_id": hostID}, bson.M{"$set": snapshotDoc{
		HostID:     hostID,
		SavedAt:    savedAt,
		LocalIndex: liBytes,
		CSR:        csrBytes,
	}})
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, hostID, 0, "upserting partition snapshot", err)
	}
	return nil
}

// Load decodes hostID's snapshot from access.Key().
func Load[E any](s *Store, access Access, hostID int) (*localindex.LocalIndex, *edgeloader.CSR[E], error) {
	session, err := mgo.DialWithInfo(&s.dialInfo)
	if err != nil {
		return nil, nil, partitionerr.Wrap(partitionerr.IoError, hostID, 0, "dialing mongo", err)
	}
	defer session.Close()

	c := session.DB(dbName).C(access.Key())
	var doc snapshotDoc
	if err := c.Find(bson.M{"host_id": hostID}).One(&doc); err != nil {
		return nil, nil, partitionerr.Wrap(partitionerr.IoError, hostID, 0,
			fmt.Sprintf("loading partition snapshot from %s", access.Key()), err)
	}

	var li localindex.LocalIndex
	if err := decodeGob(doc.LocalIndex, &li); err != nil {
		return nil, nil, partitionerr.Wrap(partitionerr.IoError, hostID, 0, "decoding local index snapshot", err)
	}
	var csr edgeloader.CSR[E]
	if err := decodeGob(doc.CSR, &csr); err != nil {
		return nil, nil, partitionerr.Wrap(partitionerr.IoError, hostID, 0, "decoding csr snapshot", err)
	}

	return &li, &csr, nil
}

// DeleteJob drops both of jobName's snapshot collections.
func DeleteJob(s *Store, jobName string) error {
	session, err := mgo.DialWithInfo(&s.dialInfo)
	if err != nil {
		return partitionerr.Wrap(partitionerr.IoError, -1, 0, "dialing mongo", err)
	}
	defer session.Close()

	access := NewAccess(jobName)
	for _, key := range []string{access.Primary, access.Secondary} {
		if err := session.DB(dbName).C(key).DropCollection(); err != nil {
			return partitionerr.Wrap(partitionerr.IoError, -1, 0, "dropping snapshot collection "+key, err)
		}
	}
	return nil
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
