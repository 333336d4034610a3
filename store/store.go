package store

import (
	"encoding/json"
	"fmt"

	"github.com/jinzhu/gorm"

	// PostgreSQL driver for gorm - loaded for its side-effecting
	// registration with the sql package, never referenced directly.
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/driftline/crdt/config"
	"github.com/driftline/crdt/crdt"
)

// Store carries the open database connection and the configuration
// it was created with.
type Store struct {
	IP         string
	Port       uint16
	Database   string
	User       string
	Connection *gorm.DB
}

// snapshotRow is the gorm model backing the view_snapshots table: one
// row per view name, holding its most recently persisted snapshot as
// an opaque JSON blob.
type snapshotRow struct {
	Name string `gorm:"primary_key"`
	Kind string
	Data []byte
}

// TableName names the table snapshotRow maps to.
func (snapshotRow) TableName() string {
	return "view_snapshots"
}

// NewStore opens a connection to the configured PostgreSQL database
// and ensures the view_snapshots table exists.
func NewStore(ip string, port uint16, db string, user string, pass string, useTLS bool) (*Store, error) {

	sslmode := "disable"
	if useTLS {
		sslmode = "require"
	}

	var conn *gorm.DB
	var err error

	if pass != "" {
		conn, err = gorm.Open("postgres", fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, pass, ip, port, db, sslmode))
	} else {
		conn, err = gorm.Open("postgres", fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s", user, ip, port, db, sslmode))
	}
	if err != nil {
		return nil, fmt.Errorf("store: could not connect to database: %w", err)
	}

	if err := conn.DB().Ping(); err != nil {
		return nil, fmt.Errorf("store: database not reachable after connection: %w", err)
	}

	if err := conn.AutoMigrate(&snapshotRow{}).Error; err != nil {
		return nil, fmt.Errorf("store: migrating view_snapshots table failed: %w", err)
	}

	return &Store{
		IP:         ip,
		Port:       port,
		Database:   db,
		User:       user,
		Connection: conn,
	}, nil
}

// SaveSnapshot upserts view's current snapshot, JSON-encoded as data,
// tagged with kind (one of the config.Kind* constants) so Load can
// hand the caller back to the right crdt constructor.
func (s *Store) SaveSnapshot(view string, kind string, data []byte) error {

	row := snapshotRow{Name: view, Kind: kind, Data: data}

	return s.Connection.Save(&row).Error
}

// LoadSnapshot returns the most recently saved snapshot for view, and
// the kind it was saved under. ok is false if no snapshot has ever
// been saved for this view.
func (s *Store) LoadSnapshot(view string) (data []byte, kind string, ok bool, err error) {

	var row snapshotRow

	result := s.Connection.Where("name = ?", view).First(&row)
	if result.RecordNotFound() {
		return nil, "", false, nil
	}
	if result.Error != nil {
		return nil, "", false, fmt.Errorf("store: loading snapshot for view '%s' failed: %w", view, result.Error)
	}

	return row.Data, row.Kind, true, nil
}

// Views returns the names of every view that currently has a saved
// snapshot.
func (s *Store) Views() ([]string, error) {

	var rows []snapshotRow
	if err := s.Connection.Select("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: listing views failed: %w", err)
	}

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}

	return names, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.Connection.Close()
}

// Compact shrinks the persisted tombstone set of a Register or Set
// view's saved snapshot down to keep, discarding every other recorded
// tombstone. A host calls this - typically on a schedule, never
// automatically - once it has independently established that every
// replica has acknowledged the operations that produced the tags being
// dropped, so no replica can still deliver a stale update naming them.
// This inverts the direction of crdt.Register.Compact/crdt.Set.Compact,
// which take the tags to forget rather than the tags to keep; Compact
// computes that forget-list itself from the snapshot's current
// tombstone set.
//
// List views are not eligible: their tombstones are keyed by encoded
// positional tag, not by the application Tag this helper's keep list
// is expressed in, so there is no sound way to correlate the two. A
// missing snapshot for view is not an error, matching LoadSnapshot.
func (s *Store) Compact(view string, keep []crdt.Tag) error {

	data, kind, ok, err := s.LoadSnapshot(view)
	if err != nil {
		return fmt.Errorf("store: loading snapshot for view '%s' to compact: %w", view, err)
	}
	if !ok {
		return nil
	}

	switch kind {
	case config.KindRegister:
		var snap crdt.RegisterSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("store: decoding register snapshot for '%s': %w", view, err)
		}
		snap.Dead = retainTags(snap.Dead, keep)
		data, err = json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("store: encoding compacted register snapshot for '%s': %w", view, err)
		}
	case config.KindSet:
		var snap crdt.SetSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("store: decoding set snapshot for '%s': %w", view, err)
		}
		snap.Dead = retainTags(snap.Dead, keep)
		data, err = json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("store: encoding compacted set snapshot for '%s': %w", view, err)
		}
	default:
		return nil
	}

	return s.SaveSnapshot(view, kind, data)
}

// retainTags returns the subset of dead also present in keep,
// preserving dead's order.
func retainTags(dead []crdt.Tag, keep []crdt.Tag) []crdt.Tag {

	keepSet := make(map[crdt.Tag]bool, len(keep))
	for _, t := range keep {
		keepSet[t] = true
	}

	var out []crdt.Tag
	for _, t := range dead {
		if keepSet[t] {
			out = append(out, t)
		}
	}

	return out
}
