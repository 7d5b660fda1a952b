package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/search"
)

type ClickHouseStoreConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// ClickHouseStore holds the contact, URN and field-value tables that compiled
// relational predicates run against.
type ClickHouseStore struct {
	conn clickhouse.Conn
	cfg  ClickHouseStoreConfig
}

func NewClickHouseStore(cfg ClickHouseStoreConfig) (*ClickHouseStore, error) {
	return &ClickHouseStore{cfg: cfg}, nil
}

func setupClickHouseTables(ctx context.Context, conn driver.Conn) error {
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contacts (
			id Int64,
			org_id Int64,
			name String,
			modified_on DateTime64(3)
		)
		ENGINE = MergeTree
		ORDER BY (org_id, id)
	`)
	if err != nil {
		return err
	}

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contact_urns (
			contact_id Int64,
			org_id Int64,
			scheme String,
			path String
		)
		ENGINE = MergeTree
		ORDER BY (org_id, scheme, contact_id)
	`)
	if err != nil {
		return err
	}

	// One row per (contact, field, value); the text-equality index key is
	// derived from contact_field_id and the first 32 characters of
	// string_value, upper-cased.
	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contact_values (
			contact_id Int64,
			contact_field_id Int64,
			string_value Nullable(String),
			decimal_value Nullable(Decimal(38, 9)),
			datetime_value Nullable(DateTime64(3)),
			location_value Nullable(Int64)
		)
		ENGINE = MergeTree
		ORDER BY (contact_field_id, contact_id)
	`)
	if err != nil {
		return err
	}

	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS boundaries (
			id Int64,
			level Int32,
			name String
		)
		ENGINE = MergeTree
		ORDER BY (level, id)
	`)
}

func (s *ClickHouseStore) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: s.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	s.conn = conn

	if err := setupClickHouseTables(ctx, conn); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (s *ClickHouseStore) Close(ctx context.Context) error {
	return s.conn.Close()
}

// Search executes a compiled relational search and returns the matching
// contact rows.
func (s *ClickHouseStore) Search(ctx context.Context, compiled search.BuildResult) ([]entity.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	rows, err := s.conn.Query(ctx, compiled.Query, compiled.Args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't run search query: %w", err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		var c entity.Contact
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.ModifiedOn); err != nil {
			return nil, fmt.Errorf("couldn't scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// StoreContacts inserts contact rows in one batch.
func (s *ClickHouseStore) StoreContacts(ctx context.Context, contacts ...entity.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO contacts (id, org_id, name, modified_on)")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, c := range contacts {
		if err := batch.Append(c.ID, c.OrgID, c.Name, c.ModifiedOn); err != nil {
			return fmt.Errorf("couldn't append contact to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}

// StoreURNs inserts identity-handle rows in one batch.
func (s *ClickHouseStore) StoreURNs(ctx context.Context, orgID, contactID int64, urns ...entity.URN) error {
	if len(urns) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO contact_urns (contact_id, org_id, scheme, path)")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, urn := range urns {
		if err := batch.Append(contactID, orgID, urn.Scheme, urn.Path); err != nil {
			return fmt.Errorf("couldn't append urn to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}
