package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/skyfold/cloudflare-ddns/internal/profile"
)

// SaveProfile inserts or fully replaces a profile. Partial in-place edits are
// not supported; callers always write the whole profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p *profile.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	apiKeyEnc, err := EncryptCredential(p.APIKey, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt API key: %w", err)
	}
	zoneIDEnc, err := EncryptCredential(p.ZoneID, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt zone ID: %w", err)
	}
	records, err := json.Marshal(p.DNSRecords)
	if err != nil {
		return fmt.Errorf("failed to marshal DNS records: %w", err)
	}

	query := `INSERT INTO profiles (name, api_key_encrypted, zone_id_encrypted, main_domain, dns_records, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			api_key_encrypted = excluded.api_key_encrypted,
			zone_id_encrypted = excluded.zone_id_encrypted,
			main_domain = excluded.main_domain,
			dns_records = excluded.dns_records,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, p.Name, apiKeyEnc, zoneIDEnc, p.MainDomain, string(records)); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// Get retrieves a single profile with decrypted credentials.
// Returns ErrNotFound if no profile exists under that name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*profile.Profile, error) {
	query := "SELECT name, api_key_encrypted, zone_id_encrypted, main_domain, dns_records FROM profiles WHERE name = ?"
	p, err := s.scanProfile(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// LoadAll reads every persisted profile. A profile that fails to decrypt or
// parse is logged and skipped; it never aborts loading of the others.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]*profile.Profile, error) {
	query := "SELECT name, api_key_encrypted, zone_id_encrypted, main_domain, dns_records FROM profiles ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() {
		//nolint:errcheck
		rows.Close()
	}()

	profiles := make(map[string]*profile.Profile)
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable profile", "error", err)
			continue
		}
		profiles[p.Name] = p
	}
	if err := rows.Err(); err != nil {
		return profiles, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// DeleteProfile removes a profile and its run state.
// Returns ErrNotFound if the profile does not exist.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM run_state WHERE profile_name = ?", name); err != nil {
		return fmt.Errorf("failed to delete run state: %w", err)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanProfile(row rowScanner) (*profile.Profile, error) {
	var (
		name, mainDomain, records string
		apiKeyEnc, zoneIDEnc      []byte
	)
	if err := row.Scan(&name, &apiKeyEnc, &zoneIDEnc, &mainDomain, &records); err != nil {
		return nil, err
	}

	apiKey, err := DecryptCredential(apiKeyEnc, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	zoneID, err := DecryptCredential(zoneIDEnc, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}

	p := &profile.Profile{
		Name:       name,
		APIKey:     apiKey,
		ZoneID:     zoneID,
		MainDomain: mainDomain,
	}
	if err := json.Unmarshal([]byte(records), &p.DNSRecords); err != nil {
		return nil, fmt.Errorf("profile %q: malformed dns_records: %w", name, err)
	}

	return p, nil
}
