// ABOUTME: Contact database operations
// ABOUTME: Primary contact writes clear the deal's other primaries in one transaction
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const contactColumns = `id, deal_id, name, title, email, phone, role, notes, is_primary, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(&c.ID, &c.DealID, &c.Name, &c.Title, &c.Email, &c.Phone, &c.Role, &c.Notes, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// clearOtherPrimaries locks the deal row and demotes every primary contact on
// it except keep. Concurrent primary writes for one deal serialize on the lock.
func (s *Store) clearOtherPrimaries(ctx context.Context, tx *sql.Tx, dealID, keep uuid.UUID, now time.Time) error {
	var locked string
	err := s.queryRow(ctx, tx, `SELECT id FROM deals WHERE id = ?`+s.dialect.forUpdate(), dealID.String()).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, tx, `
		UPDATE contacts SET is_primary = ?, updated_at = ?
		WHERE deal_id = ? AND id <> ? AND is_primary = ?
	`, false, now, dealID.String(), keep.String(), true)
	return err
}

func (s *Store) CreateContact(ctx context.Context, contact *models.Contact) error {
	contact.ID = uuid.New()
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	if contact.Role == "" {
		contact.Role = models.ContactInfluencer
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if contact.IsPrimary {
			if err := s.clearOtherPrimaries(ctx, tx, contact.DealID, contact.ID, now); err != nil {
				return err
			}
		}

		_, err := s.exec(ctx, tx, `
			INSERT INTO contacts (`+contactColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, contact.ID.String(), contact.DealID.String(), contact.Name, contact.Title, contact.Email,
			contact.Phone, contact.Role, contact.Notes, contact.IsPrimary, contact.CreatedAt, contact.UpdatedAt)
		return err
	})
}

func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return scanContact(s.queryRow(ctx, s.db, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id.String()))
}

// UpdateContact writes every mutable field. The contact stays on its deal.
func (s *Store) UpdateContact(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now().UTC()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if contact.IsPrimary {
			if err := s.clearOtherPrimaries(ctx, tx, contact.DealID, contact.ID, contact.UpdatedAt); err != nil {
				return err
			}
		}

		res, err := s.exec(ctx, tx, `
			UPDATE contacts SET
				name = ?, title = ?, email = ?, phone = ?, role = ?, notes = ?, is_primary = ?, updated_at = ?
			WHERE id = ?
		`, contact.Name, contact.Title, contact.Email, contact.Phone, contact.Role, contact.Notes,
			contact.IsPrimary, contact.UpdatedAt, contact.ID.String())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// FindContacts lists a deal's contacts with the primary first, then newest.
func (s *Store) FindContacts(ctx context.Context, dealID uuid.UUID) ([]*models.Contact, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+contactColumns+` FROM contacts
		WHERE deal_id = ?
		ORDER BY is_primary DESC, created_at DESC
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *Store) DeleteContact(ctx context.Context, id uuid.UUID) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM contacts WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}
