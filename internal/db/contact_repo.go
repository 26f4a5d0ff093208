package db

import (
	"context"

	"outreach/internal/types"
)

// ContactRepository reads the contact directory. The sequencer never writes
// contacts; status changes arrive through the directory import.
type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListActive returns every active contact that has a usable geography,
// ordered by id so matching is deterministic across runs.
func (r *ContactRepository) ListActive(ctx context.Context) ([]types.Contact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, organization_name, email, city, region, status, auth_token
		 FROM contacts
		 WHERE status = $1
		   AND COALESCE(trim(city), '') <> ''
		   AND COALESCE(trim(region), '') <> ''
		 ORDER BY id`,
		string(types.ContactStatusActive),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active contacts", err)
	}
	defer rows.Close()

	var contacts []types.Contact
	for rows.Next() {
		var (
			c      types.Contact
			status string
		)
		if err := rows.Scan(&c.ID, &c.OrganizationName, &c.Email, &c.City, &c.Region, &status, &c.AuthToken); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan contact", err)
		}
		c.Status = types.ContactStatus(status)
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating contacts", err)
	}
	return contacts, nil
}
