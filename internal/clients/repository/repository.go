package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Client is the billed party of an invoice.
type Client struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"-"`
	Name         string    `json:"name"`
	Address1     string    `json:"address1"`
	Address2     string    `json:"address2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	PrivateNotes string    `json:"private_notes"`
	CurrencyCode string    `json:"currency_code"`
	Contacts     []Contact `json:"contacts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Contact is a person at a client. Email is the lookup key within an account.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"-"`
	ClientID  uuid.UUID `json:"client_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the contact's full name, or its email when unnamed.
func (c Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Email
	}
	return name
}

// PrimaryContact returns the primary contact, falling back to the first one.
func (c *Client) PrimaryContact() *Contact {
	for i := range c.Contacts {
		if c.Contacts[i].IsPrimary {
			return &c.Contacts[i]
		}
	}
	if len(c.Contacts) > 0 {
		return &c.Contacts[0]
	}
	return nil
}

// ── Repository ────────────────────────────────────────────────────────────────

const (
	clientNotFoundMsg     = "client not found"
	duplicateContactMsg   = "a contact with this email already exists"
	pgUniqueViolationCode = "23505"
)

const clientColumns = `c.id, c.tenant_id, c.name, c.address1, c.address2, c.city, c.state,
	c.postal_code, c.private_notes, c.currency_code, c.created_at, c.updated_at`

const contactColumns = `id, tenant_id, client_id, first_name, last_name, email, phone, is_primary, created_at`

// Repository provides database operations for clients and their contacts.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByContactEmail returns the client owning a contact with email (case-insensitive).
func (r *Repository) FindByContactEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients c
		JOIN contacts ct ON ct.client_id = c.id AND ct.tenant_id = c.tenant_id
		WHERE c.tenant_id = $1 AND lower(ct.email) = lower($2)
		ORDER BY c.created_at ASC
		LIMIT 1`

	client, err := scanClient(r.pool.QueryRow(ctx, query, tenantID, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to find client by contact email: %w", err)
	}

	if client.Contacts, err = r.GetContacts(ctx, client.ID, tenantID); err != nil {
		return nil, err
	}
	return client, nil
}

// GetByID retrieves a client and its contacts scoped to the account.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients c WHERE c.id = $1 AND c.tenant_id = $2`

	client, err := scanClient(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if client.Contacts, err = r.GetContacts(ctx, client.ID, tenantID); err != nil {
		return nil, err
	}
	return client, nil
}

// GetByIDs batch-loads clients with contacts, keyed by id. Missing ids are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []uuid.UUID, tenantID uuid.UUID) (map[uuid.UUID]*Client, error) {
	result := make(map[uuid.UUID]*Client, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients c WHERE c.tenant_id = $1 AND c.id = ANY($2)`,
		tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		result[client.ID] = client
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}

	contactRows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE tenant_id = $1 AND client_id = ANY($2)
		 ORDER BY is_primary DESC, created_at ASC`,
		tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer contactRows.Close()

	for contactRows.Next() {
		contact, err := scanContact(contactRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if client, ok := result[contact.ClientID]; ok {
			client.Contacts = append(client.Contacts, contact)
		}
	}
	if err := contactRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return result, nil
}

// GetContacts returns a client's contacts, primary first.
func (r *Repository) GetContacts(ctx context.Context, clientID, tenantID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE client_id = $1 AND tenant_id = $2
		 ORDER BY is_primary DESC, created_at ASC`,
		clientID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]Contact, 0, 1)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// Create inserts a client and its contacts in a single transaction.
// A contact email already taken in the account yields apperr.Conflict.
func (r *Repository) Create(ctx context.Context, client *Client) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO clients (
			id, tenant_id, name, address1, address2, city, state,
			postal_code, private_notes, currency_code, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		client.ID, client.TenantID, client.Name, client.Address1, client.Address2,
		client.City, client.State, client.PostalCode, client.PrivateNotes,
		client.CurrencyCode, client.CreatedAt, client.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}

	for _, contact := range client.Contacts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contacts (
				id, tenant_id, client_id, first_name, last_name, email, phone, is_primary, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			contact.ID, contact.TenantID, contact.ClientID, contact.FirstName, contact.LastName,
			contact.Email, contact.Phone, contact.IsPrimary, contact.CreatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
				return apperr.Conflict(duplicateContactMsg)
			}
			return fmt.Errorf("failed to insert contact: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Address1, &c.Address2, &c.City, &c.State,
		&c.PostalCode, &c.PrivateNotes, &c.CurrencyCode, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var ct Contact
	err := row.Scan(
		&ct.ID, &ct.TenantID, &ct.ClientID, &ct.FirstName, &ct.LastName,
		&ct.Email, &ct.Phone, &ct.IsPrimary, &ct.CreatedAt,
	)
	return ct, err
}
