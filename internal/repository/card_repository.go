package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
)

type CardRepository interface {
	Create(c *card.Card) error
	GetByCardID(cardID string) (*card.Card, error)
	Update(cardID string, updates map[string]interface{}) error
	Delete(cardID string) error
	List(filter card.ListFilter) ([]*card.Card, error)
	// Activate applies the atomic activation write. The guard keeps expired
	// and deleted cards terminal for the activation path.
	Activate(cardID string, data *card.ActivationData, activationTime time.Time) error
	MarkExpired(cardID string) error
	// SweepExpired transitions every overdue card to expired in one statement
	// and returns how many rows changed.
	SweepExpired(now time.Time) (int, error)
	UnreturnedCardNumbers() ([]string, error)
	SetRefundRequested(cardID string, requested bool, at *time.Time) error
}

type cardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepository{db: db}
}

const cardColumns = `id, card_id, card_nickname, card_number, card_cvc_encrypted,
	       card_exp_date, billing_address, card_limit, validity_hours, status,
	       is_activated, create_time, card_activation_time, exp_date,
	       refund_requested, refund_requested_time`

func scanCard(row interface{ Scan(...interface{}) error }) (*card.Card, error) {
	c := &card.Card{}
	err := row.Scan(
		&c.ID,
		&c.CardID,
		&c.CardNickname,
		&c.CardNumber,
		&c.CVCEncrypted,
		&c.CardExpDate,
		&c.BillingAddress,
		&c.CardLimit,
		&c.ValidityHours,
		&c.Status,
		&c.IsActivated,
		&c.CreateTime,
		&c.ActivationTime,
		&c.ExpDate,
		&c.RefundRequested,
		&c.RefundRequestedTime,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *cardRepository) Create(c *card.Card) error {
	query := `
		INSERT INTO cards (card_id, card_nickname, card_limit, validity_hours, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, create_time
	`

	metrics.RecordDBQuery("insert", "cards")
	err := r.db.QueryRow(
		query,
		c.CardID,
		c.CardNickname,
		c.CardLimit,
		c.ValidityHours,
		card.StatusInactive,
	).Scan(&c.ID, &c.CreateTime)

	if err != nil {
		if isUniqueViolation(err) {
			return card.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create card: %w", err)
	}

	c.Status = card.StatusInactive
	return nil
}

func (r *cardRepository) GetByCardID(cardID string) (*card.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE card_id = $1`, cardColumns)

	metrics.RecordDBQuery("select", "cards")
	c, err := scanCard(r.db.QueryRow(query, cardID))
	if err == sql.ErrNoRows {
		return nil, card.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return c, nil
}

func (r *cardRepository) Update(cardID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	query := "UPDATE cards SET "
	args := []interface{}{}
	argPos := 1

	for key, value := range updates {
		if argPos > 1 {
			query += ", "
		}
		query += fmt.Sprintf("%s = $%d", key, argPos)
		args = append(args, value)
		argPos++
	}

	query += fmt.Sprintf(" WHERE card_id = $%d", argPos)
	args = append(args, cardID)

	metrics.RecordDBQuery("update", "cards")
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return card.ErrNotFound
	}

	return nil
}

func (r *cardRepository) Delete(cardID string) error {
	// Hard delete; activation logs are kept for audit.
	query := `DELETE FROM cards WHERE card_id = $1`

	metrics.RecordDBQuery("delete", "cards")
	result, err := r.db.Exec(query, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return card.ErrNotFound
	}

	return nil
}

func (r *cardRepository) List(filter card.ListFilter) ([]*card.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards`, cardColumns)
	args := []interface{}{}
	argPos := 1
	where := ""

	addClause := func(clause string, vals ...interface{}) {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += clause
		args = append(args, vals...)
		argPos += len(vals)
	}

	if filter.NotExpired {
		addClause("is_activated = TRUE AND status NOT IN ('expired', 'deleted')")
	} else if filter.Status != "" {
		addClause(fmt.Sprintf("status = $%d", argPos), filter.Status)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		addClause(fmt.Sprintf(
			"(card_id LIKE $%d OR card_nickname LIKE $%d OR card_number LIKE $%d)",
			argPos, argPos+1, argPos+2,
		), pattern, pattern, pattern)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query += where + fmt.Sprintf(" ORDER BY create_time DESC OFFSET $%d LIMIT $%d", argPos, argPos+1)
	args = append(args, filter.Offset, limit)

	metrics.RecordDBQuery("select", "cards")
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []*card.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}

	return cards, rows.Err()
}

func (r *cardRepository) Activate(cardID string, data *card.ActivationData, activationTime time.Time) error {
	query := `
		UPDATE cards
		SET card_number = $2,
		    card_cvc_encrypted = $3,
		    card_exp_date = $4,
		    billing_address = $5,
		    is_activated = TRUE,
		    status = 'active',
		    card_activation_time = $6,
		    validity_hours = COALESCE($7, validity_hours),
		    exp_date = COALESCE($8, exp_date)
		WHERE card_id = $1 AND status NOT IN ('expired', 'deleted')
	`

	metrics.RecordDBQuery("update", "cards")
	result, err := r.db.Exec(
		query,
		cardID,
		data.CardNumber,
		data.CVCEncrypted,
		data.CardExpDate,
		data.BillingAddress,
		activationTime,
		data.ValidityHours,
		data.ExpDate,
	)
	if err != nil {
		return fmt.Errorf("failed to activate card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the card is unknown or the status guard refused the write.
		if _, err := r.GetByCardID(cardID); err != nil {
			return err
		}
		return card.ErrNotActivatable
	}

	return nil
}

func (r *cardRepository) MarkExpired(cardID string) error {
	query := `
		UPDATE cards SET status = 'expired'
		WHERE card_id = $1 AND status NOT IN ('expired', 'deleted')
	`

	metrics.RecordDBQuery("update", "cards")
	if _, err := r.db.Exec(query, cardID); err != nil {
		return fmt.Errorf("failed to mark card expired: %w", err)
	}

	return nil
}

func (r *cardRepository) SweepExpired(now time.Time) (int, error) {
	query := `
		UPDATE cards SET status = 'expired'
		WHERE status NOT IN ('expired', 'deleted')
		  AND exp_date IS NOT NULL
		  AND exp_date < $1
	`

	metrics.RecordDBQuery("update", "cards")
	result, err := r.db.Exec(query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired cards: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *cardRepository) UnreturnedCardNumbers() ([]string, error) {
	query := `
		SELECT card_number FROM cards
		WHERE status = 'expired'
		  AND is_activated = TRUE
		  AND refund_requested = FALSE
		  AND card_number IS NOT NULL
		ORDER BY create_time DESC
	`

	metrics.RecordDBQuery("select", "cards")
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreturned card numbers: %w", err)
	}
	defer rows.Close()

	numbers := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan card number: %w", err)
		}
		numbers = append(numbers, n)
	}

	return numbers, rows.Err()
}

func (r *cardRepository) SetRefundRequested(cardID string, requested bool, at *time.Time) error {
	query := `
		UPDATE cards SET refund_requested = $2, refund_requested_time = $3
		WHERE card_id = $1
	`

	metrics.RecordDBQuery("update", "cards")
	result, err := r.db.Exec(query, cardID, requested, at)
	if err != nil {
		return fmt.Errorf("failed to set refund flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return card.ErrNotFound
	}

	return nil
}
