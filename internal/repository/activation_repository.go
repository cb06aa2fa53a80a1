package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/misaops/misacard-server/internal/domain/activation"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
)

type ActivationLogRepository interface {
	Append(log *activation.Log) error
	ListByCardID(cardID string) ([]*activation.Log, error)
}

type activationLogRepository struct {
	db *sql.DB
}

func NewActivationLogRepository(db *sql.DB) ActivationLogRepository {
	return &activationLogRepository{db: db}
}

func (r *activationLogRepository) Append(log *activation.Log) error {
	query := `
		INSERT INTO activation_logs (card_id, status, error_message, response_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, activation_time
	`

	metrics.RecordDBQuery("insert", "activation_logs")
	err := r.db.QueryRow(
		query,
		log.CardID,
		log.Status,
		log.ErrorMessage,
		log.ResponseData,
	).Scan(&log.ID, &log.Time)

	if err != nil {
		return fmt.Errorf("failed to append activation log: %w", err)
	}

	return nil
}

func (r *activationLogRepository) ListByCardID(cardID string) ([]*activation.Log, error) {
	query := `
		SELECT id, card_id, status, error_message, response_data, activation_time
		FROM activation_logs
		WHERE card_id = $1
		ORDER BY activation_time DESC, id DESC
	`

	metrics.RecordDBQuery("select", "activation_logs")
	rows, err := r.db.Query(query, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation logs: %w", err)
	}
	defer rows.Close()

	logs := []*activation.Log{}
	for rows.Next() {
		l := &activation.Log{}
		err := rows.Scan(
			&l.ID,
			&l.CardID,
			&l.Status,
			&l.ErrorMessage,
			&l.ResponseData,
			&l.Time,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation log: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
