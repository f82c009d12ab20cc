package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type NotificationRepository struct {
	DB *sql.DB
}

func (r NotificationRepository) Create(userID int64, message, notifType string) error {
	_, err := r.DB.Exec(`
		INSERT INTO notifications (user_id, message, type) VALUES (?, ?, ?)`,
		userID, message, notifType)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

func (r NotificationRepository) ListByUser(userID int64) ([]models.Notification, error) {
	rows, err := r.DB.Query(`
		SELECT id, user_id, message, type, is_read, created_at
		FROM notifications WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r NotificationRepository) MarkRead(userID, notificationID int64) error {
	res, err := r.DB.Exec(`
		UPDATE notifications SET is_read=1
		WHERE id=? AND user_id=? AND is_read=0`, notificationID, userID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "notification"}
	}
	return nil
}
