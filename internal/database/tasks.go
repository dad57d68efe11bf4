package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
)

// TaskRepository reads task records from the task source tables.
// streakd does not own task CRUD; it only lists records for aggregation.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, completed, created_at, last_modified, due_date, completed_at, snoozed_until, hidden`

// GetRelevantToDay retrieves non-hidden tasks whose creation, completion, or
// last-modified time falls within the given day in loc.
func (r *TaskRepository) GetRelevantToDay(ctx context.Context, userID uuid.UUID, day date.Day, loc *time.Location) ([]*models.Task, error) {
	start, end, err := day.Window(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid day: %w", err)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		  AND hidden = false
		  AND (
			(created_at >= $2 AND created_at <= $3)
			OR (last_modified >= $2 AND last_modified <= $3)
			OR (completed_at IS NOT NULL AND completed_at >= $2 AND completed_at <= $3)
		  )
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var dueDate, completedAt, snoozedUntil sql.NullTime

		err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Completed,
			&task.CreatedAt,
			&task.LastModified,
			&dueDate,
			&completedAt,
			&snoozedUntil,
			&task.Hidden,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if dueDate.Valid {
			task.DueDate = &dueDate.Time
		}
		if completedAt.Valid {
			task.CompletedAt = &completedAt.Time
		}
		if snoozedUntil.Valid {
			task.SnoozedUntil = &snoozedUntil.Time
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}
