package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

type conversationRepository struct {
	BaseRepository
}

func NewConversationRepository(base BaseRepository) repository.ConversationRepository {
	return &conversationRepository{base}
}

// InsertGreetingIfEmpty appends the greeting in a single conditional insert,
// so concurrent bootstrap attempts cannot produce a second greeting.
func (r *conversationRepository) InsertGreetingIfEmpty(ctx context.Context, patientID uuid.UUID, content string) (bool, error) {
	query := `
		INSERT INTO conversation_messages (id, patient_id, role, content, created_at)
		SELECT $1, $2, $3, $4, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM conversation_messages WHERE patient_id = $2
		)
	`
	result, err := r.GetDB().ExecContext(ctx, query, uuid.New(), patientID, model.RoleAssistant, content)
	if err != nil {
		return false, fmt.Errorf("failed to bootstrap conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *conversationRepository) Append(ctx context.Context, msg *model.ConversationMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO conversation_messages (id, patient_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.GetDB().ExecContext(ctx, query, msg.ID, msg.PatientID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *conversationRepository) List(ctx context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error) {
	query := `
		SELECT * FROM conversation_messages
		WHERE patient_id = $1
		ORDER BY created_at, id
	`
	var messages []*model.ConversationMessage
	if err := r.GetDB().SelectContext(ctx, &messages, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
