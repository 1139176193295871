package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/hostelhub/hostelchat/internal/repository/model"
	"gorm.io/gorm"
)

type GormChatRoomRepository struct {
	db *gorm.DB
}

func NewGormChatRoomRepository(db *gorm.DB) *GormChatRoomRepository {
	return &GormChatRoomRepository{db: db}
}

func (r *GormChatRoomRepository) Provision(ctx context.Context, roomKey string, hostelName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	room := model.ChatRoom{
		RoomKey:    roomKey,
		HostelName: hostelName,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrChatAlreadyExists
		}
		return err
	}
	return nil
}

func (r *GormChatRoomRepository) Exists(ctx context.Context, roomKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatRoom{}).
		Where("room_key = ?", roomKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	return r.db.WithContext(ctx).Create(toModelMessage(msg)).Error
}

func (r *GormMessageRepository) GetByID(ctx context.Context, roomKey string, id uuid.UUID) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var msg model.Message
	err := r.db.WithContext(ctx).
		First(&msg, "room_key = ? AND id = ?", roomKey, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return toDomainMessage(&msg), nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, roomKey string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Delete(&model.Message{}, "room_key = ? AND id = ?", roomKey, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Page reads one fixed-size page counted backward from the newest message.
// Page numbers beyond the last page yield an empty slice, not an error.
func (r *GormMessageRepository) Page(ctx context.Context, roomKey string, page int, pageSize int) ([]*domain.Message, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if page < 1 || pageSize < 1 {
		return nil, 0, errors.New("page and page size must be positive")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("room_key = ?", roomKey).
		Count(&count).Error
	if err != nil {
		return nil, 0, err
	}

	totalPages := int((count + int64(pageSize) - 1) / int64(pageSize))
	if page > totalPages {
		return []*domain.Message{}, totalPages, nil
	}

	offset := int(count) - page*pageSize
	limit := pageSize
	if offset < 0 {
		limit += offset
		offset = 0
	}

	var rows []model.Message
	err = r.db.WithContext(ctx).
		Where("room_key = ?", roomKey).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, toDomainMessage(&rows[i]))
	}
	return messages, totalPages, nil
}

func toModelMessage(msg *domain.Message) *model.Message {
	return &model.Message{
		ID:         msg.ID,
		RoomKey:    msg.RoomKey,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		ImageURL:   msg.ImageURL,
		AudioURL:   msg.AudioURL,
		System:     msg.System,
		CreatedAt:  msg.CreatedAt.UTC(),
	}
}

func toDomainMessage(msg *model.Message) *domain.Message {
	return &domain.Message{
		ID:         msg.ID,
		RoomKey:    msg.RoomKey,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		ImageURL:   msg.ImageURL,
		AudioURL:   msg.AudioURL,
		System:     msg.System,
		CreatedAt:  msg.CreatedAt.UTC(),
	}
}
