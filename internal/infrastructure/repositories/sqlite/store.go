package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"echolink/internal/core/domain"
	"echolink/pkg/utils"

	_ "github.com/mattn/go-sqlite3"
)

// Store backs both the message and room collaborators with a single
// SQLite database.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id VARCHAR(64) PRIMARY KEY,
		sender_peer_id VARCHAR(100) NOT NULL,
		sender_user_id VARCHAR(100),
		target_peer_id VARCHAR(100),
		room_id VARCHAR(100),
		content TEXT NOT NULL,
		type VARCHAR(20) NOT NULL DEFAULT 'text',
		parent_id VARCHAR(64),
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id VARCHAR(100) PRIMARY KEY,
		name VARCHAR(100),
		created_by VARCHAR(100),
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_members (
		room_id VARCHAR(100) NOT NULL,
		user_id VARCHAR(100) NOT NULL,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (room_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_peers ON messages(sender_peer_id, target_peer_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sqlite tables: %w", err)
	}
	return nil
}

// Ping is used by the health checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveMessage(ctx context.Context, msg *domain.Message) (string, error) {
	id := msg.ID
	if id == "" {
		id = utils.GenerateMessageID()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_peer_id, sender_user_id, target_peer_id, room_id, content, type, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(msg.SenderPeerID), string(msg.SenderUserID), string(msg.TargetPeerID),
		string(msg.RoomID), msg.Content, string(msg.Type), msg.ParentID, msg.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}

func (s *Store) DirectMessages(ctx context.Context, a, b domain.PeerID, limit int) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_peer_id, sender_user_id, target_peer_id, room_id, content, type, parent_id, created_at
		FROM (
			SELECT * FROM messages
			WHERE (room_id = '' OR room_id IS NULL)
			  AND ((sender_peer_id = ? AND target_peer_id = ?) OR (sender_peer_id = ? AND target_peer_id = ?))
			ORDER BY created_at DESC
			LIMIT ?
		) ORDER BY created_at ASC`,
		string(a), string(b), string(b), string(a), limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query direct messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *Store) RoomMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_peer_id, sender_user_id, target_peer_id, room_id, content, type, parent_id, created_at
		FROM (
			SELECT * FROM messages
			WHERE room_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		) ORDER BY created_at ASC`,
		string(roomID), limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query room messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *Store) SaveRoom(ctx context.Context, room *domain.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, created_by, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(room.ID), room.Name, string(room.CreatedBy), room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)`,
		string(roomID), string(userID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert room member: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM room_members WHERE room_id = ? AND user_id = ?`,
		string(roomID), string(userID),
	)
	if err != nil {
		return fmt.Errorf("failed to delete room member: %w", err)
	}
	return nil
}

func (s *Store) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM room_members WHERE room_id = ? ORDER BY user_id`,
		string(roomID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query room members: %w", err)
	}
	defer rows.Close()

	var members []domain.UserID
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, domain.UserID(userID))
	}
	return members, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var senderPeer, senderUser, targetPeer, roomID, msgType string
		if err := rows.Scan(&msg.ID, &senderPeer, &senderUser, &targetPeer, &roomID,
			&msg.Content, &msgType, &msg.ParentID, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.SenderPeerID = domain.PeerID(senderPeer)
		msg.SenderUserID = domain.UserID(senderUser)
		msg.TargetPeerID = domain.PeerID(targetPeer)
		msg.RoomID = domain.RoomID(roomID)
		msg.Type = domain.MessageType(msgType)
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
