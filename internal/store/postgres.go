package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kidship/messaging/internal/models"
)

type Postgres struct {
	db *sql.DB
}

func OpenPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Migrate() error { return RunMigrations(p.db) }

// --- Users ---

func (p *Postgres) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	var out models.User
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password, avatar_url, role, school_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, first_name, last_name, email, avatar_url, role, school_id, created_at`,
		u.FirstName, u.LastName, u.Email, u.Password, u.AvatarURL, u.Role, u.SchoolID,
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Email, &out.AvatarURL, &out.Role, &out.SchoolID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &out, nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, avatar_url, role, school_id, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.AvatarURL, &u.Role, &u.SchoolID, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password, avatar_url, role, school_id, created_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.AvatarURL, &u.Role, &u.SchoolID, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, avatar_url, role, school_id, created_at
		 FROM users WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *Postgres) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, avatar_url, role, school_id, created_at
		 FROM users
		 WHERE first_name ILIKE $1 OR last_name ILIKE $1
		 ORDER BY last_name, first_name LIMIT $2`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *Postgres) UpdateProfile(ctx context.Context, id, firstName, lastName, avatarURL string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, avatar_url = $4
		 WHERE id = $1
		 RETURNING id, first_name, last_name, email, avatar_url, role, school_id, created_at`,
		id, firstName, lastName, avatarURL,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.AvatarURL, &u.Role, &u.SchoolID, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.AvatarURL, &u.Role, &u.SchoolID, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, rows.Err()
}

// --- Rooms ---

func (p *Postgres) EnsureRoom(ctx context.Context, id string, participants []string) (*models.Room, bool, error) {
	var r models.Room
	var parts pq.StringArray
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO rooms (id, participants) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING id, participants, created_at`,
		id, pq.Array(participants),
	).Scan(&r.ID, &parts, &r.CreatedAt)
	if err == nil {
		r.Participants = parts
		return &r, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to create room: %w", err)
	}
	room, err := p.GetRoom(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if room == nil {
		return nil, false, fmt.Errorf("room %s vanished after conflicting insert", id)
	}
	return room, false, nil
}

func (p *Postgres) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var r models.Room
	var parts pq.StringArray
	err := p.db.QueryRowContext(ctx,
		`SELECT id, participants, created_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&r.ID, &parts, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	r.Participants = parts
	return &r, nil
}

func (p *Postgres) RoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, participants, created_at FROM rooms WHERE $1 = ANY(participants)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		var parts pq.StringArray
		if err := rows.Scan(&r.ID, &parts, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Participants = parts
		rooms = append(rooms, r)
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, rows.Err()
}

// --- Messages ---

func (p *Postgres) AppendMessage(ctx context.Context, roomID, senderID, text string) (*models.Message, error) {
	var m models.Message
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, sender_id, text) VALUES ($1, $2, $3)
		 RETURNING id, room_id, sender_id, text, created_at`,
		roomID, senderID, text,
	).Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &m, nil
}

func (p *Postgres) Messages(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error) {
	query := `SELECT id, room_id, sender_id, text, created_at FROM messages
		 WHERE room_id = $1 AND created_at < $2
		 ORDER BY created_at DESC LIMIT $3`
	args := []interface{}{roomID, before, limit}
	if before.IsZero() {
		query = `SELECT id, room_id, sender_id, text, created_at FROM messages
		 WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = []interface{}{roomID, limit}
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, rows.Err()
}

func (p *Postgres) LatestMessage(ctx context.Context, roomID string) (*models.Message, error) {
	var m models.Message
	err := p.db.QueryRowContext(ctx,
		`SELECT id, room_id, sender_id, text, created_at FROM messages
		 WHERE room_id = $1 ORDER BY created_at DESC LIMIT 1`,
		roomID,
	).Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return &m, nil
}
