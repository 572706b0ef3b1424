package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for inventory persistence operations.
type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id string) (*Room, error)
	GetRoomByTopic(ctx context.Context, topic string) (*Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, id string) error

	CreateSensor(ctx context.Context, sensor *Sensor) error
	ListSensors(ctx context.Context) ([]Sensor, error)
	ListSensorsByRoom(ctx context.Context, roomID string) ([]Sensor, error)
	ListSensorsByType(ctx context.Context, sensorType string) ([]Sensor, error)
	GetSensor(ctx context.Context, id string) (*Sensor, error)
	GetSensorByTopic(ctx context.Context, topic string) (*Sensor, error)
	UpdateSensor(ctx context.Context, sensor *Sensor) error
	UpdateSensorValue(ctx context.Context, topic, value string) error
	DeleteSensor(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed inventory repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRoom inserts a new room into the database.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	const query = `INSERT INTO rooms (id, name, topic, picture)
		VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Topic, room.Picture)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: room topic %q", ErrDuplicateTopic, room.Topic)
		}
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// ListRooms returns all rooms ordered by name.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	const query = `SELECT id, name, topic, picture, created_at, updated_at
		FROM rooms ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		rm, err := scanRoomRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a single room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	const query = `SELECT id, name, topic, picture, created_at, updated_at
		FROM rooms WHERE id = ?`
	return scanRoom(r.db.QueryRowContext(ctx, query, id))
}

// GetRoomByTopic returns the room owning the given base topic.
func (r *SQLiteRepository) GetRoomByTopic(ctx context.Context, topic string) (*Room, error) {
	const query = `SELECT id, name, topic, picture, created_at, updated_at
		FROM rooms WHERE topic = ?`
	return scanRoom(r.db.QueryRowContext(ctx, query, topic))
}

// UpdateRoom updates an existing room record.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room *Room) error {
	const query = `UPDATE rooms SET name = ?, topic = ?, picture = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		room.Name, room.Topic, room.Picture, room.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: room topic %q", ErrDuplicateTopic, room.Topic)
		}
		return fmt.Errorf("updating room %s: %w", room.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room. Its sensors go with it (ON DELETE CASCADE).
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// CreateSensor inserts a new sensor into the database.
func (r *SQLiteRepository) CreateSensor(ctx context.Context, sensor *Sensor) error {
	const query = `INSERT INTO sensors (id, room_id, name, type, topic, value)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		sensor.ID, sensor.RoomID, sensor.Name, sensor.Type, sensor.Topic, sensor.Value)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sensor topic %q", ErrDuplicateTopic, sensor.Topic)
		}
		return fmt.Errorf("inserting sensor %s: %w", sensor.ID, err)
	}
	return nil
}

// ListSensors returns all sensors ordered by topic.
func (r *SQLiteRepository) ListSensors(ctx context.Context) ([]Sensor, error) {
	const query = `SELECT id, room_id, name, type, topic, value, created_at, updated_at
		FROM sensors ORDER BY topic`
	return r.querySensors(ctx, query)
}

// ListSensorsByRoom returns sensors belonging to a specific room.
func (r *SQLiteRepository) ListSensorsByRoom(ctx context.Context, roomID string) ([]Sensor, error) {
	const query = `SELECT id, room_id, name, type, topic, value, created_at, updated_at
		FROM sensors WHERE room_id = ? ORDER BY topic`
	return r.querySensors(ctx, query, roomID)
}

// ListSensorsByType returns sensors of a specific type across all rooms.
func (r *SQLiteRepository) ListSensorsByType(ctx context.Context, sensorType string) ([]Sensor, error) {
	const query = `SELECT id, room_id, name, type, topic, value, created_at, updated_at
		FROM sensors WHERE type = ? ORDER BY topic`
	return r.querySensors(ctx, query, sensorType)
}

// GetSensor returns a single sensor by ID.
func (r *SQLiteRepository) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	const query = `SELECT id, room_id, name, type, topic, value, created_at, updated_at
		FROM sensors WHERE id = ?`
	return scanSensor(r.db.QueryRowContext(ctx, query, id))
}

// GetSensorByTopic returns the sensor owning the given topic.
func (r *SQLiteRepository) GetSensorByTopic(ctx context.Context, topic string) (*Sensor, error) {
	const query = `SELECT id, room_id, name, type, topic, value, created_at, updated_at
		FROM sensors WHERE topic = ?`
	return scanSensor(r.db.QueryRowContext(ctx, query, topic))
}

// UpdateSensor updates an existing sensor record.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, sensor *Sensor) error {
	const query = `UPDATE sensors SET name = ?, type = ?, topic = ?, value = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		sensor.Name, sensor.Type, sensor.Topic, sensor.Value, sensor.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sensor topic %q", ErrDuplicateTopic, sensor.Topic)
		}
		return fmt.Errorf("updating sensor %s: %w", sensor.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrSensorNotFound
	}
	return nil
}

// UpdateSensorValue records the latest observed value for the sensor at
// the given topic. Unknown topics are ignored: readings can arrive for
// devices the inventory has never heard of.
func (r *SQLiteRepository) UpdateSensorValue(ctx context.Context, topic, value string) error {
	const query = `UPDATE sensors SET value = ?, updated_at = CURRENT_TIMESTAMP
		WHERE topic = ?`
	if _, err := r.db.ExecContext(ctx, query, value, topic); err != nil {
		return fmt.Errorf("updating sensor value for %s: %w", topic, err)
	}
	return nil
}

// DeleteSensor removes a single sensor by ID.
func (r *SQLiteRepository) DeleteSensor(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrSensorNotFound
	}
	return nil
}

// querySensors executes a query and returns a slice of Sensor.
func (r *SQLiteRepository) querySensors(ctx context.Context, query string, args ...any) ([]Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		s, err := scanSensorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor row: %w", err)
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor rows: %w", err)
	}
	return sensors, nil
}

// scanRoom scans a single row into a Room (for QueryRow).
func scanRoom(row *sql.Row) (*Room, error) {
	var rm Room
	var picture sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&rm.ID, &rm.Name, &rm.Topic, &picture, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	rm.Picture = picture.String
	rm.CreatedAt = parseTime(createdAt)
	rm.UpdatedAt = parseTime(updatedAt)
	return &rm, nil
}

// scanRoomRow scans a room from a Rows cursor.
func scanRoomRow(rows *sql.Rows) (*Room, error) {
	var rm Room
	var picture sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(&rm.ID, &rm.Name, &rm.Topic, &picture, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rm.Picture = picture.String
	rm.CreatedAt = parseTime(createdAt)
	rm.UpdatedAt = parseTime(updatedAt)
	return &rm, nil
}

// scanSensor scans a single row into a Sensor (for QueryRow).
func scanSensor(row *sql.Row) (*Sensor, error) {
	var s Sensor
	var value sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.RoomID, &s.Name, &s.Type, &s.Topic, &value, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("scanning sensor: %w", err)
	}
	s.Value = value.String
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

// scanSensorRow scans a sensor from a Rows cursor.
func scanSensorRow(rows *sql.Rows) (*Sensor, error) {
	var s Sensor
	var value sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(&s.ID, &s.RoomID, &s.Name, &s.Type, &s.Topic, &value, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.Value = value.String
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

// parseTime handles the timestamp formats SQLite emits.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
